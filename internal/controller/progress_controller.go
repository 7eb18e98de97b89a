package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// SaveProgress godoc
// @Summary 保存主题进度
// @Description 视频完成标记逐项合并，currentIndex 以新值为准；写入失败时返回 warning
// @Tags 进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.SaveProgressInput true "主题进度"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/progress/save [post]
func (c *ProgressController) SaveProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req service.SaveProgressInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "courseId and topicId required")
		return
	}
	req.CourseID = strings.TrimSpace(req.CourseID)
	progress, warning, err := c.ProgressService.SaveTopic(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"progress": progress, "warning": warning})
}

// GetProgress godoc
// @Summary 课程进度
// @Description 没有记录时返回空进度
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID，如 web-development-beginner"
// @Success 200 {object} util.Response{data=model.CourseProgress} "成功"
// @Router /api/progress/{courseId} [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	progress, err := c.ProgressService.Progress(ctx.Request.Context(), userID, ctx.Param("courseId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// SaveAssessment godoc
// @Summary 记录测验成绩
// @Description 百分比达到阈值时标记模块测验或期末考试通过，期末通过授予结课徽章
// @Tags 进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AssessmentInput true "测验成绩"
// @Success 200 {object} util.Response{data=service.AssessmentOutcome} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "测验尚未解锁"
// @Router /api/progress/assessment [post]
func (c *ProgressController) SaveAssessment(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req service.AssessmentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	outcome, err := c.ProgressService.RecordAssessment(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}
