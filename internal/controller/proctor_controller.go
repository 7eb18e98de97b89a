package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProctorController struct {
	QuestionService *service.QuestionService
}

func NewProctorController(questionService *service.QuestionService) *ProctorController {
	return &ProctorController{QuestionService: questionService}
}

// GetModuleQuestions godoc
// @Summary 开始模块测验
// @Description 生成题目并创建测验记录，返回的题目不含答案
// @Tags 监考
// @Produce  json
// @Security ApiKeyAuth
// @Param   moduleId path int true "模块序号"
// @Param   domain query string true "方向"
// @Param   level query string true "级别"
// @Success 200 {object} util.Response{data=service.AttemptView} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "模块视频尚未看完"
// @Failure 502 {object} util.Response "模型输出不可用"
// @Router /api/proctor/questions/{moduleId} [get]
func (c *ProctorController) GetModuleQuestions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	moduleID, err := strconv.Atoi(ctx.Param("moduleId"))
	if err != nil || moduleID <= 0 {
		util.BadRequest(ctx, "moduleId must be a positive integer")
		return
	}
	view, err := c.QuestionService.StartModuleTest(ctx.Request.Context(), userID, moduleID, ctx.Query("domain"), ctx.Query("level"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetFinalQuestions godoc
// @Summary 开始期末考试
// @Tags 监考
// @Produce  json
// @Security ApiKeyAuth
// @Param   domain query string true "方向"
// @Param   level query string true "级别"
// @Success 200 {object} util.Response{data=service.AttemptView} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "尚有模块未完成"
// @Router /api/proctor/final-questions [get]
func (c *ProctorController) GetFinalQuestions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	view, err := c.QuestionService.StartFinalExam(ctx.Request.Context(), userID, ctx.Query("domain"), ctx.Query("level"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// SubmitAttempt godoc
// @Summary 提交测验
// @Description 服务端评分；违规次数达到上限的测验被标记，且不计入进度
// @Tags 监考
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   attemptId path string true "测验ID"
// @Param   body body service.SubmitAttemptInput true "答案与违规信息"
// @Success 200 {object} util.Response{data=service.SubmitResult} "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "已提交"
// @Router /api/proctor/attempts/{attemptId}/submit [post]
func (c *ProctorController) SubmitAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req service.SubmitAttemptInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.QuestionService.Submit(ctx.Request.Context(), userID, ctx.Param("attemptId"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
