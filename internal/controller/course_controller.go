package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService   *service.CourseService
	ProgressService *service.ProgressService
}

func NewCourseController(courseService *service.CourseService, progressService *service.ProgressService) *CourseController {
	return &CourseController{
		CourseService:   courseService,
		ProgressService: progressService,
	}
}

// GetContent godoc
// @Summary 课程目录
// @Description 返回某方向某级别的原始课程目录
// @Tags 课程
// @Produce  json
// @Param   domain path string true "方向"
// @Param   level path string true "级别"
// @Success 200 {object} util.Response{data=catalog.Content} "成功"
// @Failure 404 {object} util.Response "课程目录不存在"
// @Router /api/courses/{domain}/{level} [get]
func (c *CourseController) GetContent(ctx *gin.Context) {
	content, err := c.CourseService.Content(ctx.Request.Context(), ctx.Param("domain"), ctx.Param("level"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// GetMerged godoc
// @Summary 合并后的课程
// @Description 路线图主题对齐到课程目录步骤，附带视频与资料
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   domain path string true "方向"
// @Param   level path string true "级别"
// @Success 200 {object} util.Response{data=service.MergedCourse} "成功"
// @Failure 404 {object} util.Response "路线图或目录不存在"
// @Router /api/courses/{domain}/{level}/merged [get]
func (c *CourseController) GetMerged(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	merged, err := c.CourseService.Merged(ctx.Request.Context(), userID, ctx.Param("domain"), ctx.Param("level"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, merged)
}

// GetState godoc
// @Summary 课时状态
// @Description 按已保存进度重建每个课时的 locked/current/completed 状态
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   domain path string true "方向"
// @Param   level path string true "级别"
// @Success 200 {object} util.Response{data=learning.CourseState} "成功"
// @Router /api/courses/{domain}/{level}/state [get]
func (c *CourseController) GetState(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, err := c.ProgressService.CourseState(ctx.Request.Context(), userID, ctx.Param("domain"), ctx.Param("level"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 只能完成 current 课时；跨模块前进需要上一模块测验已通过。进度写入失败时返回 warning
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   domain path string true "方向"
// @Param   level path string true "级别"
// @Param   lessonId path string true "课时ID，如 1-V1"
// @Success 200 {object} util.Response{data=service.LessonCompletion} "成功"
// @Failure 404 {object} util.Response "课时不存在"
// @Failure 409 {object} util.Response "课时未解锁"
// @Router /api/courses/{domain}/{level}/lessons/{lessonId}/complete [post]
func (c *CourseController) CompleteLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	res, err := c.ProgressService.CompleteLesson(ctx.Request.Context(), userID, ctx.Param("domain"), ctx.Param("level"), ctx.Param("lessonId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
