package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type RoadmapController struct {
	RoadmapService *service.RoadmapService
}

func NewRoadmapController(roadmapService *service.RoadmapService) *RoadmapController {
	return &RoadmapController{RoadmapService: roadmapService}
}

type GenerateRoadmapRequest struct {
	Domain     string `json:"domain" binding:"required"`
	SkillLevel string `json:"skillLevel" binding:"required"`
}

// Generate godoc
// @Summary 生成学习路线图
// @Description 只使用课程目录中的标题；模型失败时按目录顺序生成兜底路线图
// @Tags 路线图
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateRoadmapRequest true "方向与级别"
// @Success 200 {object} util.Response{data=model.Roadmap} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "课程目录不存在"
// @Router /api/roadmap/generate [post]
func (c *RoadmapController) Generate(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req GenerateRoadmapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Domain & skillLevel required")
		return
	}
	roadmap, err := c.RoadmapService.Generate(ctx.Request.Context(), userID, strings.TrimSpace(req.Domain), strings.TrimSpace(req.SkillLevel))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, roadmap)
}

// MyRoadmap godoc
// @Summary 我的路线图
// @Tags 路线图
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Roadmap} "成功"
// @Failure 404 {object} util.Response "尚未生成"
// @Router /api/roadmap/my-roadmap [get]
func (c *RoadmapController) MyRoadmap(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	roadmap, err := c.RoadmapService.MyRoadmap(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, roadmap)
}
