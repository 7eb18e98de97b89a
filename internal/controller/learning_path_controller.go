package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LearningPathController struct {
	LearningPathService *service.LearningPathService
}

func NewLearningPathController(learningPathService *service.LearningPathService) *LearningPathController {
	return &LearningPathController{LearningPathService: learningPathService}
}

// GetOverview godoc
// @Summary 学习路径概览
// @Description 每个主题按已记录的视频完成标记计算百分比；没有路线图时返回空概览
// @Tags 学习路径
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.LearningPathOverview} "成功"
// @Router /api/learning-path/overview [get]
func (c *LearningPathController) GetOverview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	overview, err := c.LearningPathService.Overview(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
