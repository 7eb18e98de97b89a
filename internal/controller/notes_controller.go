package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotesController struct {
	NotesService *service.NotesService
}

func NewNotesController(notesService *service.NotesService) *NotesController {
	return &NotesController{NotesService: notesService}
}

type GenerateNotesRequest struct {
	VideoTitle string `json:"videoTitle"`
	VideoURL   string `json:"videoUrl"`
}

// Generate godoc
// @Summary 生成学习笔记
// @Description 根据视频标题生成 Markdown 笔记，启用 Redis 时缓存 24 小时
// @Tags 笔记
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateNotesRequest true "视频信息"
// @Success 200 {object} util.Response{data=service.NotesResult} "成功"
// @Failure 400 {object} util.Response "缺少视频标题"
// @Router /api/notes/generate [post]
func (c *NotesController) Generate(ctx *gin.Context) {
	var req GenerateNotesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.NotesService.Generate(ctx.Request.Context(), req.VideoTitle, req.VideoURL)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
