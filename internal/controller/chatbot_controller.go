package controller

import (
	"bytes"
	"encoding/json"
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxContextBody = 16 << 10

type ChatbotController struct {
	ChatService *service.ChatService
}

func NewChatbotController(chatService *service.ChatService) *ChatbotController {
	return &ChatbotController{ChatService: chatService}
}

// UpdateContextRequest 只接受这些字段，其他字段返回 400
type UpdateContextRequest struct {
	Event string `json:"event"`
	service.ContextPatch
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func decodeContextRequest(body io.Reader) (UpdateContextRequest, error) {
	var req UpdateContextRequest
	raw, err := io.ReadAll(io.LimitReader(body, maxContextBody))
	if err != nil {
		return req, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return req, fmt.Errorf("%w: %s", util.ErrUnknownContextKey, strings.TrimPrefix(err.Error(), "json: "))
		}
		return req, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	return req, nil
}

// UpdateContext godoc
// @Summary 更新学习助手上下文
// @Description 逐字段更新 domain、skillLevel、step、lessonTitle、module，event 写入 lastEvent
// @Tags 学习助手
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateContextRequest true "上下文字段"
// @Success 200 {object} util.Response{data=model.ChatContext} "成功"
// @Failure 400 {object} util.Response "包含不允许的字段"
// @Router /api/chatbot/context/update [post]
func (c *ChatbotController) UpdateContext(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	req, err := decodeContextRequest(ctx.Request.Body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc, err := c.ChatService.UpdateContext(ctx.Request.Context(), userID, req.Event, req.ContextPatch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, cc)
}

// GetContext godoc
// @Summary 当前学习助手上下文
// @Tags 学习助手
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.ChatContext} "成功"
// @Router /api/chatbot/context [get]
func (c *ChatbotController) GetContext(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	cc, err := c.ChatService.Context(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, cc)
}

// SendMessage godoc
// @Summary 向学习助手提问
// @Tags 学习助手
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SendMessageRequest true "消息"
// @Success 200 {object} util.Response{data=service.ChatReply} "成功"
// @Failure 400 {object} util.Response "消息为空"
// @Router /api/chatbot/message [post]
func (c *ChatbotController) SendMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "message is required")
		return
	}
	reply, err := c.ChatService.SendMessage(ctx.Request.Context(), userID, req.Message)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, reply)
}

// GetHistory godoc
// @Summary 对话记录
// @Description 按时间正序分页
// @Tags 学习助手
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(50)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/chatbot/history [get]
func (c *ChatbotController) GetHistory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	res, err := c.ChatService.History(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
