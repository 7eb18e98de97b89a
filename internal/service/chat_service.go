package service

import (
	"context"
	"encoding/json"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const chatSystemPrompt = `You are StudyBuddy, a friendly, supportive personal learning assistant.

You always use the learner's saved context to answer questions. The context may include the
learner's domain, skill level, the last learning event, the current step, lesson and module.
Never ask the learner again for information that already exists in the context.
If the context contains a domain, answer based on that domain.

Your role:
- Help the learner based on their current domain, skill level and progress.
- Explain concepts simply, with examples, in a motivating and student-friendly tone.
- Do not give wrong information.
- If the learner asks for test answers, politely decline and guide them to learn instead.`

const maxChatMessageLength = 4000

// ContextPatch 允许更新的上下文字段，nil 表示不修改
type ContextPatch struct {
	Domain      *string `json:"domain"`
	SkillLevel  *string `json:"skillLevel"`
	Step        *string `json:"step"`
	LessonTitle *string `json:"lessonTitle"`
	Module      *string `json:"module"`
}

// ApplyContextPatch 逐字段更新，事件名总是覆盖 lastEvent
func ApplyContextPatch(m model.ChatMemory, event string, patch ContextPatch) model.ChatMemory {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&m.Domain, patch.Domain)
	set(&m.SkillLevel, patch.SkillLevel)
	set(&m.Step, patch.Step)
	set(&m.LessonTitle, patch.LessonTitle)
	set(&m.Module, patch.Module)
	if event = strings.TrimSpace(event); event != "" {
		m.LastEvent = event
	}
	return m
}

type ChatReply struct {
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatService struct {
	Store        repository.ChatStore
	AI           *AIService
	HistoryLimit int
}

func NewChatService(store repository.ChatStore, ai *AIService, historyLimit int) *ChatService {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &ChatService{
		Store:        store,
		AI:           ai,
		HistoryLimit: historyLimit,
	}
}

// UpdateContext 版本冲突时基于最新上下文重试一次；写入失败只记日志，返回合并后的上下文，Version 保持旧值
func (s *ChatService) UpdateContext(ctx context.Context, userID uint, event string, patch ContextPatch) (*model.ChatContext, error) {
	var (
		cc  *model.ChatContext
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		cc, err = s.Store.GetContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		memory := ApplyContextPatch(cc.Memory.Data(), event, patch)
		cc.Memory = datatypes.NewJSONType(memory)

		var version int
		version, err = s.Store.SaveContext(ctx, userID, memory, cc.Version)
		if err == nil {
			cc.Version = version
			return cc, nil
		}
		if !errors.Is(err, util.ErrStaleChatContext) {
			break
		}
	}
	logger.Log.Warn("Failed to persist chat context", zap.Uint("userID", userID), zap.Error(err))
	return cc, nil
}

func (s *ChatService) Context(ctx context.Context, userID uint) (*model.ChatContext, error) {
	return s.Store.GetContext(ctx, userID)
}

// SendMessage 先记录用户消息，再附带上下文与最近的对话请求模型
func (s *ChatService) SendMessage(ctx context.Context, userID uint, text string) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", util.ErrInvalidInput)
	}
	if len([]rune(text)) > maxChatMessageLength {
		return nil, fmt.Errorf("%w: message is too long", util.ErrInvalidInput)
	}

	err := s.Store.AppendMessages(ctx, userID, model.ChatMessage{
		Sender:    model.ChatSenderUser,
		Text:      text,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	cc, err := s.Store.GetContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.Store.Recent(ctx, userID, s.HistoryLimit)
	if err != nil {
		return nil, err
	}

	reply, err := s.AI.Chat(ctx, BuildChatMessages(cc.Memory.Data(), history))
	if err != nil {
		logger.Log.Error("Chat completion failed", zap.Uint("userID", userID), zap.Error(err))
		return nil, err
	}

	now := time.Now()
	err = s.Store.AppendMessages(ctx, userID, model.ChatMessage{
		Sender:    model.ChatSenderAssistant,
		Text:      reply,
		Timestamp: now,
	})
	if err != nil {
		logger.Log.Warn("Failed to store assistant reply", zap.Uint("userID", userID), zap.Error(err))
	}
	return &ChatReply{Reply: reply, Timestamp: now}, nil
}

// BuildChatMessages 系统提示词、学习者上下文、按时间排列的历史消息
func BuildChatMessages(memory model.ChatMemory, history []model.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	if encoded, err := json.Marshal(memory); err == nil && string(encoded) != "{}" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: "Learner context: " + string(encoded)})
	}
	for _, m := range history {
		role := llm.RoleAssistant
		if m.Sender == model.ChatSenderUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Text})
	}
	return messages
}

func (s *ChatService) History(ctx context.Context, userID uint, page, pageSize int) (*util.PageResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	msgs, total, err := s.Store.History(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return &util.PageResponse{
		List:  msgs,
		Total: total,
		Page:  page,
		Limit: pageSize,
	}, nil
}
