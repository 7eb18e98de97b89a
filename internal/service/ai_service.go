package service

import (
	"context"
	"enliven_backend/internal/config"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/monitoring"
	"enliven_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Completer 对话补全客户端，pkg/llm.Client 实现了该接口
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Enabled() bool
}

// AIService 所有模型调用的统一入口，负责埋点与模型选择
type AIService struct {
	client    Completer
	model     string
	chatModel string
}

func NewAIService(client Completer, cfg config.AIConfig) *AIService {
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = cfg.Model
	}
	return &AIService{
		client:    client,
		model:     cfg.Model,
		chatModel: chatModel,
	}
}

func (s *AIService) Enabled() bool {
	return s != nil && s.client != nil && s.client.Enabled()
}

// Complete operation 用作指标与 span 的标签
func (s *AIService) Complete(ctx context.Context, operation string, req llm.Request) (string, error) {
	if !s.Enabled() {
		monitoring.ObserveLLM(operation, llm.ErrMissingAPIKey, 0)
		return "", llm.ErrMissingAPIKey
	}
	if req.Model == "" {
		req.Model = s.model
	}

	ctx, span := tracing.StartSpan(ctx, "llm."+operation,
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)
	start := time.Now()
	out, err := s.client.Complete(ctx, req)
	monitoring.ObserveLLM(operation, err, time.Since(start))
	tracing.EndSpan(span, err)
	return out, err
}

// Chat 学习助手使用更大的对话模型
func (s *AIService) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return s.Complete(ctx, "chat", llm.Request{
		Model:       s.chatModel,
		Messages:    messages,
		Temperature: 0.7,
	})
}
