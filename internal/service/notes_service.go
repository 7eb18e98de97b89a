package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/logger"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const notesCacheTTL = 24 * time.Hour

const notesPrompt = `Generate clean and structured study notes for the video:

Title: "%s"
%s
Rules:
- Write clean, structured notes in simple Markdown
- Use bullet points, numbered lists, and section headings
- Keep the notes beginner-friendly and easy to understand
- Use only info logically related to the video title (and URL if provided)
- Do not mention anything about watching or not watching the video
- Avoid unnecessary decoration, emojis, or filler phrases
- Notes must be concise and focused on key concepts
- Return only Markdown-formatted plain text (no JSON, no extra explanations)`

type NotesResult struct {
	Notes  string `json:"notes"`
	Cached bool   `json:"cached"`
}

type NotesService struct {
	AI    *AIService
	Redis *redis.Client
}

// NewNotesService rdb 为 nil 时不缓存
func NewNotesService(ai *AIService, rdb *redis.Client) *NotesService {
	return &NotesService{AI: ai, Redis: rdb}
}

func notesCacheKey(title, url string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(title)) + "\n" + strings.TrimSpace(url)))
	return "notes:" + hex.EncodeToString(sum[:])
}

func (s *NotesService) Generate(ctx context.Context, title, url string) (*NotesResult, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" {
		return nil, fmt.Errorf("%w: videoTitle required", util.ErrInvalidInput)
	}

	key := notesCacheKey(title, url)
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, key).Result()
		switch {
		case err == nil && cached != "":
			return &NotesResult{Notes: cached, Cached: true}, nil
		case err != nil && err != redis.Nil:
			logger.Log.Warn("Notes cache read failed", zap.Error(err))
		}
	}

	urlLine := ""
	if url != "" {
		urlLine = fmt.Sprintf("Video URL: %s\n", url)
	}
	notes, err := s.AI.Complete(ctx, "notes", llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(notesPrompt, title, urlLine)}},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, key, notes, notesCacheTTL).Err(); err != nil {
			logger.Log.Warn("Notes cache write failed", zap.Error(err))
		}
	}
	return &NotesResult{Notes: notes}, nil
}
