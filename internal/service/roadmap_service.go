package service

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/event"
	"enliven_backend/internal/learning"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/logger"
	"enliven_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const roadmapBadgeID = "roadmap-created"

type RoadmapService struct {
	RoadmapRepo *repository.RoadmapRepository
	Catalog     *catalog.Catalog
	AI          *AIService
	Badges      *BadgeService
	Events      event.Publisher
	Policy      *PolicyHolder
}

func NewRoadmapService(
	roadmapRepo *repository.RoadmapRepository,
	cat *catalog.Catalog,
	ai *AIService,
	badges *BadgeService,
	events event.Publisher,
	policy *PolicyHolder,
) *RoadmapService {
	return &RoadmapService{
		RoadmapRepo: roadmapRepo,
		Catalog:     cat,
		AI:          ai,
		Badges:      badges,
		Events:      events,
		Policy:      policy,
	}
}

// Generate 生成并覆盖学习者的路线图。目录不存在时返回 util.ErrCatalogNotFound，
// 模型失败或输出不可用时使用确定性的兜底路线图。
func (s *RoadmapService) Generate(ctx context.Context, userID uint, domain, level string) (*model.Roadmap, error) {
	content, err := s.Catalog.Load(ctx, domain, level)
	if err != nil {
		return nil, err
	}
	titles := content.Titles()

	topics, source := s.assemble(ctx, userID, domain, level, titles)
	roadmap := &model.Roadmap{
		UserID:     userID,
		Domain:     content.Domain,
		SkillLevel: content.Level,
		Topics:     datatypes.NewJSONType(topics),
		Source:     source,
	}
	if err := s.RoadmapRepo.Upsert(ctx, roadmap); err != nil {
		return nil, err
	}

	saved, err := s.RoadmapRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	event.PublishQuietly(ctx, s.Events, event.NewRoadmapGeneratedEvent(userID, saved.Domain, saved.SkillLevel, source, len(topics)))
	if s.Badges != nil {
		s.Badges.AwardQuietly(ctx, userID, roadmapBadgeID)
	}
	return saved, nil
}

func (s *RoadmapService) assemble(ctx context.Context, userID uint, domain, level string, titles []string) ([]model.RoadmapTopic, string) {
	raw, err := s.AI.Complete(ctx, "roadmap", llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: learning.RoadmapPrompt(domain, level, titles)}},
		Temperature: 0.2,
	})
	if err == nil {
		topics, assembleErr := learning.AssembleRoadmap(raw, titles)
		if assembleErr == nil {
			return topics, model.RoadmapSourceLLM
		}
		err = assembleErr
		logger.Log.Warn("Unusable roadmap output",
			zap.Uint("userID", userID),
			zap.String("raw", llm.SummarizeSnippet(raw)))
	}

	logger.Log.Warn("Roadmap generation fell back to catalog order",
		zap.Uint("userID", userID),
		zap.String("domain", domain),
		zap.String("level", level),
		zap.Error(err))
	monitoring.RoadmapFallbackCounter.Inc()
	return learning.FallbackRoadmap(titles, s.Policy.Load().RoadmapFallbackSize), model.RoadmapSourceFallback
}

func (s *RoadmapService) MyRoadmap(ctx context.Context, userID uint) (*model.Roadmap, error) {
	return s.RoadmapRepo.FindByUserID(ctx, userID)
}
