package service

import (
	"context"
	"enliven_backend/internal/event"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
)

type AwardResult struct {
	Badge          model.UserBadge `json:"badge"`
	AlreadyAwarded bool            `json:"alreadyAwarded"`
}

type BadgeService struct {
	BadgeRepo *repository.BadgeRepository
	Events    event.Publisher
}

func NewBadgeService(badgeRepo *repository.BadgeRepository, events event.Publisher) *BadgeService {
	return &BadgeService{
		BadgeRepo: badgeRepo,
		Events:    events,
	}
}

// AwardBadge 幂等授予，徽章不存在时返回 util.ErrBadgeNotFound
func (s *BadgeService) AwardBadge(ctx context.Context, userID uint, badgeID string) (*AwardResult, error) {
	existing, err := s.BadgeRepo.FindUserBadge(ctx, userID, badgeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &AwardResult{Badge: *existing, AlreadyAwarded: true}, nil
	}

	badge, err := s.BadgeRepo.FindBadge(ctx, badgeID)
	if err != nil {
		return nil, err
	}

	ub := model.UserBadge{
		UserID:      userID,
		BadgeID:     badge.ID,
		Name:        badge.Name,
		Description: badge.Description,
		Icon:        badge.Icon,
		AwardedAt:   time.Now(),
	}
	created, err := s.BadgeRepo.Award(ctx, &ub)
	if err != nil {
		return nil, err
	}
	if !created {
		// 并发请求已先写入
		if winner, err := s.BadgeRepo.FindUserBadge(ctx, userID, badgeID); err == nil && winner != nil {
			ub = *winner
		}
		return &AwardResult{Badge: ub, AlreadyAwarded: true}, nil
	}

	logger.Log.Info("Badge awarded", zap.Uint("userID", userID), zap.String("badgeID", badgeID))
	event.PublishQuietly(ctx, s.Events, event.NewBadgeAwardedEvent(userID, badgeID))
	return &AwardResult{Badge: ub}, nil
}

// AwardQuietly 用于附带授予的场景，失败只记录日志
func (s *BadgeService) AwardQuietly(ctx context.Context, userID uint, badgeID string) *AwardResult {
	res, err := s.AwardBadge(ctx, userID, badgeID)
	if err != nil {
		logger.Log.Warn("Failed to award badge", zap.Uint("userID", userID), zap.String("badgeID", badgeID), zap.Error(err))
		return nil
	}
	return res
}

// Catalog 所有可获得的徽章定义
func (s *BadgeService) Catalog(ctx context.Context) ([]model.Badge, error) {
	badges, err := s.BadgeRepo.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.Badge{}
	}
	return badges, nil
}

func (s *BadgeService) UserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	badges, err := s.BadgeRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.UserBadge{}
	}
	return badges, nil
}
