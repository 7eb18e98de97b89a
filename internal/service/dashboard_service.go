package service

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"errors"
)

type RoadmapSummary struct {
	Domain     string `json:"domain"`
	SkillLevel string `json:"skillLevel"`
	TopicCount int    `json:"topicCount"`
	Source     string `json:"source"`
}

type ContinueItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type Dashboard struct {
	User             *model.User       `json:"user"`
	Roadmap          *RoadmapSummary   `json:"roadmap"`
	Totals           PathTotals        `json:"totals"`
	Badges           []model.UserBadge `json:"badges"`
	ContinueLearning []ContinueItem    `json:"continueLearning"`
}

type DashboardService struct {
	UserRepo    *repository.UserRepository
	RoadmapRepo *repository.RoadmapRepository
	Path        *LearningPathService
	Badges      *BadgeService
}

func NewDashboardService(
	userRepo *repository.UserRepository,
	roadmapRepo *repository.RoadmapRepository,
	path *LearningPathService,
	badges *BadgeService,
) *DashboardService {
	return &DashboardService{
		UserRepo:    userRepo,
		RoadmapRepo: roadmapRepo,
		Path:        path,
		Badges:      badges,
	}
}

func (s *DashboardService) GetDashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{User: user}

	roadmap, err := s.RoadmapRepo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		dashboard.Roadmap = &RoadmapSummary{
			Domain:     roadmap.Domain,
			SkillLevel: roadmap.SkillLevel,
			TopicCount: len(roadmap.TopicList()),
			Source:     roadmap.Source,
		}
	case !errors.Is(err, util.ErrRoadmapNotFound):
		return nil, err
	}

	overview, err := s.Path.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	dashboard.Totals = overview.Totals

	if dashboard.Badges, err = s.Badges.UserBadges(ctx, userID); err != nil {
		return nil, err
	}

	title := user.Domain
	if title == "" {
		title = "Your Course"
	}
	item := ContinueItem{Title: title, Description: "Keep learning and finish your course!"}
	if overview.ContinuePath != nil {
		item.URL = overview.ContinuePath.URL
	}
	dashboard.ContinueLearning = []ContinueItem{item}
	return dashboard, nil
}
