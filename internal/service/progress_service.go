package service

import (
	"context"
	"enliven_backend/internal/event"
	"enliven_backend/internal/learning"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/logger"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ProgressSaveWarning 进度写入失败时返回给前端的提示，本次会话状态不回滚
const ProgressSaveWarning = "Progress could not be saved. Your session will continue, but recent progress may be lost."

const firstModuleBadgeID = "first-module"

type SaveProgressInput struct {
	CourseID         string                 `json:"courseId" binding:"required"`
	TopicID          int                    `json:"topicId" binding:"required"`
	VideoProgress    model.VideoProgress    `json:"videoProgress"`
	ResourceProgress model.ResourceProgress `json:"resourceProgress"`
	CurrentIndex     int                    `json:"currentIndex"`
}

type AssessmentInput struct {
	Domain   string            `json:"domain" binding:"required"`
	Level    string            `json:"level" binding:"required"`
	Kind     model.AttemptKind `json:"kind" binding:"required"`
	ModuleID int               `json:"moduleId"`
	Score    int               `json:"score"`
	Total    int               `json:"total"`
}

type LessonCompletion struct {
	learning.Transition
	State   learning.CourseState `json:"state"`
	Warning string               `json:"warning,omitempty"`
}

type AssessmentOutcome struct {
	Kind       model.AttemptKind `json:"kind"`
	ModuleID   int               `json:"moduleId,omitempty"`
	Percentage int               `json:"percentage"`
	Passed     bool              `json:"passed"`
	Threshold  int               `json:"threshold"`
	Unlocked   *learning.Lesson  `json:"unlocked,omitempty"`
	Badge      *AwardResult      `json:"badge,omitempty"`
	Warning    string            `json:"warning,omitempty"`
}

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	Courses      *CourseService
	Badges       *BadgeService
	Events       event.Publisher
	Policy       *PolicyHolder
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	courses *CourseService,
	badges *BadgeService,
	events event.Publisher,
	policy *PolicyHolder,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		Courses:      courses,
		Badges:       badges,
		Events:       events,
		Policy:       policy,
	}
}

// loadCourse 合并课程并用已保存的进度重建状态机
func (s *ProgressService) loadCourse(ctx context.Context, userID uint, domain, level string) (*learning.Course, *model.CourseProgress, error) {
	merged, err := s.Courses.Merged(ctx, userID, domain, level)
	if err != nil {
		return nil, nil, err
	}
	progress, err := s.ProgressRepo.FindOrNew(ctx, userID, merged.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return learning.NewCourse(merged.CourseID, merged.Items, progress), progress, nil
}

// checkEligible 模块测验要求该模块视频全部完成，期末考试要求所有模块完成
func checkEligible(course *learning.Course, kind model.AttemptKind, moduleID int) error {
	switch kind {
	case model.AttemptModuleTest:
		if !course.SectionCompleted(moduleID) {
			return fmt.Errorf("%w: finish every video of module %d first", util.ErrNotEligible, moduleID)
		}
	case model.AttemptFinalExam:
		if !course.AllModulesCompleted() {
			return fmt.Errorf("%w: finish every module first", util.ErrNotEligible)
		}
	}
	return nil
}

// EnsureEligible 开始测验前按服务端保存的进度校验资格
func (s *ProgressService) EnsureEligible(ctx context.Context, userID uint, domain, level string, kind model.AttemptKind, moduleID int) error {
	course, _, err := s.loadCourse(ctx, userID, domain, level)
	if err != nil {
		return err
	}
	return checkEligible(course, kind, moduleID)
}

func (s *ProgressService) CourseState(ctx context.Context, userID uint, domain, level string) (*learning.CourseState, error) {
	course, _, err := s.loadCourse(ctx, userID, domain, level)
	if err != nil {
		return nil, err
	}
	state := course.State()
	return &state, nil
}

// CompleteLesson 完成当前课时并持久化所在模块的进度，写入失败只返回 warning
func (s *ProgressService) CompleteLesson(ctx context.Context, userID uint, domain, level, lessonID string) (*LessonCompletion, error) {
	course, progress, err := s.loadCourse(ctx, userID, domain, level)
	if err != nil {
		return nil, err
	}
	t, err := course.Complete(lessonID)
	if err != nil {
		return nil, err
	}

	res := &LessonCompletion{Transition: t}
	if !t.AlreadyCompleted {
		topic := t.Topic
		res.Warning = s.update(ctx, progress, func(p *model.CourseProgress) {
			existing, _ := p.Topic(topic.TopicID)
			p.SetTopic(learning.MergeTopicProgress(existing, topic))
		})
		event.PublishQuietly(ctx, s.Events, event.NewLessonCompletedEvent(userID, course.ID, lessonID))
	}
	res.State = course.State()
	return res, nil
}

// SaveTopic 原始的按主题保存：视频完成标记逐项合并
func (s *ProgressService) SaveTopic(ctx context.Context, userID uint, in SaveProgressInput) (*model.CourseProgress, string, error) {
	incoming := model.TopicProgress{
		TopicID:          in.TopicID,
		VideoProgress:    in.VideoProgress,
		ResourceProgress: in.ResourceProgress,
		CurrentIndex:     in.CurrentIndex,
	}
	if incoming.VideoProgress == nil {
		incoming.VideoProgress = model.VideoProgress{}
	}
	if err := learning.ValidateTopicProgress(incoming); err != nil {
		return nil, "", fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}

	progress, err := s.ProgressRepo.FindOrNew(ctx, userID, in.CourseID)
	if err != nil {
		return nil, "", err
	}
	warning := s.update(ctx, progress, func(p *model.CourseProgress) {
		existing, _ := p.Topic(incoming.TopicID)
		p.SetTopic(learning.MergeTopicProgress(existing, incoming))
	})
	return progress, warning, nil
}

// Progress 没有记录时返回空进度
func (s *ProgressService) Progress(ctx context.Context, userID uint, courseID string) (*model.CourseProgress, error) {
	return s.ProgressRepo.FindOrNew(ctx, userID, courseID)
}

// RecordAssessment 校验资格后，达到阈值时单向记录模块测验或期末考试通过，期末通过授予结课徽章
func (s *ProgressService) RecordAssessment(ctx context.Context, userID uint, in AssessmentInput) (*AssessmentOutcome, error) {
	if in.Kind != model.AttemptModuleTest && in.Kind != model.AttemptFinalExam {
		return nil, fmt.Errorf("%w: kind must be module or final", util.ErrInvalidInput)
	}
	if in.Kind == model.AttemptModuleTest && in.ModuleID <= 0 {
		return nil, fmt.Errorf("%w: moduleId is required for module tests", util.ErrInvalidInput)
	}
	if in.Total <= 0 || in.Score < 0 || in.Score > in.Total {
		return nil, fmt.Errorf("%w: score must be between 0 and total", util.ErrInvalidInput)
	}

	course, progress, err := s.loadCourse(ctx, userID, in.Domain, in.Level)
	if err != nil {
		return nil, err
	}
	if err := checkEligible(course, in.Kind, in.ModuleID); err != nil {
		return nil, err
	}
	courseID := course.ID

	threshold := s.Policy.Load().PassThreshold
	pct, passed := learning.Passed(in.Score, in.Total, threshold)
	out := &AssessmentOutcome{
		Kind:       in.Kind,
		ModuleID:   in.ModuleID,
		Percentage: pct,
		Passed:     passed,
		Threshold:  threshold,
	}
	if !passed {
		return out, nil
	}

	if in.Kind == model.AttemptModuleTest {
		firstPass := len(passedModules(progress)) == 0
		out.Warning = s.update(ctx, progress, func(p *model.CourseProgress) {
			p.MarkModuleTest(in.ModuleID)
		})
		out.Unlocked = course.RecordModuleTest(in.ModuleID)
		event.PublishQuietly(ctx, s.Events, event.NewModuleTestPassedEvent(userID, courseID, in.ModuleID, pct))
		if firstPass {
			s.Badges.AwardQuietly(ctx, userID, firstModuleBadgeID)
		}
		return out, nil
	}

	out.Warning = s.update(ctx, progress, func(p *model.CourseProgress) {
		p.FinalExamCompleted = true
		if pct > p.FinalExamScore {
			p.FinalExamScore = pct
		}
	})
	course.RecordFinalExam()
	event.PublishQuietly(ctx, s.Events, event.NewFinalExamPassedEvent(userID, courseID, pct))
	badge, err := s.Badges.AwardBadge(ctx, userID, model.CourseCompletionBadgeID)
	if err != nil {
		logger.Log.Warn("Failed to award course completion badge", zap.Uint("userID", userID), zap.Error(err))
	}
	out.Badge = badge
	return out, nil
}

func passedModules(p *model.CourseProgress) []int {
	var ids []int
	for id, done := range p.ModuleTests.Data() {
		if done {
			ids = append(ids, id)
		}
	}
	return ids
}

// update 整文档读改写：版本冲突时重新读取并再应用一次 mutate，仍失败则返回 warning
func (s *ProgressService) update(ctx context.Context, progress *model.CourseProgress, mutate func(*model.CourseProgress)) string {
	mutate(progress)
	err := s.ProgressRepo.Save(ctx, progress)
	if errors.Is(err, util.ErrStaleProgress) {
		fresh, findErr := s.ProgressRepo.Find(ctx, progress.UserID, progress.CourseID)
		if findErr == nil {
			mutate(fresh)
			if err = s.ProgressRepo.Save(ctx, fresh); err == nil {
				*progress = *fresh
			}
		} else {
			err = findErr
		}
	}
	if err != nil {
		logger.Log.Warn("Failed to persist progress",
			zap.Uint("userID", progress.UserID),
			zap.String("courseID", progress.CourseID),
			zap.Error(err))
		return ProgressSaveWarning
	}
	return ""
}
