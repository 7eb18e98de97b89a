package repository

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *model.ProctorAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

// FindForUser 只能读取自己的测验
func (r *AttemptRepository) FindForUser(ctx context.Context, id string, userID uint) (*model.ProctorAttempt, error) {
	var attempt model.ProctorAttempt
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Submit 只对未提交的测验写入结果
func (r *AttemptRepository) Submit(ctx context.Context, attempt *model.ProctorAttempt) error {
	res := r.DB.WithContext(ctx).Model(&model.ProctorAttempt{}).
		Where("id = ? AND submitted_at IS NULL", attempt.ID).
		Updates(map[string]interface{}{
			"answers":      attempt.Answers,
			"score":        attempt.Score,
			"total":        attempt.Total,
			"percentage":   attempt.Percentage,
			"passed":       attempt.Passed,
			"violations":   attempt.Violations,
			"flagged":      attempt.Flagged,
			"reason":       attempt.Reason,
			"video_url":    attempt.VideoURL,
			"submitted_at": attempt.SubmittedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptSubmitted
	}
	return nil
}

func (r *AttemptRepository) CountPassed(ctx context.Context, userID uint, kind model.AttemptKind) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.ProctorAttempt{}).
		Where("user_id = ? AND kind = ? AND passed = ?", userID, kind, true).
		Count(&n).Error
	return n, err
}

func (r *AttemptRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]model.ProctorAttempt, error) {
	var list []model.ProctorAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND submitted_at IS NOT NULL", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
