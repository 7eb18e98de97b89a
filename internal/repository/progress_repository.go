package repository

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Find(ctx context.Context, userID uint, courseID string) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOrNew 不存在时返回未持久化的空进度
func (r *ProgressRepository) FindOrNew(ctx context.Context, userID uint, courseID string) (*model.CourseProgress, error) {
	p, err := r.Find(ctx, userID, courseID)
	if errors.Is(err, util.ErrProgressNotFound) {
		return model.NewCourseProgress(userID, courseID), nil
	}
	return p, err
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.CourseProgress, error) {
	var list []model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

// Save 基于 version 的乐观锁，版本不一致返回 util.ErrStaleProgress
func (r *ProgressRepository) Save(ctx context.Context, p *model.CourseProgress) error {
	db := r.DB.WithContext(ctx)
	if p.ID == 0 {
		p.Version = 1
		err := db.Create(p).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			p.Version = 0
			return util.ErrStaleProgress
		}
		return err
	}

	res := db.Model(&model.CourseProgress{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"topics":               p.Topics,
			"module_tests":         p.ModuleTests,
			"final_exam_completed": p.FinalExamCompleted,
			"final_exam_score":     p.FinalExamScore,
			"version":              p.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrStaleProgress
	}
	p.Version++
	return nil
}
