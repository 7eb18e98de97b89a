package repository

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) FindBadge(ctx context.Context, badgeID string) (*model.Badge, error) {
	var badge model.Badge
	err := r.DB.WithContext(ctx).Where("id = ?", badgeID).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrBadgeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *BadgeRepository) ListBadges(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.WithContext(ctx).Order("id").Find(&badges).Error
	return badges, err
}

// SeedDefaults 已存在的徽章保持不变
func (r *BadgeRepository) SeedDefaults(ctx context.Context) error {
	badges := model.DefaultBadges()
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&badges).Error
}

func (r *BadgeRepository) FindUserBadge(ctx context.Context, userID uint, badgeID string) (*model.UserBadge, error) {
	var ub model.UserBadge
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		First(&ub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ub, nil
}

// Award 重复授予不报错，返回是否为新授予
func (r *BadgeRepository) Award(ctx context.Context, ub *model.UserBadge) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BadgeRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error
	return badges, err
}
