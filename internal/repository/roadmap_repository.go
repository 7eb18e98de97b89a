package repository

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

func (r *RoadmapRepository) FindByUserID(ctx context.Context, userID uint) (*model.Roadmap, error) {
	var roadmap model.Roadmap
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&roadmap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRoadmapNotFound
	}
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// Upsert 每个用户只有一份路线图，重复生成时覆盖
func (r *RoadmapRepository) Upsert(ctx context.Context, roadmap *model.Roadmap) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"domain", "skill_level", "topics", "source", "updated_at"}),
	}).Create(roadmap).Error
}
