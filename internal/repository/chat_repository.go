package repository

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatStore 学习助手的上下文与对话记录，SQL 与 MongoDB 各有一个实现
type ChatStore interface {
	// GetContext 不存在时返回 Version 为 0 的空上下文
	GetContext(ctx context.Context, userID uint) (*model.ChatContext, error)
	// SaveContext 以 version 做乐观锁，返回新版本号
	SaveContext(ctx context.Context, userID uint, memory model.ChatMemory, version int) (int, error)
	AppendMessages(ctx context.Context, userID uint, msgs ...model.ChatMessage) error
	// Recent 按时间正序返回最近 limit 条
	Recent(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error)
	History(ctx context.Context, userID uint, page, pageSize int) ([]model.ChatMessage, int64, error)
}

type ChatContextRepository struct {
	DB *gorm.DB
}

func NewChatContextRepository(db *gorm.DB) *ChatContextRepository {
	return &ChatContextRepository{DB: db}
}

func (r *ChatContextRepository) GetContext(ctx context.Context, userID uint) (*model.ChatContext, error) {
	var cc model.ChatContext
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&cc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.ChatContext{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

func (r *ChatContextRepository) SaveContext(ctx context.Context, userID uint, memory model.ChatMemory, version int) (int, error) {
	db := r.DB.WithContext(ctx)
	if version == 0 {
		cc := model.ChatContext{UserID: userID, Memory: datatypes.NewJSONType(memory), Version: 1}
		if err := db.Create(&cc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, util.ErrStaleChatContext
			}
			return 0, err
		}
		return 1, nil
	}

	res := db.Model(&model.ChatContext{}).
		Where("user_id = ? AND version = ?", userID, version).
		Updates(map[string]interface{}{
			"memory":  datatypes.NewJSONType(memory),
			"version": version + 1,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, util.ErrStaleChatContext
	}
	return version + 1, nil
}

func (r *ChatContextRepository) AppendMessages(ctx context.Context, userID uint, msgs ...model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]model.ChatMessage, len(msgs))
	for i, m := range msgs {
		m.ID = 0
		m.UserID = userID
		rows[i] = m
	}
	return r.DB.WithContext(ctx).Create(&rows).Error
}

func (r *ChatContextRepository) Recent(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *ChatContextRepository) History(ctx context.Context, userID uint, page, pageSize int) ([]model.ChatMessage, int64, error) {
	var total int64
	db := r.DB.WithContext(ctx).Model(&model.ChatMessage{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []model.ChatMessage
	err := db.Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&msgs).Error
	return msgs, total, err
}
