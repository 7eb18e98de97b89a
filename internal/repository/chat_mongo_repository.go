package repository

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/datatypes"
)

// chatDocument 每个用户一份文档，对话记录内嵌并只追加
type chatDocument struct {
	UserID    uint                `bson:"_id"`
	Context   model.ChatMemory    `bson:"context"`
	Version   int                 `bson:"version"`
	Messages  []model.ChatMessage `bson:"messages"`
	CreatedAt time.Time           `bson:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt"`
}

type MongoChatContextRepository struct {
	collection *mongo.Collection
}

func NewMongoChatContextRepository(db *mongo.Database) *MongoChatContextRepository {
	return &MongoChatContextRepository{collection: db.Collection("chat_contexts")}
}

func (r *MongoChatContextRepository) GetContext(ctx context.Context, userID uint) (*model.ChatContext, error) {
	var doc chatDocument
	opts := options.FindOne().SetProjection(bson.M{"messages": 0})
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &model.ChatContext{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return toChatContext(&doc), nil
}

func (r *MongoChatContextRepository) SaveContext(ctx context.Context, userID uint, memory model.ChatMemory, version int) (int, error) {
	now := time.Now()
	if version == 0 {
		_, err := r.collection.InsertOne(ctx, chatDocument{
			UserID:    userID,
			Context:   memory,
			Version:   1,
			Messages:  []model.ChatMessage{},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if mongo.IsDuplicateKeyError(err) {
			// 对话记录可能先于上下文创建了文档
			return r.updateContext(ctx, userID, memory, 0, now)
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	}
	return r.updateContext(ctx, userID, memory, version, now)
}

func (r *MongoChatContextRepository) updateContext(ctx context.Context, userID uint, memory model.ChatMemory, version int, now time.Time) (int, error) {
	filter := bson.M{"_id": userID, "version": version}
	if version == 0 {
		filter = bson.M{"_id": userID, "$or": bson.A{bson.M{"version": 0}, bson.M{"version": bson.M{"$exists": false}}}}
	}
	update := bson.M{
		"$set": bson.M{"context": memory, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"version": 1})

	var doc chatDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, util.ErrStaleChatContext
	}
	if err != nil {
		return 0, err
	}
	return doc.Version, nil
}

func (r *MongoChatContextRepository) AppendMessages(ctx context.Context, userID uint, msgs ...model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now()
	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": msgs}},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now, "version": 0, "context": model.ChatMemory{}},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *MongoChatContextRepository) Recent(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	opts := options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": -limit}})
	var doc chatDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Messages, nil
}

func (r *MongoChatContextRepository) History(ctx context.Context, userID uint, page, pageSize int) ([]model.ChatMessage, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$project", Value: bson.M{
			"total":    bson.M{"$size": bson.M{"$ifNull": bson.A{"$messages", bson.A{}}}},
			"messages": bson.M{"$slice": bson.A{bson.M{"$ifNull": bson.A{"$messages", bson.A{}}}, (page - 1) * pageSize, pageSize}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total    int64               `bson:"total"`
		Messages []model.ChatMessage `bson:"messages"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []model.ChatMessage{}, 0, nil
	}
	return rows[0].Messages, rows[0].Total, nil
}

func toChatContext(doc *chatDocument) *model.ChatContext {
	cc := &model.ChatContext{UserID: doc.UserID, Version: doc.Version}
	cc.Memory = datatypes.NewJSONType(doc.Context)
	cc.CreatedAt = doc.CreatedAt
	cc.UpdatedAt = doc.UpdatedAt
	return cc
}
