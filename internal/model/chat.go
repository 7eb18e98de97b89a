package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChatSenderUser      = "user"
	ChatSenderAssistant = "assistant"
)

// ChatMemory 学习助手的上下文，只允许这些字段
type ChatMemory struct {
	Domain      string `json:"domain,omitempty" bson:"domain,omitempty"`
	SkillLevel  string `json:"skillLevel,omitempty" bson:"skillLevel,omitempty"`
	LastEvent   string `json:"lastEvent,omitempty" bson:"lastEvent,omitempty"`
	Step        string `json:"step,omitempty" bson:"step,omitempty"`
	LessonTitle string `json:"lessonTitle,omitempty" bson:"lessonTitle,omitempty"`
	Module      string `json:"module,omitempty" bson:"module,omitempty"`
}

type ChatContext struct {
	BaseModel
	UserID  uint                           `gorm:"uniqueIndex;not null" json:"userId"`
	Memory  datatypes.JSONType[ChatMemory] `json:"context"`
	Version int                            `gorm:"not null;default:0" json:"version"`
}

func (ChatContext) TableName() string {
	return "chat_contexts"
}

// ChatMessage 对话记录只追加不修改
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-" bson:"-"`
	UserID    uint      `gorm:"index;not null" json:"-" bson:"-"`
	Sender    string    `gorm:"size:16;not null" json:"sender" bson:"sender"`
	Text      string    `gorm:"type:text" json:"text" bson:"text"`
	Timestamp time.Time `gorm:"index" json:"timestamp" bson:"timestamp"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
