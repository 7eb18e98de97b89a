package model

import "gorm.io/datatypes"

const (
	RoadmapSourceLLM      = "llm"
	RoadmapSourceFallback = "fallback"
)

// RoadmapTopic 路线图中的单个主题，Title 必须是课程目录中的标题
type RoadmapTopic struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	SequenceNumber int    `json:"sequenceNumber"`
}

// Roadmap 每个学习者只保留一份，重新生成时整体覆盖
type Roadmap struct {
	BaseModel
	UserID     uint                                `gorm:"uniqueIndex;not null" json:"userId"`
	Domain     string                              `gorm:"size:100;not null" json:"domain"`
	SkillLevel string                              `gorm:"size:50;not null" json:"skillLevel"`
	Topics     datatypes.JSONType[[]RoadmapTopic] `json:"topics"`
	Source     string                              `gorm:"size:20" json:"source"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}

func (r *Roadmap) TopicList() []RoadmapTopic {
	return r.Topics.Data()
}
