package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptKind string

const (
	AttemptModuleTest AttemptKind = "module"
	AttemptFinalExam  AttemptKind = "final"
)

// Question 生成的单选题，Options 固定 4 项
type Question struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
	Difficulty   int      `json:"difficulty"`
}

// PublicQuestion 下发给学习者的题目，不含答案
type PublicQuestion struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Difficulty int      `json:"difficulty"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Question: q.Question, Options: q.Options, Difficulty: q.Difficulty}
}

// ProctorAttempt 一次监考测验，题目在服务端保存并在提交时评分
type ProctorAttempt struct {
	UUIDBase
	UserID      uint                            `gorm:"index;not null" json:"userId"`
	CourseID    string                          `gorm:"size:191;index" json:"courseId"`
	Domain      string                          `gorm:"size:100" json:"domain"`
	Level       string                          `gorm:"size:50" json:"level"`
	Kind        AttemptKind                     `gorm:"size:16;not null" json:"kind"`
	ModuleID    int                             `json:"moduleId"`
	Questions   datatypes.JSONType[[]Question] `json:"-"`
	Answers     datatypes.JSONType[[]int]      `json:"answers"`
	Score       int                             `json:"score"`
	Total       int                             `json:"total"`
	Percentage  int                             `json:"percentage"`
	Passed      bool                            `json:"passed"`
	Violations  int                             `json:"violations"`
	Flagged     bool                            `json:"flagged"`
	Reason      string                          `gorm:"size:255" json:"reason"`
	VideoURL    string                          `gorm:"size:255" json:"videoUrl,omitempty"`
	StartedAt   time.Time                       `json:"startedAt"`
	SubmittedAt *time.Time                      `json:"submittedAt,omitempty"`
}

func (ProctorAttempt) TableName() string {
	return "proctor_attempts"
}
