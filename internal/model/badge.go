package model

import "time"

const CourseCompletionBadgeID = "course-completion"

// Badge 徽章定义
type Badge struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:255" json:"icon"`
	CreatedAt   time.Time `json:"-"`
}

func (Badge) TableName() string {
	return "badges"
}

// UserBadge 以 (user_id, badge_id) 为联合主键，保证同一徽章只授予一次
type UserBadge struct {
	UserID      uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	BadgeID     string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:100" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:255" json:"icon"`
	AwardedAt   time.Time `json:"awardedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}

// DefaultBadges 初始化时写入的徽章目录
func DefaultBadges() []Badge {
	return []Badge{
		{ID: CourseCompletionBadgeID, Name: "Course Completion", Description: "Awarded for completing the final assessment.", Icon: "/course-completed.png"},
		{ID: "first-module", Name: "First Module", Description: "Awarded for passing your first module test.", Icon: "/first-module.png"},
		{ID: "roadmap-created", Name: "Pathfinder", Description: "Awarded for generating your first learning roadmap.", Icon: "/roadmap-created.png"},
	}
}
