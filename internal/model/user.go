package model

import (
	"time"
)

// swagger:model User
type User struct {
	BaseModel
	Name       string     `gorm:"size:100;not null" json:"name"`
	Email      string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password   string     `gorm:"size:100;not null" json:"-"`
	Domain     string     `gorm:"size:100" json:"domain"`
	SkillLevel string     `gorm:"size:50" json:"skillLevel"`
	Bio        string     `gorm:"size:500" json:"bio"`
	Location   string     `gorm:"size:100" json:"location"`
	Avatar     string     `gorm:"size:255" json:"avatar"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}
