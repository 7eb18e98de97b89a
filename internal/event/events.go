package event

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeRoadmapGenerated EventType = "roadmap.generated"
	EventTypeLessonCompleted  EventType = "lesson.completed"
	EventTypeModuleTestPassed EventType = "module_test.passed"
	EventTypeFinalExamPassed  EventType = "final_exam.passed"
	EventTypeBadgeAwarded     EventType = "badge.awarded"
)

type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	UserID    uint           `json:"userId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func newEvent(t EventType, userID uint, data map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func NewRoadmapGeneratedEvent(userID uint, domain, level, source string, topics int) Event {
	return newEvent(EventTypeRoadmapGenerated, userID, map[string]any{
		"domain": domain,
		"level":  level,
		"source": source,
		"topics": topics,
	})
}

func NewLessonCompletedEvent(userID uint, courseID, lessonID string) Event {
	return newEvent(EventTypeLessonCompleted, userID, map[string]any{
		"courseId": courseID,
		"lessonId": lessonID,
	})
}

func NewModuleTestPassedEvent(userID uint, courseID string, moduleID, percentage int) Event {
	return newEvent(EventTypeModuleTestPassed, userID, map[string]any{
		"courseId":   courseID,
		"moduleId":   moduleID,
		"percentage": percentage,
	})
}

func NewFinalExamPassedEvent(userID uint, courseID string, percentage int) Event {
	return newEvent(EventTypeFinalExamPassed, userID, map[string]any{
		"courseId":   courseID,
		"percentage": percentage,
	})
}

func NewBadgeAwardedEvent(userID uint, badgeID string) Event {
	return newEvent(EventTypeBadgeAwarded, userID, map[string]any{
		"badgeId": badgeID,
	})
}
