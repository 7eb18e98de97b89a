package event

import (
	"context"
	"errors"
	"testing"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewEventPublisher("", "enliven.events")
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}
	if p.Enabled() {
		t.Fatal("publisher without URI should be disabled")
	}
	if err := p.Publish(context.Background(), NewBadgeAwardedEvent(1, "course-completion")); err != nil {
		t.Fatalf("disabled publish returned %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublishQuietlySwallowsErrors(t *testing.T) {
	f := &failingPublisher{}
	PublishQuietly(context.Background(), f, NewLessonCompletedEvent(2, "web-development-beginner", "1-V0"))
	PublishQuietly(context.Background(), nil, NewLessonCompletedEvent(2, "web-development-beginner", "1-V0"))
	if f.calls != 1 {
		t.Fatalf("expected one publish attempt, got %d", f.calls)
	}
}

func TestEventConstructors(t *testing.T) {
	e := NewModuleTestPassedEvent(3, "web-development-beginner", 2, 80)
	if e.Type != EventTypeModuleTestPassed || e.UserID != 3 || e.ID == "" {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.Data["moduleId"] != 2 || e.Data["percentage"] != 80 {
		t.Fatalf("unexpected data %+v", e.Data)
	}
}
