package learning_test

import (
	"errors"
	"strings"
	"testing"

	"enliven_backend/internal/learning"
)

var webTitles = []string{
	"HTML Basics",
	"CSS Layout",
	"JavaScript Fundamentals",
	"DOM Manipulation",
	"Introduction to React",
	"Git Basics",
	"Deploying Websites",
}

func TestAssembleRoadmapReconcilesAndOrders(t *testing.T) {
	raw := "```json\n[" +
		`{"title":"css layout","description":"Boxes.","sequenceNumber":2},` +
		`{"title":"HTML Basics","description":"Markup.","sequenceNumber":1},` +
		`{"title":"React Hooks","description":"Hooks.","sequenceNumber":3},` +
		`{"title":"Quantum Computing","description":"Nope.","sequenceNumber":4}` +
		"]\n```"

	topics, err := learning.AssembleRoadmap(raw, webTitles)
	if err != nil {
		t.Fatalf("AssembleRoadmap returned error: %v", err)
	}
	want := []string{"HTML Basics", "CSS Layout", "Introduction to React"}
	if len(topics) != len(want) {
		t.Fatalf("expected %d topics, got %+v", len(want), topics)
	}
	for i, topic := range topics {
		if topic.Title != want[i] {
			t.Errorf("topic %d title = %q, want %q", i, topic.Title, want[i])
		}
		if topic.SequenceNumber != i+1 {
			t.Errorf("topic %d sequence = %d, want %d", i, topic.SequenceNumber, i+1)
		}
	}
}

func TestAssembleRoadmapDeduplicatesFirstOccurrence(t *testing.T) {
	raw := `[{"title":"Git Basics","description":"first"},{"title":"git basics","description":"second"}]`
	topics, err := learning.AssembleRoadmap(raw, webTitles)
	if err != nil {
		t.Fatalf("AssembleRoadmap returned error: %v", err)
	}
	if len(topics) != 1 || topics[0].Description != "first" {
		t.Fatalf("expected single first occurrence, got %+v", topics)
	}
}

func TestAssembleRoadmapUsesPositionWhenSequenceMissing(t *testing.T) {
	raw := `[{"title":"DOM Manipulation"},{"title":"HTML Basics","sequenceNumber":"0"}]`
	topics, err := learning.AssembleRoadmap(raw, webTitles)
	if err != nil {
		t.Fatalf("AssembleRoadmap returned error: %v", err)
	}
	if topics[0].Title != "DOM Manipulation" || topics[1].Title != "HTML Basics" {
		t.Fatalf("expected output order to be kept, got %+v", topics)
	}
	if !strings.HasPrefix(topics[0].Description, "Learn DOM Manipulation") {
		t.Fatalf("missing description should be generated, got %q", topics[0].Description)
	}
}

func TestAssembleRoadmapRejectsUnusableOutput(t *testing.T) {
	for _, raw := range []string{"I cannot help with that.", `[{"title":"Cooking"}]`, ""} {
		if _, err := learning.AssembleRoadmap(raw, webTitles); !errors.Is(err, learning.ErrNoRoadmapTopics) {
			t.Errorf("AssembleRoadmap(%q) error = %v, want ErrNoRoadmapTopics", raw, err)
		}
	}
}

func TestAssembleRoadmapCapsTopicCount(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	titles := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		title := "Topic " + string(rune('A'+i)) + "xx"
		titles = append(titles, title)
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"title":"` + title + `"}`)
	}
	b.WriteString("]")
	topics, err := learning.AssembleRoadmap(b.String(), titles)
	if err != nil {
		t.Fatalf("AssembleRoadmap returned error: %v", err)
	}
	if len(topics) != learning.MaxRoadmapTopics {
		t.Fatalf("expected %d topics, got %d", learning.MaxRoadmapTopics, len(topics))
	}
}

func TestFallbackRoadmap(t *testing.T) {
	topics := learning.FallbackRoadmap(webTitles, 0)
	if len(topics) != 6 {
		t.Fatalf("expected 6 fallback topics, got %d", len(topics))
	}
	for i, topic := range topics {
		if topic.Title != webTitles[i] || topic.SequenceNumber != i+1 {
			t.Fatalf("unexpected fallback topic %d: %+v", i, topic)
		}
		if topic.Description != "Learn "+webTitles[i]+" with hands-on practice." {
			t.Fatalf("unexpected fallback description %q", topic.Description)
		}
	}

	short := learning.FallbackRoadmap(webTitles[:2], 6)
	if len(short) != 2 {
		t.Fatalf("expected fallback to use all available titles, got %d", len(short))
	}
}

func TestRoadmapPromptListsAllowedTitles(t *testing.T) {
	prompt := learning.RoadmapPrompt("Web Development", "Beginner", webTitles)
	for _, title := range webTitles {
		if !strings.Contains(prompt, title) {
			t.Fatalf("prompt is missing %q", title)
		}
	}
}
