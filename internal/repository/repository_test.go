package repository_test

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Roadmap{},
		&model.CourseProgress{},
		&model.Badge{},
		&model.UserBadge{},
		&model.ProctorAttempt{},
		&model.ChatContext{},
		&model.ChatMessage{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(openTestDB(t))

	if err := repo.Create(ctx, &model.User{Name: "Ada", Email: "ada@example.com", Password: "x"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &model.User{Name: "Ada 2", Email: "ada@example.com", Password: "y"})
	if !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}
	if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestBadgeAwardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewBadgeRepository(openTestDB(t))
	if err := repo.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if err := repo.SeedDefaults(ctx); err != nil {
		t.Fatalf("second SeedDefaults: %v", err)
	}

	badge, err := repo.FindBadge(ctx, model.CourseCompletionBadgeID)
	if err != nil {
		t.Fatalf("FindBadge: %v", err)
	}
	award := func() bool {
		created, err := repo.Award(ctx, &model.UserBadge{
			UserID:      7,
			BadgeID:     badge.ID,
			Name:        badge.Name,
			Description: badge.Description,
			Icon:        badge.Icon,
			AwardedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("Award: %v", err)
		}
		return created
	}
	if !award() {
		t.Fatal("first award should be created")
	}
	if award() {
		t.Fatal("second award should be a no-op")
	}

	badges, err := repo.ListByUser(ctx, 7)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(badges) != 1 || badges[0].Name != "Course Completion" {
		t.Fatalf("unexpected badges %+v", badges)
	}
	if _, err := repo.FindBadge(ctx, "no-such-badge"); !errors.Is(err, util.ErrBadgeNotFound) {
		t.Fatalf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestProgressSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProgressRepository(openTestDB(t))

	p, err := repo.FindOrNew(ctx, 1, "web-development-beginner")
	if err != nil {
		t.Fatalf("FindOrNew: %v", err)
	}
	p.SetTopic(model.TopicProgress{TopicID: 1, VideoProgress: model.VideoProgress{0: true}, CurrentIndex: 1})
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save new: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("expected version 1, got %d", p.Version)
	}

	first, _ := repo.Find(ctx, 1, "web-development-beginner")
	second, _ := repo.Find(ctx, 1, "web-development-beginner")

	first.MarkModuleTest(1)
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	second.FinalExamCompleted = true
	if err := repo.Save(ctx, second); !errors.Is(err, util.ErrStaleProgress) {
		t.Fatalf("expected ErrStaleProgress, got %v", err)
	}

	stored, err := repo.Find(ctx, 1, "web-development-beginner")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if stored.Version != 2 || !stored.ModuleTestPassed(1) || stored.FinalExamCompleted {
		t.Fatalf("unexpected stored progress %+v", stored)
	}
	tp, ok := stored.Topic(1)
	if !ok || !tp.VideoProgress[0] || tp.CurrentIndex != 1 {
		t.Fatalf("topic progress not persisted: %+v", tp)
	}
}

func TestRoadmapUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := repository.NewRoadmapRepository(db)

	save := func(title string) {
		err := repo.Upsert(ctx, &model.Roadmap{
			UserID:     3,
			Domain:     "web-development",
			SkillLevel: "beginner",
			Topics:     datatypes.NewJSONType([]model.RoadmapTopic{{Title: title, SequenceNumber: 1}}),
			Source:     model.RoadmapSourceLLM,
		})
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	save("HTML Basics")
	save("CSS Layout")

	var count int64
	db.Model(&model.Roadmap{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one roadmap row, got %d", count)
	}
	roadmap, err := repo.FindByUserID(ctx, 3)
	if err != nil {
		t.Fatalf("FindByUserID: %v", err)
	}
	if topics := roadmap.TopicList(); len(topics) != 1 || topics[0].Title != "CSS Layout" {
		t.Fatalf("roadmap not replaced: %+v", topics)
	}
	if _, err := repo.FindByUserID(ctx, 4); !errors.Is(err, util.ErrRoadmapNotFound) {
		t.Fatalf("expected ErrRoadmapNotFound, got %v", err)
	}
}

func TestAttemptSubmitOnce(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAttemptRepository(openTestDB(t))

	attempt := &model.ProctorAttempt{
		UserID:    5,
		CourseID:  "web-development-beginner",
		Kind:      model.AttemptModuleTest,
		ModuleID:  1,
		Questions: datatypes.NewJSONType([]model.Question{{ID: "q1", CorrectIndex: 2}}),
		StartedAt: time.Now(),
	}
	if err := repo.Create(ctx, attempt); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if attempt.ID == "" {
		t.Fatal("expected generated attempt id")
	}
	if _, err := repo.FindForUser(ctx, attempt.ID, 6); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("other users must not see the attempt, got %v", err)
	}

	loaded, err := repo.FindForUser(ctx, attempt.ID, 5)
	if err != nil {
		t.Fatalf("FindForUser: %v", err)
	}
	if qs := loaded.Questions.Data(); len(qs) != 1 || qs[0].CorrectIndex != 2 {
		t.Fatalf("questions not persisted: %+v", qs)
	}

	now := time.Now()
	loaded.Score, loaded.Total, loaded.Passed, loaded.SubmittedAt = 1, 1, true, &now
	if err := repo.Submit(ctx, loaded); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := repo.Submit(ctx, loaded); !errors.Is(err, util.ErrAttemptSubmitted) {
		t.Fatalf("expected ErrAttemptSubmitted, got %v", err)
	}
	n, err := repo.CountPassed(ctx, 5, model.AttemptModuleTest)
	if err != nil || n != 1 {
		t.Fatalf("CountPassed = %d, %v", n, err)
	}
}

func TestChatContextRepository(t *testing.T) {
	checkChatStore(t, repository.NewChatContextRepository(openTestDB(t)), 9)
}

// checkChatStore 两种 ChatStore 实现共用的行为校验
func checkChatStore(t *testing.T, repo repository.ChatStore, userID uint) {
	t.Helper()
	ctx := context.Background()

	cc, err := repo.GetContext(ctx, userID)
	if err != nil || cc.Version != 0 {
		t.Fatalf("expected empty context, got %+v %v", cc, err)
	}
	v, err := repo.SaveContext(ctx, userID, model.ChatMemory{Domain: "web-development"}, 0)
	if err != nil || v != 1 {
		t.Fatalf("SaveContext create = %d, %v", v, err)
	}
	if _, err := repo.SaveContext(ctx, userID, model.ChatMemory{Domain: "other"}, 0); !errors.Is(err, util.ErrStaleChatContext) {
		t.Fatalf("expected stale create, got %v", err)
	}
	v, err = repo.SaveContext(ctx, userID, model.ChatMemory{Domain: "web-development", Step: "HTML Basics"}, 1)
	if err != nil || v != 2 {
		t.Fatalf("SaveContext update = %d, %v", v, err)
	}
	if _, err := repo.SaveContext(ctx, userID, model.ChatMemory{Domain: "other"}, 1); !errors.Is(err, util.ErrStaleChatContext) {
		t.Fatalf("expected stale update, got %v", err)
	}
	cc, _ = repo.GetContext(ctx, userID)
	if cc.Memory.Data().Step != "HTML Basics" || cc.Version != 2 {
		t.Fatalf("unexpected context %+v", cc)
	}

	base := time.Now()
	for i := 0; i < 3; i++ {
		err := repo.AppendMessages(ctx, userID,
			model.ChatMessage{Sender: model.ChatSenderUser, Text: fmt.Sprintf("q%d", i), Timestamp: base.Add(time.Duration(i) * time.Second)},
			model.ChatMessage{Sender: model.ChatSenderAssistant, Text: fmt.Sprintf("a%d", i), Timestamp: base.Add(time.Duration(i) * time.Second)},
		)
		if err != nil {
			t.Fatalf("AppendMessages: %v", err)
		}
	}

	recent, err := repo.Recent(ctx, userID, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 || recent[0].Text != "a1" || recent[2].Text != "a2" {
		t.Fatalf("unexpected recent window %+v", recent)
	}

	page, total, err := repo.History(ctx, userID, 2, 4)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 6 || len(page) != 2 || page[0].Text != "q2" {
		t.Fatalf("unexpected history page total=%d %+v", total, page)
	}

	// 上下文写入不影响已有对话
	if _, err := repo.SaveContext(ctx, userID, model.ChatMemory{Domain: "web-development", Step: "CSS Layout"}, 2); err != nil {
		t.Fatalf("SaveContext after messages: %v", err)
	}
	if _, total, _ := repo.History(ctx, userID, 1, 10); total != 6 {
		t.Fatalf("history total after context save = %d", total)
	}

	empty, total, err := repo.History(ctx, userID+1, 1, 10)
	if err != nil || total != 0 || len(empty) != 0 {
		t.Fatalf("unknown user history = %+v %d %v", empty, total, err)
	}
}
