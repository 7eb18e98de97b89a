package service

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/config"
	"enliven_backend/internal/learning"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/llm"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeCompleter 按调用顺序记录请求，由 respond 决定返回值
type fakeCompleter struct {
	mu       sync.Mutex
	disabled bool
	respond  func(req llm.Request) (string, error)
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return "", errors.New("no response configured")
	}
	return f.respond(req)
}

func (f *fakeCompleter) Enabled() bool {
	return !f.disabled
}

func (f *fakeCompleter) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type mapSource map[string]string

func (m mapSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	body, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, name)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

var webSteps = []string{
	"HTML Basics",
	"CSS Layout",
	"JavaScript Fundamentals",
	"DOM Manipulation",
	"Introduction to React",
	"Git Basics",
	"Deploying Websites",
	"Web Accessibility",
}

func catalogJSON(titles []string) string {
	steps := make([]string, len(titles))
	for i, t := range titles {
		slug := strings.ReplaceAll(strings.ToLower(t), " ", "-")
		steps[i] = fmt.Sprintf(`{"title":%q,"links":["https://youtu.be/%s"]}`, t, slug)
	}
	return `{"steps":[` + strings.Join(steps, ",") + `]}`
}

type fixture struct {
	db        *gorm.DB
	ai        *fakeCompleter
	users     *repository.UserRepository
	roadmaps  *repository.RoadmapRepository
	progress  *repository.ProgressRepository
	badgeRepo *repository.BadgeRepository
	policy    *PolicyHolder

	badges     *BadgeService
	roadmap    *RoadmapService
	courses    *CourseService
	progressSv *ProgressService
	questions  *QuestionService
	path       *LearningPathService
	aiService  *AIService
}

func newFixture(t *testing.T, source mapSource) *fixture {
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

	f := &fixture{
		db:        db,
		ai:        &fakeCompleter{},
		users:     repository.NewUserRepository(db),
		roadmaps:  repository.NewRoadmapRepository(db),
		progress:  repository.NewProgressRepository(db),
		badgeRepo: repository.NewBadgeRepository(db),
		policy:    NewPolicyHolder(config.AssessmentConfig{}),
	}
	if err := f.badgeRepo.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed badges: %v", err)
	}

	cat := catalog.New(source, "course-content")
	f.aiService = NewAIService(f.ai, config.AIConfig{Model: "test-model"})
	f.badges = NewBadgeService(f.badgeRepo, nil)
	f.roadmap = NewRoadmapService(f.roadmaps, cat, f.aiService, f.badges, nil, f.policy)
	f.courses = NewCourseService(cat, f.roadmaps)
	f.progressSv = NewProgressService(f.progress, f.courses, f.badges, nil, f.policy)
	f.questions = NewQuestionService(f.aiService, repository.NewAttemptRepository(db), f.roadmaps, f.progressSv, f.policy)
	f.path = NewLearningPathService(f.roadmaps, f.progress)
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "Test", Email: email, Password: "x"}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func hasBadge(t *testing.T, f *fixture, userID uint, badgeID string) bool {
	t.Helper()
	badges, err := f.badges.UserBadges(context.Background(), userID)
	if err != nil {
		t.Fatalf("UserBadges: %v", err)
	}
	for _, b := range badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

func TestRoadmapFallsBackToCatalogOrder(t *testing.T) {
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": catalogJSON(webSteps)})
	f.ai.respond = func(llm.Request) (string, error) {
		return "", &llm.StatusError{StatusCode: 503}
	}
	user := f.createUser(t, "fallback@example.com")

	roadmap, err := f.roadmap.Generate(context.Background(), user.ID, "Web Development", "Beginner")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	topics := roadmap.TopicList()
	if roadmap.Source != model.RoadmapSourceFallback || len(topics) != 6 {
		t.Fatalf("expected 6 fallback topics, got %s %d", roadmap.Source, len(topics))
	}
	for i, topic := range topics {
		if topic.Title != webSteps[i] || topic.SequenceNumber != i+1 {
			t.Fatalf("unexpected topic %d: %+v", i, topic)
		}
	}
	if roadmap.Domain != "web-development" || roadmap.SkillLevel != "beginner" {
		t.Fatalf("expected slugged domain and level, got %q %q", roadmap.Domain, roadmap.SkillLevel)
	}
	if !hasBadge(t, f, user.ID, roadmapBadgeID) {
		t.Fatal("expected roadmap badge to be awarded")
	}
}

func TestRoadmapUsesReconciledModelOutput(t *testing.T) {
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": catalogJSON(webSteps)})
	f.ai.respond = func(llm.Request) (string, error) {
		return "```json\n[" +
			`{"title":"css layout","description":"Boxes.","sequenceNumber":2},` +
			`{"title":"HTML basics","description":"Markup.","sequenceNumber":1},` +
			`{"title":"Underwater Basket Weaving","sequenceNumber":3}` +
			"]\n```", nil
	}
	user := f.createUser(t, "llm@example.com")

	roadmap, err := f.roadmap.Generate(context.Background(), user.ID, "web development", "beginner")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	topics := roadmap.TopicList()
	if roadmap.Source != model.RoadmapSourceLLM || len(topics) != 2 {
		t.Fatalf("unexpected roadmap %s %+v", roadmap.Source, topics)
	}
	if topics[0].Title != "HTML Basics" || topics[1].Title != "CSS Layout" {
		t.Fatalf("titles were not reconciled to the catalog: %+v", topics)
	}
	if !strings.Contains(f.ai.last().Messages[0].Content, "Web Accessibility") {
		t.Fatal("prompt should list catalog titles")
	}
}

func TestRoadmapUnknownCatalog(t *testing.T) {
	f := newFixture(t, mapSource{})
	user := f.createUser(t, "nocatalog@example.com")
	if _, err := f.roadmap.Generate(context.Background(), user.ID, "Cooking", "Beginner"); !errors.Is(err, util.ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
	if _, err := f.roadmap.MyRoadmap(context.Background(), user.ID); !errors.Is(err, util.ErrRoadmapNotFound) {
		t.Fatalf("no roadmap should be stored, got %v", err)
	}
}

func TestMergeCourseItemsLeavesUnmatchedTopicsEmpty(t *testing.T) {
	content := &catalog.Content{Steps: []catalog.Step{
		{Title: "HTML Basics", Links: []string{"https://youtu.be/html"}, Resources: []catalog.Resource{{URL: "https://mdn.dev"}}},
	}}
	items := MergeCourseItems([]model.RoadmapTopic{
		{Title: "Mystery", SequenceNumber: 2},
		{Title: "html basics", SequenceNumber: 1},
	}, content)
	if len(items) != 2 || items[0].Title != "html basics" {
		t.Fatalf("unexpected items %+v", items)
	}
	if len(items[0].Videos) != 1 || items[0].Videos[0].URL != "https://youtu.be/html" || len(items[0].Resources) != 1 {
		t.Fatalf("matched topic should carry catalog media: %+v", items[0])
	}
	if items[1].Videos == nil || len(items[1].Videos) != 0 || len(items[1].Resources) != 0 {
		t.Fatalf("unmatched topic should have empty media: %+v", items[1])
	}
}

func TestProgressGatingAndBadges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": catalogJSON(webSteps[:2])})
	f.ai.disabled = true
	user := f.createUser(t, "learner@example.com")
	if _, err := f.roadmap.Generate(ctx, user.ID, "Web Development", "Beginner"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if _, err := f.progressSv.CompleteLesson(ctx, user.ID, "web-development", "beginner", "2-V1"); !errors.Is(err, learning.ErrLessonLocked) {
		t.Fatalf("expected second module to be locked, got %v", err)
	}

	done, err := f.progressSv.CompleteLesson(ctx, user.ID, "web-development", "beginner", "1-V1")
	if err != nil {
		t.Fatalf("CompleteLesson returned error: %v", err)
	}
	if done.Warning != "" || done.Next != nil || done.TestRequired != 1 {
		t.Fatalf("expected module test to be required, got %+v", done)
	}
	if done.State.AwaitingTestModule != 1 {
		t.Fatalf("expected state to await module 1 test, got %+v", done.State)
	}
	if _, err := f.progressSv.RecordAssessment(ctx, user.ID, AssessmentInput{
		Domain: "web-development", Level: "beginner", Kind: model.AttemptModuleTest, ModuleID: 2, Score: 10, Total: 10,
	}); !errors.Is(err, util.ErrNotEligible) {
		t.Fatalf("module 2 test before watching it should be rejected, got %v", err)
	}

	failed, err := f.progressSv.RecordAssessment(ctx, user.ID, AssessmentInput{
		Domain: "web-development", Level: "beginner", Kind: model.AttemptModuleTest, ModuleID: 1, Score: 5, Total: 10,
	})
	if err != nil || failed.Passed {
		t.Fatalf("50%% should not pass: %+v %v", failed, err)
	}

	passed, err := f.progressSv.RecordAssessment(ctx, user.ID, AssessmentInput{
		Domain: "web-development", Level: "beginner", Kind: model.AttemptModuleTest, ModuleID: 1, Score: 6, Total: 10,
	})
	if err != nil {
		t.Fatalf("RecordAssessment returned error: %v", err)
	}
	if !passed.Passed || passed.Percentage != 60 || passed.Unlocked == nil || passed.Unlocked.ID != "2-V1" {
		t.Fatalf("expected module 2 to unlock, got %+v", passed)
	}
	if !hasBadge(t, f, user.ID, firstModuleBadgeID) {
		t.Fatal("expected first module badge")
	}

	state, err := f.progressSv.CourseState(ctx, user.ID, "web-development", "beginner")
	if err != nil {
		t.Fatalf("CourseState returned error: %v", err)
	}
	if state.CurrentLessonID != "2-V1" || !state.Modules[0].TestCompleted || state.Progress != 50 {
		t.Fatalf("unexpected reloaded state %+v", state)
	}

	final := AssessmentInput{Domain: "web-development", Level: "beginner", Kind: model.AttemptFinalExam, Score: 27, Total: 30}
	if _, err := f.progressSv.RecordAssessment(ctx, user.ID, final); !errors.Is(err, util.ErrNotEligible) {
		t.Fatalf("final exam before the last module should be rejected, got %v", err)
	}
	if _, err := f.progressSv.CompleteLesson(ctx, user.ID, "web-development", "beginner", "2-V1"); err != nil {
		t.Fatalf("CompleteLesson returned error: %v", err)
	}
	first, err := f.progressSv.RecordAssessment(ctx, user.ID, final)
	if err != nil {
		t.Fatalf("final exam returned error: %v", err)
	}
	if first.Badge == nil || first.Badge.AlreadyAwarded || first.Badge.Badge.BadgeID != model.CourseCompletionBadgeID {
		t.Fatalf("expected new completion badge, got %+v", first.Badge)
	}
	second, err := f.progressSv.RecordAssessment(ctx, user.ID, final)
	if err != nil {
		t.Fatalf("second final exam returned error: %v", err)
	}
	if second.Badge == nil || !second.Badge.AlreadyAwarded {
		t.Fatalf("second award should report already awarded, got %+v", second.Badge)
	}

	progress, err := f.progressSv.Progress(ctx, user.ID, "web-development-beginner")
	if err != nil {
		t.Fatalf("Progress returned error: %v", err)
	}
	if !progress.FinalExamCompleted || progress.FinalExamScore != 90 || !progress.ModuleTestPassed(1) {
		t.Fatalf("unexpected stored progress %+v", progress)
	}
}

func TestRecordAssessmentValidation(t *testing.T) {
	f := newFixture(t, mapSource{})
	cases := []AssessmentInput{
		{Domain: "web", Level: "beginner", Kind: "quiz", Score: 1, Total: 1},
		{Domain: "web", Level: "beginner", Kind: model.AttemptModuleTest, Score: 1, Total: 1},
		{Domain: "web", Level: "beginner", Kind: model.AttemptFinalExam, Score: 3, Total: 2},
		{Domain: "web", Level: "beginner", Kind: model.AttemptFinalExam, Score: 0, Total: 0},
	}
	for _, in := range cases {
		if _, err := f.progressSv.RecordAssessment(context.Background(), 1, in); !errors.Is(err, util.ErrInvalidInput) {
			t.Errorf("RecordAssessment(%+v) error = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestSaveTopicMergesVideoFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{})
	user := f.createUser(t, "topic@example.com")

	_, warning, err := f.progressSv.SaveTopic(ctx, user.ID, SaveProgressInput{
		CourseID: "web-development-beginner", TopicID: 1, VideoProgress: model.VideoProgress{0: true}, CurrentIndex: 1,
	})
	if err != nil || warning != "" {
		t.Fatalf("SaveTopic returned %q %v", warning, err)
	}
	p, _, err := f.progressSv.SaveTopic(ctx, user.ID, SaveProgressInput{
		CourseID: "web-development-beginner", TopicID: 1, VideoProgress: model.VideoProgress{1: true}, CurrentIndex: 1,
	})
	if err != nil {
		t.Fatalf("SaveTopic returned error: %v", err)
	}
	tp, ok := p.Topic(1)
	if !ok || !tp.VideoProgress[0] || !tp.VideoProgress[1] {
		t.Fatalf("expected merged flags, got %+v", tp)
	}

	_, _, err = f.progressSv.SaveTopic(ctx, user.ID, SaveProgressInput{
		CourseID: "web-development-beginner", TopicID: 1, VideoProgress: model.VideoProgress{-1: true},
	})
	if !errors.Is(err, util.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative video index, got %v", err)
	}
}

func TestReadingProgressSurvivesReload(t *testing.T) {
	ctx := context.Background()
	body := `{"steps":[
		{"title":"HTML Basics","links":["https://youtu.be/html"],"resources":[{"title":"MDN HTML","url":"https://developer.mozilla.org/html"}]},
		{"title":"CSS Layout","links":["https://youtu.be/css"],"resources":["https://developer.mozilla.org/css"]}
	]}`
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": body})
	f.ai.disabled = true
	user := f.createUser(t, "reader@example.com")
	if _, err := f.roadmap.Generate(ctx, user.ID, "Web Development", "Beginner"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for _, id := range []string{"1-V1", "1-R1"} {
		if _, err := f.progressSv.CompleteLesson(ctx, user.ID, "web-development", "beginner", id); err != nil {
			t.Fatalf("CompleteLesson(%s) returned error: %v", id, err)
		}
	}

	state, err := f.progressSv.CourseState(ctx, user.ID, "web-development", "beginner")
	if err != nil {
		t.Fatalf("CourseState returned error: %v", err)
	}
	if state.Progress != 50 || state.AwaitingTestModule != 1 {
		t.Fatalf("reading completion should survive a reload, got %+v", state)
	}

	passed, err := f.progressSv.RecordAssessment(ctx, user.ID, AssessmentInput{
		Domain: "web-development", Level: "beginner", Kind: model.AttemptModuleTest, ModuleID: 1, Score: 8, Total: 10,
	})
	if err != nil {
		t.Fatalf("RecordAssessment returned error: %v", err)
	}
	if passed.Unlocked == nil || passed.Unlocked.ID != "2-V1" {
		t.Fatalf("expected 2-V1 to unlock, got %+v", passed.Unlocked)
	}

	state, err = f.progressSv.CourseState(ctx, user.ID, "web-development", "beginner")
	if err != nil {
		t.Fatalf("CourseState returned error: %v", err)
	}
	if state.CurrentLessonID != "2-V1" || state.Progress != 50 {
		t.Fatalf("unexpected reloaded state %+v", state)
	}

	progress, _ := f.progressSv.Progress(ctx, user.ID, "web-development-beginner")
	tp, ok := progress.Topic(1)
	if !ok || !tp.ResourceProgress[0] || !tp.VideoProgress[0] {
		t.Fatalf("expected stored video and reading flags, got %+v", tp)
	}
}

func questionsJSON(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":"q%d","question":"Question %d?","options":["a","b","c","d"],"correctIndex":0,"explanation":"a is right"}`, i+1, i+1)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestProctoredModuleTest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": catalogJSON(webSteps[:2])})
	f.ai.respond = func(req llm.Request) (string, error) {
		return questionsJSON(10), nil
	}
	user := f.createUser(t, "proctor@example.com")
	f.ai.disabled = true
	if _, err := f.roadmap.Generate(ctx, user.ID, "Web Development", "Beginner"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	f.ai.disabled = false

	if _, err := f.questions.StartModuleTest(ctx, user.ID, 1, "web-development", "beginner"); !errors.Is(err, util.ErrNotEligible) {
		t.Fatalf("module test before watching the videos should be rejected, got %v", err)
	}
	if _, err := f.questions.StartFinalExam(ctx, user.ID, "web-development", "beginner"); !errors.Is(err, util.ErrNotEligible) {
		t.Fatalf("final exam without progress should be rejected, got %v", err)
	}
	if len(f.ai.requests) != 0 {
		t.Fatal("ineligible starts must not generate questions")
	}
	if _, err := f.progressSv.CompleteLesson(ctx, user.ID, "web-development", "beginner", "1-V1"); err != nil {
		t.Fatalf("CompleteLesson returned error: %v", err)
	}

	view, err := f.questions.StartModuleTest(ctx, user.ID, 1, "web-development", "beginner")
	if err != nil {
		t.Fatalf("StartModuleTest returned error: %v", err)
	}
	if len(view.Questions) != 10 || view.Mode != model.AttemptModuleTest {
		t.Fatalf("unexpected attempt view %+v", view)
	}
	if f.ai.last().Messages[0].Content != questionSystemPrompt {
		t.Fatal("question generation should use the JSON-only system prompt")
	}

	answers := []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}
	if _, err := f.questions.Submit(ctx, user.ID+1, view.AttemptID, SubmitAttemptInput{Answers: answers}); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("other users must not see the attempt, got %v", err)
	}
	if _, err := f.questions.Submit(ctx, user.ID, view.AttemptID, SubmitAttemptInput{Answers: []int{4}}); !errors.Is(err, util.ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}

	res, err := f.questions.Submit(ctx, user.ID, view.AttemptID, SubmitAttemptInput{Answers: answers})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if res.Attempt.Score != 6 || !res.Attempt.Passed || res.Attempt.Flagged {
		t.Fatalf("unexpected graded attempt %+v", res.Attempt)
	}
	if res.Outcome == nil || !res.Outcome.Passed || len(res.Review) != 10 || res.Review[6].Correct {
		t.Fatalf("unexpected submit result %+v", res)
	}
	progress, _ := f.progressSv.Progress(ctx, user.ID, "web-development-beginner")
	if !progress.ModuleTestPassed(1) {
		t.Fatal("passing attempt should record the module test")
	}

	if _, err := f.questions.Submit(ctx, user.ID, view.AttemptID, SubmitAttemptInput{Answers: answers}); !errors.Is(err, util.ErrAttemptSubmitted) {
		t.Fatalf("expected ErrAttemptSubmitted, got %v", err)
	}
}

func TestFlaggedAttemptIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": catalogJSON(webSteps[:1])})
	f.ai.disabled = true
	user := f.createUser(t, "cheater@example.com")
	if _, err := f.roadmap.Generate(ctx, user.ID, "Web Development", "Beginner"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := f.progressSv.CompleteLesson(ctx, user.ID, "web-development", "beginner", "1-V1"); err != nil {
		t.Fatalf("CompleteLesson returned error: %v", err)
	}
	f.ai.disabled = false
	f.ai.respond = func(llm.Request) (string, error) { return questionsJSON(30), nil }

	view, err := f.questions.StartFinalExam(ctx, user.ID, "web-development", "beginner")
	if err != nil {
		t.Fatalf("StartFinalExam returned error: %v", err)
	}
	answers := make([]int, 30)
	res, err := f.questions.Submit(ctx, user.ID, view.AttemptID, SubmitAttemptInput{Answers: answers, Violations: 3})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !res.Attempt.Flagged || res.Outcome != nil || !strings.Contains(res.Attempt.Reason, "violations") {
		t.Fatalf("expected flagged attempt without outcome, got %+v", res)
	}
	if hasBadge(t, f, user.ID, model.CourseCompletionBadgeID) {
		t.Fatal("flagged exam must not award the completion badge")
	}
}

func TestGenerateQuestionsFailures(t *testing.T) {
	f := newFixture(t, mapSource{})
	f.ai.disabled = true
	if _, err := f.questions.GenerateQuestions(context.Background(), "Go", 5); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if len(f.ai.requests) != 0 {
		t.Fatal("no request should be sent without a key")
	}

	f.ai.disabled = false
	f.ai.respond = func(llm.Request) (string, error) { return "I'd rather not.", nil }
	if _, err := f.questions.GenerateQuestions(context.Background(), "Go", 5); !errors.Is(err, learning.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	f.ai.respond = func(llm.Request) (string, error) { return questionsJSON(3), nil }
	qs, err := f.questions.GenerateQuestions(context.Background(), "Go", 5)
	if err != nil || len(qs) != 3 {
		t.Fatalf("short output should be returned unpadded, got %d %v", len(qs), err)
	}
	if f.ai.last().MaxTokens != 2500 {
		t.Fatalf("expected token floor of 2500, got %d", f.ai.last().MaxTokens)
	}
}

func TestLearningPathOverview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{"course-content/web-development/beginner.json": catalogJSON(webSteps[:3])})
	f.ai.disabled = true
	user := f.createUser(t, "path@example.com")

	empty, err := f.path.Overview(ctx, user.ID)
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	if empty.Domain != nil || empty.ContinuePath != nil || len(empty.Topics) != 0 {
		t.Fatalf("expected empty overview, got %+v", empty)
	}

	if _, err := f.roadmap.Generate(ctx, user.ID, "Web Development", "Beginner"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	_, _, err = f.progressSv.SaveTopic(ctx, user.ID, SaveProgressInput{
		CourseID: "web-development-beginner", TopicID: 2, VideoProgress: model.VideoProgress{0: true, 1: false, 2: true}, CurrentIndex: 1,
	})
	if err != nil {
		t.Fatalf("SaveTopic returned error: %v", err)
	}

	overview, err := f.path.Overview(ctx, user.ID)
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	if len(overview.Topics) != 3 || overview.ContinuePath.URL != "/courses/web-development/beginner" {
		t.Fatalf("unexpected overview %+v", overview)
	}
	second := overview.Topics[1]
	if second.Percent != 67 || second.VideosDone != 2 || second.VideosTracked != 3 || second.Next == nil || second.Next.CurrentIndex != 1 {
		t.Fatalf("unexpected topic summary %+v", second)
	}
	if overview.Topics[0].Next != nil || overview.Topics[0].Percent != 0 {
		t.Fatalf("untracked topic should be empty, got %+v", overview.Topics[0])
	}
	if overview.Totals.Percent != 67 || overview.Totals.VideosTotal != 3 {
		t.Fatalf("unexpected totals %+v", overview.Totals)
	}

	dash := NewDashboardService(f.users, f.roadmaps, f.path, f.badges)
	d, err := dash.GetDashboard(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetDashboard returned error: %v", err)
	}
	if d.Roadmap == nil || d.Roadmap.TopicCount != 3 || len(d.Badges) != 1 || d.ContinueLearning[0].URL == "" {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestChatService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{})
	f.ai.respond = func(llm.Request) (string, error) { return "Closures capture variables.", nil }
	chat := NewChatService(repository.NewChatContextRepository(f.db), f.aiService, 10)

	domain := "Web Development"
	cc, err := chat.UpdateContext(ctx, 7, "lesson_started", ContextPatch{Domain: &domain})
	if err != nil {
		t.Fatalf("UpdateContext returned error: %v", err)
	}
	if cc.Version != 1 || cc.Memory.Data().Domain != domain || cc.Memory.Data().LastEvent != "lesson_started" {
		t.Fatalf("unexpected context %+v", cc.Memory.Data())
	}
	module := "2"
	cc, err = chat.UpdateContext(ctx, 7, "", ContextPatch{Module: &module})
	if err != nil {
		t.Fatalf("UpdateContext returned error: %v", err)
	}
	if cc.Version != 2 || cc.Memory.Data().Domain != domain || cc.Memory.Data().Module != "2" {
		t.Fatalf("patch should keep untouched fields, got %+v", cc.Memory.Data())
	}

	reply, err := chat.SendMessage(ctx, 7, "  What is a closure?  ")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if reply.Reply != "Closures capture variables." {
		t.Fatalf("unexpected reply %q", reply.Reply)
	}
	msgs := f.ai.last().Messages
	if msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[1].Content, `"domain":"Web Development"`) {
		t.Fatalf("context should be sent to the model: %+v", msgs[:2])
	}
	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser || last.Content != "What is a closure?" {
		t.Fatalf("user turn should be last, got %+v", last)
	}

	page, err := chat.History(ctx, 7, 1, 50)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	history := page.List.([]model.ChatMessage)
	if page.Total != 2 || history[0].Sender != model.ChatSenderUser || history[1].Sender != model.ChatSenderAssistant {
		t.Fatalf("unexpected history %+v", page)
	}

	if _, err := chat.SendMessage(ctx, 7, "   "); !errors.Is(err, util.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank message, got %v", err)
	}
}

func TestChatUserTurnKeptWhenModelFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{})
	f.ai.respond = func(llm.Request) (string, error) { return "", context.DeadlineExceeded }
	chat := NewChatService(repository.NewChatContextRepository(f.db), f.aiService, 0)

	if _, err := chat.SendMessage(ctx, 9, "hello"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected model error, got %v", err)
	}
	page, err := chat.History(ctx, 9, 1, 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("user turn should be stored before the model call, got %d", page.Total)
	}
}

func TestInitialAssessment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{})
	users := NewUserService(f.users, nil, f.aiService)
	user := f.createUser(t, "assess@example.com")

	f.ai.respond = func(llm.Request) (string, error) { return "The student is INTERMEDIATE.", nil }
	res, err := users.InitialAssessment(ctx, user.ID, []string{"a", "B", "c", "D", "b"})
	if err != nil {
		t.Fatalf("InitialAssessment returned error: %v", err)
	}
	if res.SkillLevel != SkillIntermediate || res.Source != AssessmentSourceLLM {
		t.Fatalf("unexpected result %+v", res)
	}

	f.ai.respond = func(llm.Request) (string, error) { return "", errors.New("boom") }
	res, err = users.InitialAssessment(ctx, user.ID, []string{"D", "D", "D", "C", "D"})
	if err != nil {
		t.Fatalf("InitialAssessment returned error: %v", err)
	}
	if res.SkillLevel != SkillAdvanced || res.Source != AssessmentSourceFallback {
		t.Fatalf("unexpected fallback result %+v", res)
	}
	stored, _ := f.users.FindByID(ctx, user.ID)
	if stored.SkillLevel != SkillAdvanced {
		t.Fatalf("skill level not stored, got %q", stored.SkillLevel)
	}

	for _, answers := range [][]string{{"A", "B"}, {"A", "B", "C", "D", "E"}} {
		if _, err := users.InitialAssessment(ctx, user.ID, answers); !errors.Is(err, util.ErrInvalidAnswers) {
			t.Errorf("InitialAssessment(%v) error = %v, want ErrInvalidAnswers", answers, err)
		}
	}
}

func TestClassifyByAverage(t *testing.T) {
	cases := map[string]string{
		"AAAAB": SkillBeginner,
		"BBBBB": SkillIntermediate,
		"CCCCC": SkillAdvanced,
	}
	for in, want := range cases {
		if got := classifyByAverage(strings.Split(in, "")); got != want {
			t.Errorf("classifyByAverage(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestAuthRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mapSource{})
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	auth := NewAuthService(f.users, cfg)

	user, token, err := auth.Register(ctx, "Ada", " Ada@Example.com ", "s3cret")
	if err != nil || token == "" {
		t.Fatalf("Register returned %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email should be normalized, got %q", user.Email)
	}
	if _, _, err := auth.Register(ctx, "Ada", "ada@example.com", "other"); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}
	if _, _, err := auth.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := auth.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
	logged, token, err := auth.Login(ctx, "ADA@example.com", "s3cret")
	if err != nil || logged.LastLogin == nil {
		t.Fatalf("Login returned %+v %v", logged, err)
	}
	claims, err := util.ParseJWT(token, "test-secret")
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("token should carry the user id, got %+v %v", claims, err)
	}
}

func TestNotesRequireTitle(t *testing.T) {
	f := newFixture(t, mapSource{})
	f.ai.respond = func(llm.Request) (string, error) { return "  # Notes\n- point  ", nil }
	notes := NewNotesService(f.aiService, nil)

	if _, err := notes.Generate(context.Background(), " ", ""); !errors.Is(err, util.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	res, err := notes.Generate(context.Background(), "Closures", "https://youtu.be/x")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Notes != "# Notes\n- point" || res.Cached {
		t.Fatalf("unexpected notes %+v", res)
	}
	if !strings.Contains(f.ai.last().Messages[0].Content, "https://youtu.be/x") {
		t.Fatal("prompt should mention the video url")
	}
}

func TestPolicyDefaultsAndReload(t *testing.T) {
	h := NewPolicyHolder(config.AssessmentConfig{PassThreshold: 150})
	p := h.Load()
	if p.PassThreshold != 60 || p.ModuleQuestionCount != 10 || p.FinalQuestionCount != 30 || p.MaxViolations != 3 || p.RoadmapFallbackSize != 6 {
		t.Fatalf("unexpected defaults %+v", p)
	}
	h.Update(config.AssessmentConfig{PassThreshold: 70, AttemptTimeLimitSecs: 600})
	if p := h.Load(); p.PassThreshold != 70 || p.AttemptTimeLimit != 10*time.Minute {
		t.Fatalf("policy not reloaded: %+v", p)
	}
}

func TestBadgeCatalogListsSeededBadges(t *testing.T) {
	f := newFixture(t, mapSource{})
	badges, err := f.badges.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog returned error: %v", err)
	}
	if len(badges) != len(model.DefaultBadges()) {
		t.Fatalf("expected %d badges, got %+v", len(model.DefaultBadges()), badges)
	}
	seen := map[string]bool{}
	for _, b := range badges {
		seen[b.ID] = true
	}
	if !seen[firstModuleBadgeID] || !seen[model.CourseCompletionBadgeID] {
		t.Fatalf("missing seeded badges in %+v", badges)
	}
}
