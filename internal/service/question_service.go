package service

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/learning"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const questionSystemPrompt = "Respond ONLY with valid JSON."

// AttemptView 下发给前端的测验，不含答案
type AttemptView struct {
	AttemptID string                 `json:"attemptId"`
	Mode      model.AttemptKind      `json:"mode"`
	ModuleID  int                    `json:"moduleId,omitempty"`
	Questions []model.PublicQuestion `json:"questions"`
	TimeLimit int                    `json:"timeLimitSeconds,omitempty"`
}

type SubmitAttemptInput struct {
	Answers    []int  `json:"answers"`
	Violations int    `json:"violations"`
	Reason     string `json:"reason"`
	VideoURL   string `json:"videoUrl"`
}

type QuestionReview struct {
	ID           string `json:"id"`
	Answer       int    `json:"answer"`
	CorrectIndex int    `json:"correctIndex"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation"`
}

type SubmitResult struct {
	Attempt *model.ProctorAttempt `json:"attempt"`
	Review  []QuestionReview      `json:"review"`
	Outcome *AssessmentOutcome    `json:"outcome,omitempty"`
}

type QuestionService struct {
	AI          *AIService
	Attempts    *repository.AttemptRepository
	RoadmapRepo *repository.RoadmapRepository
	Progress    *ProgressService
	Policy      *PolicyHolder
}

func NewQuestionService(
	ai *AIService,
	attempts *repository.AttemptRepository,
	roadmapRepo *repository.RoadmapRepository,
	progress *ProgressService,
	policy *PolicyHolder,
) *QuestionService {
	return &QuestionService{
		AI:          ai,
		Attempts:    attempts,
		RoadmapRepo: roadmapRepo,
		Progress:    progress,
		Policy:      policy,
	}
}

// GenerateQuestions 未配置密钥时直接失败；解析不出任何题目时记录原始输出并返回错误
func (s *QuestionService) GenerateQuestions(ctx context.Context, topic string, count int) ([]model.Question, error) {
	if !s.AI.Enabled() {
		return nil, llm.ErrMissingAPIKey
	}
	maxTokens := count * 200
	if maxTokens < 2500 {
		maxTokens = 2500
	}
	raw, err := s.AI.Complete(ctx, "questions", llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: questionSystemPrompt},
			{Role: llm.RoleUser, Content: learning.QuestionPrompt(topic, count)},
		},
		Temperature: 0.5,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	questions, err := learning.ParseQuestions(raw, count)
	if err != nil {
		logger.Log.Error("Failed to parse generated questions",
			zap.String("topic", topic),
			zap.String("raw", llm.SummarizeSnippet(raw)),
			zap.Error(err))
		return nil, err
	}
	if len(questions) < count {
		logger.Log.Warn("Model returned fewer questions than requested",
			zap.String("topic", topic),
			zap.Int("requested", count),
			zap.Int("parsed", len(questions)))
	}
	return questions, nil
}

// moduleTopic 优先使用路线图中的主题标题
func (s *QuestionService) moduleTopic(ctx context.Context, userID uint, moduleID int, domain, level string) string {
	if roadmap, err := s.RoadmapRepo.FindByUserID(ctx, userID); err == nil {
		for _, t := range roadmap.TopicList() {
			if t.SequenceNumber == moduleID {
				return fmt.Sprintf("%s (module %d of %s - %s)", t.Title, moduleID, domain, level)
			}
		}
	}
	return fmt.Sprintf("Module %d of %s - %s", moduleID, domain, level)
}

func (s *QuestionService) StartModuleTest(ctx context.Context, userID uint, moduleID int, domain, level string) (*AttemptView, error) {
	if moduleID <= 0 {
		return nil, fmt.Errorf("%w: moduleId must be positive", util.ErrInvalidInput)
	}
	if strings.TrimSpace(domain) == "" || strings.TrimSpace(level) == "" {
		return nil, fmt.Errorf("%w: domain and level are required", util.ErrInvalidInput)
	}
	if err := s.Progress.EnsureEligible(ctx, userID, domain, level, model.AttemptModuleTest, moduleID); err != nil {
		return nil, err
	}
	policy := s.Policy.Load()
	topic := s.moduleTopic(ctx, userID, moduleID, domain, level)
	questions, err := s.GenerateQuestions(ctx, topic, policy.ModuleQuestionCount)
	if err != nil {
		return nil, err
	}
	return s.startAttempt(ctx, userID, model.AttemptModuleTest, moduleID, domain, level, questions, policy)
}

func (s *QuestionService) StartFinalExam(ctx context.Context, userID uint, domain, level string) (*AttemptView, error) {
	if strings.TrimSpace(domain) == "" || strings.TrimSpace(level) == "" {
		return nil, fmt.Errorf("%w: domain and level are required", util.ErrInvalidInput)
	}
	if err := s.Progress.EnsureEligible(ctx, userID, domain, level, model.AttemptFinalExam, 0); err != nil {
		return nil, err
	}
	policy := s.Policy.Load()
	topic := fmt.Sprintf("Final exam for %s (%s)", domain, level)
	questions, err := s.GenerateQuestions(ctx, topic, policy.FinalQuestionCount)
	if err != nil {
		return nil, err
	}
	return s.startAttempt(ctx, userID, model.AttemptFinalExam, 0, domain, level, questions, policy)
}

func (s *QuestionService) startAttempt(ctx context.Context, userID uint, kind model.AttemptKind, moduleID int, domain, level string, questions []model.Question, policy AssessmentPolicy) (*AttemptView, error) {
	attempt := &model.ProctorAttempt{
		UserID:    userID,
		CourseID:  catalog.CourseID(domain, level),
		Domain:    catalog.DomainSlug(domain),
		Level:     catalog.LevelSlug(level),
		Kind:      kind,
		ModuleID:  moduleID,
		Questions: datatypes.NewJSONType(questions),
		Answers:   datatypes.NewJSONType([]int{}),
		Total:     len(questions),
		StartedAt: time.Now(),
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	public := make([]model.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public()
	}
	return &AttemptView{
		AttemptID: attempt.ID,
		Mode:      kind,
		ModuleID:  moduleID,
		Questions: public,
		TimeLimit: int(policy.AttemptTimeLimit / time.Second),
	}, nil
}

// Submit 服务端评分；违规次数达到上限或超时的测验会被标记，标记后的通过不计入进度
func (s *QuestionService) Submit(ctx context.Context, userID uint, attemptID string, in SubmitAttemptInput) (*SubmitResult, error) {
	attempt, err := s.Attempts.FindForUser(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.SubmittedAt != nil {
		return nil, util.ErrAttemptSubmitted
	}

	questions := attempt.Questions.Data()
	if len(in.Answers) > len(questions) {
		return nil, util.ErrInvalidSubmission
	}
	for _, a := range in.Answers {
		if a < -1 || a > 3 {
			return nil, util.ErrInvalidSubmission
		}
	}
	if in.Violations < 0 {
		in.Violations = 0
	}

	policy := s.Policy.Load()
	now := time.Now()
	score := learning.Grade(questions, in.Answers)
	pct, passed := learning.Passed(score, len(questions), policy.PassThreshold)

	attempt.Answers = datatypes.NewJSONType(in.Answers)
	attempt.Score = score
	attempt.Total = len(questions)
	attempt.Percentage = pct
	attempt.Passed = passed
	attempt.Violations = in.Violations
	attempt.Reason = truncate(strings.TrimSpace(in.Reason), 255)
	attempt.VideoURL = truncate(strings.TrimSpace(in.VideoURL), 255)
	attempt.SubmittedAt = &now
	switch {
	case in.Violations >= policy.MaxViolations:
		attempt.Flagged = true
		if attempt.Reason == "" {
			attempt.Reason = fmt.Sprintf("%d proctoring violations", in.Violations)
		}
	case policy.AttemptTimeLimit > 0 && now.Sub(attempt.StartedAt) > policy.AttemptTimeLimit+time.Minute:
		attempt.Flagged = true
		attempt.Reason = "time limit exceeded"
	}

	if err := s.Attempts.Submit(ctx, attempt); err != nil {
		return nil, err
	}

	res := &SubmitResult{Attempt: attempt, Review: reviewAnswers(questions, in.Answers)}
	if attempt.Flagged {
		logger.Log.Warn("Proctored attempt flagged",
			zap.Uint("userID", userID),
			zap.String("attemptID", attempt.ID),
			zap.Int("violations", attempt.Violations),
			zap.String("reason", attempt.Reason))
		return res, nil
	}
	if !passed {
		return res, nil
	}

	outcome, err := s.Progress.RecordAssessment(ctx, userID, AssessmentInput{
		Domain:   attempt.Domain,
		Level:    attempt.Level,
		Kind:     attempt.Kind,
		ModuleID: attempt.ModuleID,
		Score:    score,
		Total:    len(questions),
	})
	if err != nil {
		if errors.Is(err, util.ErrInvalidInput) {
			return nil, err
		}
		logger.Log.Warn("Failed to record passed attempt", zap.String("attemptID", attempt.ID), zap.Error(err))
		return res, nil
	}
	res.Outcome = outcome
	return res, nil
}

func reviewAnswers(questions []model.Question, answers []int) []QuestionReview {
	review := make([]QuestionReview, len(questions))
	for i, q := range questions {
		answer := -1
		if i < len(answers) {
			answer = answers[i]
		}
		review[i] = QuestionReview{
			ID:           q.ID,
			Answer:       answer,
			CorrectIndex: q.CorrectIndex,
			Correct:      answer == q.CorrectIndex,
			Explanation:  q.Explanation,
		}
	}
	return review
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
