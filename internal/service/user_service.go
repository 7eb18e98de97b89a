package service

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/logger"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SkillBeginner     = "Beginner"
	SkillIntermediate = "Intermediate"
	SkillAdvanced     = "Advanced"
)

const (
	AssessmentSourceLLM      = "llm"
	AssessmentSourceFallback = "fallback"
)

// AssessmentQuestion 入门自评题，选项依次对应 A-D
type AssessmentQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

var initialAssessmentQuestions = []AssessmentQuestion{
	{Question: "Do you have any prior knowledge in this domain?", Options: []string{"No knowledge", "Very basic", "Some experience", "Strong understanding"}},
	{Question: "How comfortable are you with the basics?", Options: []string{"Not comfortable", "Slightly comfortable", "Comfortable", "Very comfortable"}},
	{Question: "How much practical exposure do you have?", Options: []string{"None", "Only theory", "Small exercises", "Built small projects"}},
	{Question: "How well do you understand the core concepts?", Options: []string{"Don't understand", "Basic", "Good", "Very strong"}},
	{Question: "How fast do you learn new technical skills?", Options: []string{"Slow", "Average", "Fast", "Very fast"}},
}

var skillLevelPattern = regexp.MustCompile(`(?i)\b(beginner|intermediate|advanced)\b`)

type UpdateProfileInput struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
}

type AssessmentResult struct {
	SkillLevel string `json:"skillLevel"`
	Source     string `json:"source"`
}

type UserService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
	AI       *AIService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService, ai *AIService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Storage:  storage,
		AI:       ai,
	}
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	return s.UserRepo.FindByID(ctx, userID)
}

// UpdateProfile 只更新请求中出现的字段
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*model.User, error) {
	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", util.ErrInvalidInput)
		}
		fields["name"] = name
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.Location != nil {
		fields["location"] = strings.TrimSpace(*in.Location)
	}
	if err := s.UserRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.UserRepo.FindByID(ctx, userID)
}

// UploadAvatar 上传新头像并删除旧文件
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, filename string, r io.Reader, size int64, contentType string) (string, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("avatars/%d/%s%s", userID, model.GenerateUUID(), strings.ToLower(path.Ext(filename)))
	url, err := s.Storage.Upload(ctx, key, r, size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if err := s.UserRepo.UpdateFields(ctx, userID, map[string]interface{}{"avatar": url}); err != nil {
		return "", err
	}

	if old := user.Avatar; old != "" {
		if oldKey := avatarKey(old); oldKey != "" {
			if err := s.Storage.Delete(ctx, oldKey); err != nil {
				logger.Log.Warn("Failed to delete old avatar", zap.Uint("userID", userID), zap.String("key", oldKey), zap.Error(err))
			}
		}
	}
	return url, nil
}

// avatarKey 从访问 URL 中还原存储路径
func avatarKey(url string) string {
	idx := strings.Index(url, "avatars/")
	if idx < 0 {
		return ""
	}
	return url[idx:]
}

// SelectDomain 保存学习方向，领域名保留用户输入的展示形式
func (s *UserService) SelectDomain(ctx context.Context, userID uint, domain string) (string, error) {
	domain = strings.Join(strings.Fields(domain), " ")
	if catalog.DomainSlug(domain) == "" {
		return "", fmt.Errorf("%w: domain is required", util.ErrInvalidInput)
	}
	if err := s.UserRepo.UpdateFields(ctx, userID, map[string]interface{}{"domain": domain}); err != nil {
		return "", err
	}
	return domain, nil
}

func (s *UserService) AssessmentQuestions() []AssessmentQuestion {
	return initialAssessmentQuestions
}

// InitialAssessment 由模型判定级别，模型不可用或输出无法识别时按答案平均分判定
func (s *UserService) InitialAssessment(ctx context.Context, userID uint, answers []string) (*AssessmentResult, error) {
	normalized, err := normalizeAnswers(answers)
	if err != nil {
		return nil, err
	}

	result := &AssessmentResult{SkillLevel: classifyByAverage(normalized), Source: AssessmentSourceFallback}
	if level, err := s.classifyWithModel(ctx, normalized); err == nil {
		result.SkillLevel = level
		result.Source = AssessmentSourceLLM
	} else {
		logger.Log.Warn("Skill classification fell back to answer average", zap.Uint("userID", userID), zap.Error(err))
	}

	if err := s.UserRepo.UpdateFields(ctx, userID, map[string]interface{}{"skill_level": result.SkillLevel}); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeAnswers(answers []string) ([]string, error) {
	if len(answers) != len(initialAssessmentQuestions) {
		return nil, util.ErrInvalidAnswers
	}
	out := make([]string, len(answers))
	for i, a := range answers {
		a = strings.ToUpper(strings.TrimSpace(a))
		if len(a) != 1 || a[0] < 'A' || a[0] > 'D' {
			return nil, util.ErrInvalidAnswers
		}
		out[i] = a
	}
	return out, nil
}

// classifyByAverage A-D 计 1-4 分，平均分 <2 为初级，<3 为中级
func classifyByAverage(answers []string) string {
	total := 0
	for _, a := range answers {
		total += int(a[0]-'A') + 1
	}
	avg := float64(total) / float64(len(answers))
	switch {
	case avg < 2:
		return SkillBeginner
	case avg < 3:
		return SkillIntermediate
	default:
		return SkillAdvanced
	}
}

func (s *UserService) classifyWithModel(ctx context.Context, answers []string) (string, error) {
	prompt := fmt.Sprintf(`You are an evaluator. Classify the student's skill level based on these MCQ answers.

Options meaning:
A = Very Low
B = Basic
C = Moderate
D = Strong

User answers: %s

Return only one word: Beginner, Intermediate, or Advanced.`, strings.Join(answers, ", "))

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	raw, err := s.AI.Complete(ctx, "classify", llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return "", err
	}
	match := skillLevelPattern.FindString(raw)
	if match == "" {
		return "", fmt.Errorf("unrecognized skill level: %s", llm.SummarizeSnippet(raw))
	}
	return strings.ToUpper(match[:1]) + strings.ToLower(match[1:]), nil
}
