package learning

import (
	"errors"
	"fmt"
	"strings"

	"enliven_backend/internal/model"
	"enliven_backend/pkg/llm"
)

const (
	optionsPerQuestion = 4
	defaultDifficulty  = 3
)

var ErrNoQuestions = errors.New("no valid questions in model output")

// QuestionPrompt 生成单选题的提示词
func QuestionPrompt(topic string, count int) string {
	return fmt.Sprintf(`Create %d multiple-choice questions to assess a learner on: %s.
Each question must have exactly 4 options and one correct answer.
Return ONLY a JSON array where each item looks like:
{"id": "q1", "question": "...", "options": ["A", "B", "C", "D"], "correctIndex": 0, "explanation": "...", "difficulty": 1}
difficulty is an integer from 1 (easy) to 5 (hard).`, count, topic)
}

// ParseQuestions 解析并校验模型输出，丢弃不合法的题目，超出 count 的部分截断
func ParseQuestions(raw string, count int) ([]model.Question, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrNoQuestions)
	}
	items := llm.DecodeObjects(raw)

	questions := make([]model.Question, 0, len(items))
	usedIDs := make(map[string]struct{}, len(items))
	for _, item := range items {
		q, ok := questionFrom(item)
		if !ok {
			continue
		}
		if _, dup := usedIDs[q.ID]; q.ID == "" || dup {
			q.ID = ""
		}
		questions = append(questions, q)
		if q.ID != "" {
			usedIDs[q.ID] = struct{}{}
		}
		if count > 0 && len(questions) == count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQuestions, llm.SummarizeSnippet(raw))
	}

	for i := range questions {
		if questions[i].ID != "" {
			continue
		}
		for n := i + 1; ; n++ {
			id := fmt.Sprintf("q%d", n)
			if _, taken := usedIDs[id]; !taken {
				questions[i].ID = id
				usedIDs[id] = struct{}{}
				break
			}
		}
	}
	return questions, nil
}

func questionFrom(item map[string]any) (model.Question, bool) {
	text := stringField(item, "question", "prompt")
	if text == "" {
		return model.Question{}, false
	}
	options, ok := stringSliceField(item, "options")
	if !ok || len(options) != optionsPerQuestion {
		return model.Question{}, false
	}
	for _, o := range options {
		if o == "" {
			return model.Question{}, false
		}
	}
	correct, ok := intField(item, "correctIndex", "answerIndex")
	if !ok || correct < 0 || correct >= optionsPerQuestion {
		return model.Question{}, false
	}
	difficulty, ok := intField(item, "difficulty")
	switch {
	case !ok:
		difficulty = defaultDifficulty
	case difficulty < 1:
		difficulty = 1
	case difficulty > 5:
		difficulty = 5
	}
	return model.Question{
		ID:           stringField(item, "id"),
		Question:     text,
		Options:      options,
		CorrectIndex: correct,
		Explanation:  stringField(item, "explanation"),
		Difficulty:   difficulty,
	}, true
}

// Grade 按题目顺序比对答案，未作答或越界视为错误
func Grade(questions []model.Question, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			score++
		}
	}
	return score
}
