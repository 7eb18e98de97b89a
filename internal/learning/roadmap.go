package learning

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"enliven_backend/internal/model"
	"enliven_backend/pkg/llm"
)

const (
	DefaultFallbackSize = 6
	MaxRoadmapTopics    = 8
)

var ErrNoRoadmapTopics = errors.New("no usable roadmap topics in model output")

// RoadmapPrompt 要求模型只从给定标题中挑选 5-7 个主题
func RoadmapPrompt(domain, level string, titles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert curriculum designer. A %s learner wants to study %s.\n", level, domain)
	b.WriteString("Choose between 5 and 7 topics ONLY from this list of allowed titles, in the order they should be learned:\n")
	for _, t := range titles {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("Use each title exactly as written. Do not invent new titles.\n")
	b.WriteString(`Respond ONLY with a JSON array like [{"title": "...", "description": "one sentence", "sequenceNumber": 1}].`)
	return b.String()
}

type rankedTopic struct {
	topic model.RoadmapTopic
	rank  int
	pos   int
}

// AssembleRoadmap 解析模型输出并校验为合法路线图：标题对齐目录、去重、排序并重新编号
func AssembleRoadmap(raw string, titles []string) ([]model.RoadmapTopic, error) {
	items := llm.DecodeObjects(raw)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: unparseable payload %s", ErrNoRoadmapTopics, llm.SummarizeSnippet(raw))
	}

	seen := make(map[string]struct{}, len(items))
	ranked := make([]rankedTopic, 0, len(items))
	for i, item := range items {
		title, ok := Reconcile(stringField(item, "title", "topic", "name"), titles)
		if !ok {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}

		description := stringField(item, "description")
		if description == "" {
			description = fallbackDescription(title)
		}
		rank := i + 1
		if n, ok := intField(item, "sequenceNumber", "sequence", "order"); ok && n > 0 {
			rank = n
		}
		ranked = append(ranked, rankedTopic{
			topic: model.RoadmapTopic{Title: title, Description: description},
			rank:  rank,
			pos:   i,
		})
	}
	if len(ranked) == 0 {
		return nil, ErrNoRoadmapTopics
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].rank != ranked[j].rank {
			return ranked[i].rank < ranked[j].rank
		}
		return ranked[i].pos < ranked[j].pos
	})
	if len(ranked) > MaxRoadmapTopics {
		ranked = ranked[:MaxRoadmapTopics]
	}

	topics := make([]model.RoadmapTopic, len(ranked))
	for i, r := range ranked {
		topics[i] = r.topic
		topics[i].SequenceNumber = i + 1
	}
	return topics, nil
}

// FallbackRoadmap 取目录前 size 个标题，保证离线时也能生成路线图
func FallbackRoadmap(titles []string, size int) []model.RoadmapTopic {
	if size <= 0 {
		size = DefaultFallbackSize
	}
	if size > len(titles) {
		size = len(titles)
	}
	topics := make([]model.RoadmapTopic, 0, size)
	for i := 0; i < size; i++ {
		topics = append(topics, model.RoadmapTopic{
			Title:          titles[i],
			Description:    fallbackDescription(titles[i]),
			SequenceNumber: i + 1,
		})
	}
	return topics
}

func fallbackDescription(title string) string {
	return fmt.Sprintf("Learn %s with hands-on practice.", title)
}
