package service

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/learning"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"errors"
	"sort"
	"strconv"
)

type PathTotals struct {
	VideosDone  int `json:"videosDone"`
	VideosTotal int `json:"videosTotal"`
	Percent     int `json:"percent"`
}

type PathNext struct {
	TopicID      string `json:"topicId"`
	CurrentIndex int    `json:"currentIndex"`
}

type PathTopic struct {
	SequenceNumber int       `json:"sequenceNumber"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Percent        int       `json:"percent"`
	VideosDone     int       `json:"videosDone"`
	VideosTracked  int       `json:"videosTracked"`
	Next           *PathNext `json:"next"`
}

type ContinuePath struct {
	URL        string `json:"url"`
	DomainSlug string `json:"domainSlug"`
	LevelSlug  string `json:"levelSlug"`
}

// LearningPathOverview 没有路线图时 Domain/SkillLevel/ContinuePath 为空
type LearningPathOverview struct {
	Domain       *string       `json:"domain"`
	SkillLevel   *string       `json:"skillLevel"`
	Totals       PathTotals    `json:"totals"`
	Topics       []PathTopic   `json:"topics"`
	ContinuePath *ContinuePath `json:"continuePath"`
}

type LearningPathService struct {
	RoadmapRepo  *repository.RoadmapRepository
	ProgressRepo *repository.ProgressRepository
}

func NewLearningPathService(roadmapRepo *repository.RoadmapRepository, progressRepo *repository.ProgressRepository) *LearningPathService {
	return &LearningPathService{
		RoadmapRepo:  roadmapRepo,
		ProgressRepo: progressRepo,
	}
}

// Overview 只根据已保存的视频完成标记计算百分比，未记录的主题为 0%
func (s *LearningPathService) Overview(ctx context.Context, userID uint) (*LearningPathOverview, error) {
	roadmap, err := s.RoadmapRepo.FindByUserID(ctx, userID)
	if errors.Is(err, util.ErrRoadmapNotFound) {
		return &LearningPathOverview{Topics: []PathTopic{}}, nil
	}
	if err != nil {
		return nil, err
	}

	domainSlug, levelSlug := catalog.DomainSlug(roadmap.Domain), catalog.LevelSlug(roadmap.SkillLevel)
	progress, err := s.ProgressRepo.FindOrNew(ctx, userID, catalog.CourseID(domainSlug, levelSlug))
	if err != nil {
		return nil, err
	}
	return BuildOverview(domainSlug, levelSlug, roadmap.TopicList(), progress), nil
}

func BuildOverview(domainSlug, levelSlug string, topics []model.RoadmapTopic, progress *model.CourseProgress) *LearningPathOverview {
	sorted := append([]model.RoadmapTopic(nil), topics...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })

	overview := &LearningPathOverview{
		Domain:     &domainSlug,
		SkillLevel: &levelSlug,
		Topics:     make([]PathTopic, 0, len(sorted)),
		ContinuePath: &ContinuePath{
			URL:        "/courses/" + domainSlug + "/" + levelSlug,
			DomainSlug: domainSlug,
			LevelSlug:  levelSlug,
		},
	}
	for _, topic := range sorted {
		item := PathTopic{
			SequenceNumber: topic.SequenceNumber,
			Title:          topic.Title,
			Description:    topic.Description,
		}
		if tp, ok := progress.Topic(topic.SequenceNumber); ok {
			item.VideosDone, item.VideosTracked = learning.TopicCounts(tp)
			item.Percent = learning.Percentage(item.VideosDone, item.VideosTracked)
			item.Next = &PathNext{TopicID: strconv.Itoa(topic.SequenceNumber), CurrentIndex: tp.CurrentIndex}
		}
		overview.Totals.VideosDone += item.VideosDone
		overview.Totals.VideosTotal += item.VideosTracked
		overview.Topics = append(overview.Topics, item)
	}
	overview.Totals.Percent = learning.Percentage(overview.Totals.VideosDone, overview.Totals.VideosTotal)
	return overview
}
