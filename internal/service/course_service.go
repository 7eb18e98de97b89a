package service

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/learning"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"sort"
)

// MergedCourse 学习者路线图与课程目录合并后的课程视图
type MergedCourse struct {
	CourseID string                `json:"courseId"`
	Domain   string                `json:"domain"`
	Level    string                `json:"level"`
	Items    []learning.CourseItem `json:"items"`
}

type CourseService struct {
	Catalog     *catalog.Catalog
	RoadmapRepo *repository.RoadmapRepository
}

func NewCourseService(cat *catalog.Catalog, roadmapRepo *repository.RoadmapRepository) *CourseService {
	return &CourseService{
		Catalog:     cat,
		RoadmapRepo: roadmapRepo,
	}
}

func (s *CourseService) Content(ctx context.Context, domain, level string) (*catalog.Content, error) {
	return s.Catalog.Load(ctx, domain, level)
}

// Merged 路线图必须与请求的方向和级别一致，否则视为不存在
func (s *CourseService) Merged(ctx context.Context, userID uint, domain, level string) (*MergedCourse, error) {
	domainSlug, levelSlug := catalog.DomainSlug(domain), catalog.LevelSlug(level)
	roadmap, err := s.RoadmapRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roadmap.Domain != domainSlug || roadmap.SkillLevel != levelSlug {
		return nil, util.ErrRoadmapNotFound
	}

	content, err := s.Catalog.Load(ctx, domainSlug, levelSlug)
	if err != nil {
		return nil, err
	}
	return &MergedCourse{
		CourseID: catalog.CourseID(domainSlug, levelSlug),
		Domain:   domainSlug,
		Level:    levelSlug,
		Items:    MergeCourseItems(roadmap.TopicList(), content),
	}, nil
}

// MergeCourseItems 按主题序号排列，每个主题对齐到目录步骤；没有匹配时视频与资料为空
func MergeCourseItems(topics []model.RoadmapTopic, content *catalog.Content) []learning.CourseItem {
	sorted := append([]model.RoadmapTopic(nil), topics...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })
	titles := content.Titles()

	items := make([]learning.CourseItem, 0, len(sorted))
	for _, topic := range sorted {
		item := learning.CourseItem{
			SequenceNumber: topic.SequenceNumber,
			Title:          topic.Title,
			Description:    topic.Description,
			Videos:         []learning.Video{},
			Resources:      []learning.Resource{},
		}
		if matched, ok := learning.Reconcile(topic.Title, titles); ok {
			step, _ := content.Step(matched)
			for _, link := range step.Links {
				if link == "" {
					continue
				}
				item.Videos = append(item.Videos, learning.Video{Title: topic.Title, URL: link})
			}
			for _, r := range step.Resources {
				if r.URL == "" {
					continue
				}
				item.Resources = append(item.Resources, learning.Resource{Title: r.Title, URL: r.URL})
			}
		}
		items = append(items, item)
	}
	return items
}
