package model

import (
	"sort"

	"gorm.io/datatypes"
)

// VideoProgress 视频序号 -> 是否完成
type VideoProgress map[int]bool

// ResourceProgress 阅读资料序号 -> 是否完成
type ResourceProgress map[int]bool

// TopicProgress 单个模块（路线图主题）的进度，TopicID 为主题序号
type TopicProgress struct {
	TopicID          int              `json:"topicId"`
	VideoProgress    VideoProgress    `json:"videoProgress"`
	ResourceProgress ResourceProgress `json:"resourceProgress,omitempty"`
	CurrentIndex     int              `json:"currentIndex"`
}

// CourseProgress 学习者在某门课程上的完整进度文档
type CourseProgress struct {
	BaseModel
	UserID             uint                                 `gorm:"uniqueIndex:idx_progress_user_course;not null" json:"userId"`
	CourseID           string                               `gorm:"size:191;uniqueIndex:idx_progress_user_course;not null" json:"courseId"`
	Topics             datatypes.JSONType[[]TopicProgress] `json:"progress"`
	ModuleTests        datatypes.JSONType[map[int]bool]    `json:"moduleTests"`
	FinalExamCompleted bool                                 `gorm:"default:false" json:"finalExamCompleted"`
	FinalExamScore     int                                  `gorm:"default:0" json:"finalExamScore"`
	Version            int                                  `gorm:"not null;default:0" json:"version"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

func NewCourseProgress(userID uint, courseID string) *CourseProgress {
	return &CourseProgress{
		UserID:      userID,
		CourseID:    courseID,
		Topics:      datatypes.NewJSONType([]TopicProgress{}),
		ModuleTests: datatypes.NewJSONType(map[int]bool{}),
	}
}

func (p *CourseProgress) Topic(topicID int) (TopicProgress, bool) {
	for _, t := range p.Topics.Data() {
		if t.TopicID == topicID {
			return t, true
		}
	}
	return TopicProgress{}, false
}

// SetTopic 覆盖同一主题的记录，保持按主题序号排序
func (p *CourseProgress) SetTopic(tp TopicProgress) {
	topics := append([]TopicProgress(nil), p.Topics.Data()...)
	replaced := false
	for i := range topics {
		if topics[i].TopicID == tp.TopicID {
			topics[i] = tp
			replaced = true
			break
		}
	}
	if !replaced {
		topics = append(topics, tp)
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].TopicID < topics[j].TopicID })
	p.Topics = datatypes.NewJSONType(topics)
}

func (p *CourseProgress) ModuleTestPassed(moduleID int) bool {
	return p.ModuleTests.Data()[moduleID]
}

func (p *CourseProgress) MarkModuleTest(moduleID int) {
	tests := make(map[int]bool, len(p.ModuleTests.Data())+1)
	for k, v := range p.ModuleTests.Data() {
		tests[k] = v
	}
	tests[moduleID] = true
	p.ModuleTests = datatypes.NewJSONType(tests)
}
