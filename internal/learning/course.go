package learning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"enliven_backend/internal/model"
)

type LessonStatus string

const (
	StatusLocked    LessonStatus = "locked"
	StatusCurrent   LessonStatus = "current"
	StatusCompleted LessonStatus = "completed"
)

type LessonKind string

const (
	LessonVideo   LessonKind = "video"
	LessonReading LessonKind = "reading"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrLessonLocked   = errors.New("lesson is locked")
)

type Video struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Duration  *int    `json:"duration"`
	Thumbnail *string `json:"thumbnail"`
}

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CourseItem 合并后的课程模块：路线图主题加上目录中对应的视频与资料
type CourseItem struct {
	SequenceNumber int        `json:"sequenceNumber"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Videos         []Video    `json:"videos"`
	Resources      []Resource `json:"resources"`
}

type Lesson struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	URL      string       `json:"url"`
	Kind     LessonKind   `json:"type"`
	Status   LessonStatus `json:"status"`
	ModuleID int          `json:"moduleId"`
	// 视频在模块内的序号，资料为 -1
	VideoIndex int `json:"videoIndex"`
	// 资料在模块内的序号，视频为 -1
	ResourceIndex int `json:"resourceIndex"`
}

type Module struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lessons     []*Lesson `json:"lessons"`
}

// Transition 完成一节课后的结果
type Transition struct {
	Lesson           *Lesson             `json:"lesson"`
	Next             *Lesson             `json:"next,omitempty"`
	AlreadyCompleted bool                `json:"alreadyCompleted"`
	TestRequired     int                 `json:"testRequired,omitempty"`
	CourseFinished   bool                `json:"courseFinished"`
	Topic            model.TopicProgress `json:"topic"`
}

// Course 课程内的课时状态机：locked -> current -> completed。
// 同一时刻最多一个 current 课时；跨模块前进需要上一模块测验已通过。
type Course struct {
	ID                 string
	modules            []*Module
	flat               []*Lesson
	byID               map[string]*Lesson
	moduleIdx          map[int]int
	tests              map[int]bool
	finalExamCompleted bool
	active             *Lesson
}

// NewCourse 根据合并后的课程与持久化进度重建课时状态
func NewCourse(courseID string, items []CourseItem, progress *model.CourseProgress) *Course {
	sorted := append([]CourseItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })

	c := &Course{
		ID:        courseID,
		byID:      make(map[string]*Lesson),
		moduleIdx: make(map[int]int, len(sorted)),
		tests:     make(map[int]bool),
	}

	for _, item := range sorted {
		m := &Module{ID: item.SequenceNumber, Title: item.Title, Description: item.Description}
		for i, v := range item.Videos {
			title := v.Title
			if title == "" {
				title = item.Title
			}
			m.Lessons = append(m.Lessons, &Lesson{
				ID:         fmt.Sprintf("%d-V%d", item.SequenceNumber, i+1),
				Title:      title,
				URL:        v.URL,
				Kind:          LessonVideo,
				Status:        StatusLocked,
				ModuleID:      m.ID,
				VideoIndex:    i,
				ResourceIndex: -1,
			})
		}
		for i, r := range item.Resources {
			title := r.Title
			if title == "" {
				title = item.Title
			}
			m.Lessons = append(m.Lessons, &Lesson{
				ID:         fmt.Sprintf("%d-R%d", item.SequenceNumber, i+1),
				Title:      title,
				URL:        r.URL,
				Kind:          LessonReading,
				Status:        StatusLocked,
				ModuleID:      m.ID,
				VideoIndex:    -1,
				ResourceIndex: i,
			})
		}
		c.moduleIdx[m.ID] = len(c.modules)
		c.modules = append(c.modules, m)
		for _, l := range m.Lessons {
			c.flat = append(c.flat, l)
			c.byID[l.ID] = l
		}
	}

	var saved map[int]model.TopicProgress
	if progress != nil {
		saved = make(map[int]model.TopicProgress)
		for _, tp := range progress.Topics.Data() {
			saved[tp.TopicID] = tp
		}
		for id, done := range progress.ModuleTests.Data() {
			if done {
				c.tests[id] = true
			}
		}
		c.finalExamCompleted = progress.FinalExamCompleted
	}

	for _, m := range c.modules {
		tp, ok := saved[m.ID]
		if !ok {
			continue
		}
		for _, l := range m.Lessons {
			switch {
			case l.Kind == LessonVideo && tp.VideoProgress[l.VideoIndex]:
				l.Status = StatusCompleted
			case l.Kind == LessonReading && tp.ResourceProgress[l.ResourceIndex]:
				l.Status = StatusCompleted
			}
		}
	}

	c.resolveActive(saved)
	return c
}

// resolveActive 重新加载时确定唯一的 current 课时：
// 先取第一个有进度记录的模块中 currentIndex 指向且未完成的视频，
// 否则取第一个可达且未完成的课时；都没有时停在最后完成的课时上。
func (c *Course) resolveActive(saved map[int]model.TopicProgress) {
	for i, m := range c.modules {
		tp, ok := saved[m.ID]
		if !ok || !c.reachable(i) {
			continue
		}
		for _, l := range m.Lessons {
			if l.Kind == LessonVideo && l.VideoIndex == tp.CurrentIndex && l.Status != StatusCompleted {
				l.Status = StatusCurrent
				c.active = l
				return
			}
		}
	}
	if next := c.firstOpenLesson(); next != nil {
		next.Status = StatusCurrent
		c.active = next
		return
	}
	for i := len(c.flat) - 1; i >= 0; i-- {
		if c.flat[i].Status == StatusCompleted {
			c.active = c.flat[i]
			return
		}
	}
}

// reachable 第一个模块总是可达，其余模块要求前一模块测验已通过
func (c *Course) reachable(moduleIdx int) bool {
	if moduleIdx <= 0 {
		return true
	}
	return c.tests[c.modules[moduleIdx-1].ID]
}

func (c *Course) firstOpenLesson() *Lesson {
	for _, l := range c.flat {
		if l.Status == StatusCompleted {
			continue
		}
		if c.reachable(c.moduleIdx[l.ModuleID]) {
			return l
		}
		return nil
	}
	return nil
}

// boundaryOpen 从 from 模块跨到 to 模块之间的每个模块测验都已通过
func (c *Course) boundaryOpen(from, to int) bool {
	for i := c.moduleIdx[from]; i < c.moduleIdx[to]; i++ {
		if !c.tests[c.modules[i].ID] {
			return false
		}
	}
	return true
}

// Complete 将 current 课时标记为完成并尝试前进
func (c *Course) Complete(lessonID string) (Transition, error) {
	l, ok := c.byID[lessonID]
	if !ok {
		return Transition{}, ErrLessonNotFound
	}
	switch l.Status {
	case StatusLocked:
		return Transition{}, ErrLessonLocked
	case StatusCompleted:
		return Transition{
			Lesson:           l,
			Next:             c.Current(),
			AlreadyCompleted: true,
			CourseFinished:   c.AllModulesCompleted(),
			Topic:            c.TopicProgress(l.ModuleID),
		}, nil
	}

	l.Status = StatusCompleted
	t := Transition{Lesson: l, Topic: c.TopicProgress(l.ModuleID)}
	c.active = l

	var next *Lesson
	for i := c.indexOf(l) + 1; i < len(c.flat); i++ {
		if c.flat[i].Status != StatusCompleted {
			next = c.flat[i]
			break
		}
	}

	switch {
	case next == nil:
		t.CourseFinished = c.AllModulesCompleted()
	case next.ModuleID == l.ModuleID || c.boundaryOpen(l.ModuleID, next.ModuleID):
		next.Status = StatusCurrent
		c.active = next
		t.Next = next
	default:
		t.TestRequired = l.ModuleID
	}
	return t, nil
}

func (c *Course) indexOf(l *Lesson) int {
	for i, x := range c.flat {
		if x == l {
			return i
		}
	}
	return -1
}

// RecordModuleTest 记录模块测验通过；若学习者正停在该模块边界，解锁下一模块的第一个课时
func (c *Course) RecordModuleTest(moduleID int) *Lesson {
	c.tests[moduleID] = true
	if c.Current() != nil {
		return nil
	}
	next := c.firstOpenLesson()
	if next == nil {
		return nil
	}
	next.Status = StatusCurrent
	c.active = next
	return next
}

func (c *Course) RecordFinalExam() {
	c.finalExamCompleted = true
}

// Current 当前唯一的 current 课时，没有时返回 nil
func (c *Course) Current() *Lesson {
	if c.active != nil && c.active.Status == StatusCurrent {
		return c.active
	}
	return nil
}

func (c *Course) Lesson(id string) (*Lesson, bool) {
	l, ok := c.byID[id]
	return l, ok
}

func (c *Course) Modules() []*Module {
	return c.modules
}

func (c *Course) ModuleTestPassed(moduleID int) bool {
	return c.tests[moduleID]
}

// SectionCompleted 模块至少有一个视频且全部完成
func (c *Course) SectionCompleted(moduleID int) bool {
	idx, ok := c.moduleIdx[moduleID]
	if !ok {
		return false
	}
	videos := 0
	for _, l := range c.modules[idx].Lessons {
		if l.Kind != LessonVideo {
			continue
		}
		videos++
		if l.Status != StatusCompleted {
			return false
		}
	}
	return videos > 0
}

func (c *Course) AllModulesCompleted() bool {
	if len(c.modules) == 0 {
		return false
	}
	for _, m := range c.modules {
		if !c.SectionCompleted(m.ID) {
			return false
		}
	}
	return true
}

// TopicProgress 生成模块的持久化进度：currentIndex 取第一个未完成视频，全部完成时取最大序号；
// 资料的完成标记写入 ResourceProgress
func (c *Course) TopicProgress(moduleID int) model.TopicProgress {
	tp := model.TopicProgress{TopicID: moduleID, VideoProgress: model.VideoProgress{}}
	idx, ok := c.moduleIdx[moduleID]
	if !ok {
		return tp
	}
	pending := -1
	maxIndex := 0
	for _, l := range c.modules[idx].Lessons {
		done := l.Status == StatusCompleted
		if l.Kind == LessonReading {
			if tp.ResourceProgress == nil {
				tp.ResourceProgress = model.ResourceProgress{}
			}
			tp.ResourceProgress[l.ResourceIndex] = done
			continue
		}
		tp.VideoProgress[l.VideoIndex] = done
		if !done && pending < 0 {
			pending = l.VideoIndex
		}
		if l.VideoIndex > maxIndex {
			maxIndex = l.VideoIndex
		}
	}
	if pending >= 0 {
		tp.CurrentIndex = pending
	} else {
		tp.CurrentIndex = maxIndex
	}
	return tp
}

// Percent 已完成课时占全部课时的百分比
func (c *Course) Percent() int {
	if len(c.flat) == 0 {
		return 0
	}
	done := 0
	for _, l := range c.flat {
		if l.Status == StatusCompleted {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(c.flat)) * 100))
}

type ModuleState struct {
	Module
	SectionCompleted bool `json:"sectionCompleted"`
	TestCompleted    bool `json:"testCompleted"`
}

type CourseState struct {
	CourseID            string        `json:"courseId"`
	Modules             []ModuleState `json:"modules"`
	CurrentLessonID     string        `json:"currentLessonId,omitempty"`
	AwaitingTestModule  int           `json:"awaitingTestModule,omitempty"`
	Progress            int           `json:"progress"`
	AllModulesCompleted bool          `json:"allModulesCompleted"`
	FinalExamCompleted  bool          `json:"finalExamCompleted"`
}

// State 供接口返回的快照
func (c *Course) State() CourseState {
	s := CourseState{
		CourseID:            c.ID,
		Modules:             make([]ModuleState, 0, len(c.modules)),
		Progress:            c.Percent(),
		AllModulesCompleted: c.AllModulesCompleted(),
		FinalExamCompleted:  c.finalExamCompleted,
	}
	for _, m := range c.modules {
		s.Modules = append(s.Modules, ModuleState{
			Module:           *m,
			SectionCompleted: c.SectionCompleted(m.ID),
			TestCompleted:    c.tests[m.ID],
		})
	}
	if cur := c.Current(); cur != nil {
		s.CurrentLessonID = cur.ID
	} else if c.active != nil && c.SectionCompleted(c.active.ModuleID) && !c.tests[c.active.ModuleID] && c.hasLaterModule(c.active.ModuleID) {
		s.AwaitingTestModule = c.active.ModuleID
	}
	return s
}

func (c *Course) hasLaterModule(moduleID int) bool {
	return c.moduleIdx[moduleID] < len(c.modules)-1
}
