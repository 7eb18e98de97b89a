package learning

import (
	"errors"
	"math"

	"enliven_backend/internal/model"
)

// MaxVideosPerTopic 单个模块允许记录的视频序号上限
const MaxVideosPerTopic = 500

var ErrInvalidVideoIndex = errors.New("video index out of range")

func validIndex(i int) bool {
	return i >= 0 && i < MaxVideosPerTopic
}

// ValidateTopicProgress 检查 currentIndex 与视频序号范围
func ValidateTopicProgress(tp model.TopicProgress) error {
	if tp.TopicID <= 0 {
		return errors.New("topicId must be a positive sequence number")
	}
	if !validIndex(tp.CurrentIndex) {
		return ErrInvalidVideoIndex
	}
	for idx := range tp.VideoProgress {
		if !validIndex(idx) {
			return ErrInvalidVideoIndex
		}
	}
	for idx := range tp.ResourceProgress {
		if !validIndex(idx) {
			return ErrInvalidVideoIndex
		}
	}
	return nil
}

// MergeTopicProgress 视频与资料的完成标记逐项覆盖，currentIndex 以新值为准
func MergeTopicProgress(existing, incoming model.TopicProgress) model.TopicProgress {
	merged := model.TopicProgress{
		TopicID:       incoming.TopicID,
		VideoProgress: make(model.VideoProgress, len(existing.VideoProgress)+len(incoming.VideoProgress)),
		CurrentIndex:  incoming.CurrentIndex,
	}
	for k, v := range existing.VideoProgress {
		merged.VideoProgress[k] = v
	}
	for k, v := range incoming.VideoProgress {
		merged.VideoProgress[k] = v
	}
	if len(existing.ResourceProgress)+len(incoming.ResourceProgress) > 0 {
		merged.ResourceProgress = make(model.ResourceProgress, len(existing.ResourceProgress)+len(incoming.ResourceProgress))
		for k, v := range existing.ResourceProgress {
			merged.ResourceProgress[k] = v
		}
		for k, v := range incoming.ResourceProgress {
			merged.ResourceProgress[k] = v
		}
	}
	return merged
}

// TopicCounts 已记录视频中完成的数量与总数
func TopicCounts(tp model.TopicProgress) (done, tracked int) {
	for _, v := range tp.VideoProgress {
		tracked++
		if v {
			done++
		}
	}
	return done, tracked
}

func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// Passed 百分比达到阈值即通过
func Passed(score, total, threshold int) (int, bool) {
	pct := Percentage(score, total)
	return pct, total > 0 && pct >= threshold
}
