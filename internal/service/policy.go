package service

import (
	"enliven_backend/internal/config"
	"enliven_backend/internal/learning"
	"sync/atomic"
	"time"
)

// AssessmentPolicy 测验与路线图策略，配置文件变更时整体替换
type AssessmentPolicy struct {
	PassThreshold       int
	ModuleQuestionCount int
	FinalQuestionCount  int
	MaxViolations       int
	RoadmapFallbackSize int
	AttemptTimeLimit    time.Duration
}

func PolicyFromConfig(cfg config.AssessmentConfig) AssessmentPolicy {
	p := AssessmentPolicy{
		PassThreshold:       cfg.PassThreshold,
		ModuleQuestionCount: cfg.ModuleQuestionCount,
		FinalQuestionCount:  cfg.FinalQuestionCount,
		MaxViolations:       cfg.MaxViolations,
		RoadmapFallbackSize: cfg.RoadmapFallbackSize,
		AttemptTimeLimit:    time.Duration(cfg.AttemptTimeLimitSecs) * time.Second,
	}
	if p.PassThreshold <= 0 || p.PassThreshold > 100 {
		p.PassThreshold = 60
	}
	if p.ModuleQuestionCount <= 0 {
		p.ModuleQuestionCount = 10
	}
	if p.FinalQuestionCount <= 0 {
		p.FinalQuestionCount = 30
	}
	if p.MaxViolations <= 0 {
		p.MaxViolations = 3
	}
	if p.RoadmapFallbackSize <= 0 {
		p.RoadmapFallbackSize = learning.DefaultFallbackSize
	}
	return p
}

type PolicyHolder struct {
	v atomic.Pointer[AssessmentPolicy]
}

func NewPolicyHolder(cfg config.AssessmentConfig) *PolicyHolder {
	h := &PolicyHolder{}
	h.Update(cfg)
	return h
}

func (h *PolicyHolder) Load() AssessmentPolicy {
	return *h.v.Load()
}

func (h *PolicyHolder) Update(cfg config.AssessmentConfig) {
	p := PolicyFromConfig(cfg)
	h.v.Store(&p)
}
