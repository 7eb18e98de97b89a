package util

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrRoadmapNotFound    = errors.New("roadmap not found")
	ErrCatalogNotFound    = errors.New("course content not found")
	ErrProgressNotFound   = errors.New("progress not found")
	ErrStaleProgress      = errors.New("progress was modified concurrently")
	ErrStaleChatContext   = errors.New("chat context was modified concurrently")
	ErrBadgeNotFound      = errors.New("badge not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptSubmitted   = errors.New("attempt already submitted")
	ErrInvalidSubmission  = errors.New("answers do not match the attempt")
	ErrUnknownContextKey  = errors.New("unknown chat context key")
	ErrInvalidAnswers     = errors.New("exactly 5 answers between A and D are required")
	ErrNotEligible        = errors.New("assessment is not unlocked yet")
)
