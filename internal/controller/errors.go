package controller

import (
	"enliven_backend/internal/learning"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/llm"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 将领域错误映射为统一响应，未识别的错误记录日志并返回 500
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidInput),
		errors.Is(err, util.ErrInvalidAnswers),
		errors.Is(err, util.ErrInvalidSubmission),
		errors.Is(err, util.ErrUnknownContextKey),
		errors.Is(err, learning.ErrInvalidVideoIndex):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(ctx, http.StatusConflict, "Email already registered")
	case errors.Is(err, util.ErrUserNotFound):
		util.Error(ctx, http.StatusNotFound, "User not found")
	case errors.Is(err, util.ErrRoadmapNotFound):
		util.Error(ctx, http.StatusNotFound, "Roadmap not found")
	case errors.Is(err, util.ErrCatalogNotFound):
		util.Error(ctx, http.StatusNotFound, "No course content found for domain/level")
	case errors.Is(err, util.ErrProgressNotFound):
		util.Error(ctx, http.StatusNotFound, "Progress not found")
	case errors.Is(err, util.ErrBadgeNotFound):
		util.Error(ctx, http.StatusNotFound, "Badge not found")
	case errors.Is(err, util.ErrAttemptNotFound):
		util.Error(ctx, http.StatusNotFound, "Attempt not found")
	case errors.Is(err, learning.ErrLessonNotFound):
		util.Error(ctx, http.StatusNotFound, "Lesson not found")
	case errors.Is(err, learning.ErrLessonLocked):
		util.Error(ctx, http.StatusConflict, "Lesson is locked")
	case errors.Is(err, util.ErrAttemptSubmitted):
		util.Error(ctx, http.StatusConflict, "Attempt already submitted")
	case errors.Is(err, util.ErrNotEligible):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrStaleChatContext), errors.Is(err, util.ErrStaleProgress):
		util.Error(ctx, http.StatusConflict, "Please retry, the record was updated concurrently")
	case errors.Is(err, llm.ErrMissingAPIKey):
		util.Error(ctx, http.StatusServiceUnavailable, "AI service is not configured")
	case errors.Is(err, learning.ErrNoQuestions), errors.Is(err, llm.ErrEmptyContent):
		util.LogError(ctx, err)
		util.Error(ctx, http.StatusBadGateway, "AI returned an unusable response, please try again")
	default:
		util.LogInternalError(ctx, err)
	}
}

// currentUserID 未登录时已写入 401 响应
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}
