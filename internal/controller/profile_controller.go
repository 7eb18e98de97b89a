package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	UserService  *service.UserService
	BadgeService *service.BadgeService
}

func NewProfileController(userService *service.UserService, badgeService *service.BadgeService) *ProfileController {
	return &ProfileController{
		UserService:  userService,
		BadgeService: badgeService,
	}
}

type AddBadgeRequest struct {
	BadgeID string `json:"badgeId" binding:"required"`
}

// GetProfile godoc
// @Summary 获取个人资料
// @Tags 个人资料
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/profile/me [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.Profile(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Description 只更新请求中出现的字段：name、bio、location
// @Tags 个人资料
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.UpdateProfileInput true "资料字段"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/profile/update [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req service.UpdateProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.UpdateProfile(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 个人资料
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   avatar formData file true "头像图片"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件不合法"
// @Router /api/profile/avatar [post]
func (c *ProfileController) UploadAvatar(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "avatar file is required")
		return
	}
	if file.Size > util.MaxAvatarSize {
		util.BadRequest(ctx, "avatar must be smaller than 5MB")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, util.MimeImage) {
		util.BadRequest(ctx, "avatar must be an image")
		return
	}

	f, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	url, err := c.UserService.UploadAvatar(ctx.Request.Context(), userID, file.Filename, f, file.Size, contentType)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatar": url})
}

// AddBadge godoc
// @Summary 授予徽章
// @Description 幂等：重复授予返回 alreadyAwarded=true
// @Tags 个人资料
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body AddBadgeRequest true "徽章ID"
// @Success 200 {object} util.Response{data=service.AwardResult} "已拥有"
// @Success 201 {object} util.Response{data=service.AwardResult} "新授予"
// @Failure 404 {object} util.Response "徽章不存在"
// @Router /api/profile/add-badge [post]
func (c *ProfileController) AddBadge(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req AddBadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.BadgeService.AwardBadge(ctx.Request.Context(), userID, strings.TrimSpace(req.BadgeID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if res.AlreadyAwarded {
		ctx.JSON(http.StatusOK, util.Response{Code: http.StatusOK, Message: "Badge already earned", Data: res})
		return
	}
	util.Created(ctx, res)
}

// GetBadges godoc
// @Summary 我的徽章
// @Tags 个人资料
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserBadge} "成功"
// @Router /api/profile/badges [get]
func (c *ProfileController) GetBadges(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	badges, err := c.BadgeService.UserBadges(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// ListBadgeCatalog godoc
// @Summary 徽章列表
// @Description 返回平台上所有可获得的徽章
// @Tags 个人资料
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Badge} "成功"
// @Router /api/badges [get]
func (c *ProfileController) ListBadgeCatalog(ctx *gin.Context) {
	badges, err := c.BadgeService.Catalog(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}
