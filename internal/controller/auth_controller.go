package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const tokenCookie = "token"

type AuthController struct {
	AuthService *service.AuthService
	TokenTTL    time.Duration
	IsRelease   bool // 是否为生产环境
}

func NewAuthController(authService *service.AuthService, tokenTTL time.Duration, isRelease bool) *AuthController {
	return &AuthController{
		AuthService: authService,
		TokenTTL:    tokenTTL,
		IsRelease:   isRelease,
	}
}

// swagger:model RegisterRequest
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (c *AuthController) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(tokenCookie, token, maxAge, "/", "", c.IsRelease, true)
}

// Register godoc
// @Summary 注册新用户
// @Description 创建账号并返回 JWT，同时写入 token Cookie
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, token, err := c.AuthService.Register(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.setTokenCookie(ctx, token, int(c.TokenTTL/time.Second))
	util.Created(ctx, gin.H{"token": token, "user": user})
}

// Login godoc
// @Summary 用户登录
// @Description 验证用户身份并返回 JWT，同时写入 token Cookie
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, token, err := c.AuthService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.setTokenCookie(ctx, token, int(c.TokenTTL/time.Second))
	util.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout godoc
// @Summary 退出登录
// @Description 清除 token Cookie
// @Tags 认证
// @Produce  json
// @Success 200 {object} util.Response "成功"
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.setTokenCookie(ctx, "", -1)
	util.Success(ctx, gin.H{"loggedOut": true})
}

// Me godoc
// @Summary 当前登录用户
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := c.AuthService.CurrentUser(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
