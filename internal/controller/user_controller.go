package controller

import (
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

type SelectDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

type InitialAssessmentRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

// GetAssessmentQuestions godoc
// @Summary 入门自评题
// @Description 返回 5 道固定题目，选项依次对应 A-D
// @Tags 学习者
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.AssessmentQuestion} "成功"
// @Router /api/user/assessment-questions [get]
func (c *UserController) GetAssessmentQuestions(ctx *gin.Context) {
	util.Success(ctx, c.UserService.AssessmentQuestions())
}

// SelectDomain godoc
// @Summary 选择学习方向
// @Tags 学习者
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SelectDomainRequest true "学习方向"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/user/select-domain [post]
func (c *UserController) SelectDomain(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req SelectDomainRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	domain, err := c.UserService.SelectDomain(ctx.Request.Context(), userID, req.Domain)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"domain": domain})
}

// InitialAssessment godoc
// @Summary 提交入门自评
// @Description 由模型判定 Beginner/Intermediate/Advanced，模型不可用时按答案平均分判定
// @Tags 学习者
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body InitialAssessmentRequest true "5 个 A-D 答案"
// @Success 200 {object} util.Response{data=service.AssessmentResult} "成功"
// @Failure 400 {object} util.Response "答案不合法"
// @Router /api/user/initial-assessment [post]
func (c *UserController) InitialAssessment(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req InitialAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.UserService.InitialAssessment(ctx.Request.Context(), userID, req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
