package app

import (
	"enliven_backend/docs"
	"enliven_backend/internal/config"
	"enliven_backend/internal/middleware"
	"enliven_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	{
		a.registerAccountRoutes(authGroup, c)
		a.registerLearningRoutes(authGroup, c)
		a.registerAssistantRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
			auth.POST("/logout", c.auth.Logout)
		}

		// 课程目录内容公开
		public.GET("/courses/:domain/:level", c.course.GetContent)
	}
}

func (a *App) registerAccountRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Me)

	profile := rg.Group("/profile")
	{
		profile.GET("/me", c.profile.GetProfile)
		profile.PUT("/update", c.profile.UpdateProfile)
		profile.POST("/avatar", c.profile.UploadAvatar)
		profile.POST("/add-badge", c.profile.AddBadge)
		profile.GET("/badges", c.profile.GetBadges)
	}
	rg.GET("/badges", c.profile.ListBadgeCatalog)

	user := rg.Group("/user")
	{
		user.GET("/assessment-questions", c.user.GetAssessmentQuestions)
		user.POST("/select-domain", c.user.SelectDomain)
		user.POST("/initial-assessment", c.user.InitialAssessment)
		user.POST("/award-badge", c.profile.AddBadge)
	}

	rg.GET("/dashboard", c.dashboard.GetDashboard)
}

func (a *App) registerLearningRoutes(rg *gin.RouterGroup, c *controllers) {
	roadmap := rg.Group("/roadmap")
	{
		roadmap.POST("/generate", c.roadmap.Generate)
		roadmap.GET("/my-roadmap", c.roadmap.MyRoadmap)
	}

	courses := rg.Group("/courses/:domain/:level")
	{
		courses.GET("/merged", c.course.GetMerged)
		courses.GET("/state", c.course.GetState)
		courses.POST("/lessons/:lessonId/complete", c.course.CompleteLesson)
	}

	progress := rg.Group("/progress")
	{
		progress.POST("/save", c.progress.SaveProgress)
		progress.POST("/assessment", c.progress.SaveAssessment)
		progress.GET("/:courseId", c.progress.GetProgress)
	}

	proctor := rg.Group("/proctor")
	{
		proctor.GET("/questions/:moduleId", c.proctor.GetModuleQuestions)
		proctor.GET("/final-questions", c.proctor.GetFinalQuestions)
		proctor.POST("/attempts/:attemptId/submit", c.proctor.SubmitAttempt)
	}

	rg.GET("/learning-path/overview", c.learningPath.GetOverview)
}

func (a *App) registerAssistantRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/notes/generate", c.notes.Generate)

	chatbot := rg.Group("/chatbot")
	{
		chatbot.POST("/context/update", c.chatbot.UpdateContext)
		chatbot.GET("/context", c.chatbot.GetContext)
		chatbot.POST("/message", c.chatbot.SendMessage)
		chatbot.GET("/history", c.chatbot.GetHistory)
	}
}
