package app

import (
	"context"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/config"
	"enliven_backend/internal/controller"
	"enliven_backend/internal/event"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/service"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/configwatcher"
	"enliven_backend/pkg/database"
	"enliven_backend/pkg/llm"
	"enliven_backend/pkg/logger"
	"enliven_backend/pkg/monitoring"
	"enliven_backend/pkg/security"
	"enliven_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/v2/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Mongo           *mongo.Client
	Events          *event.EventPublisher
	Policy          *service.PolicyHolder
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	roadmap  *repository.RoadmapRepository
	progress *repository.ProgressRepository
	badge    *repository.BadgeRepository
	attempt  *repository.AttemptRepository
	chat     repository.ChatStore
}

type services struct {
	ai           *service.AIService
	storage      *service.StorageService
	auth         *service.AuthService
	user         *service.UserService
	badge        *service.BadgeService
	roadmap      *service.RoadmapService
	course       *service.CourseService
	progress     *service.ProgressService
	question     *service.QuestionService
	notes        *service.NotesService
	chat         *service.ChatService
	learningPath *service.LearningPathService
	dashboard    *service.DashboardService
}

type controllers struct {
	auth         *controller.AuthController
	profile      *controller.ProfileController
	user         *controller.UserController
	roadmap      *controller.RoadmapController
	course       *controller.CourseController
	progress     *controller.ProgressController
	proctor      *controller.ProctorController
	notes        *controller.NotesController
	chatbot      *controller.ChatbotController
	learningPath *controller.LearningPathController
	dashboard    *controller.DashboardController
	health       *controller.HealthController
}

// RegisterConfigCallback 配置文件变更后依次回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, chatDB *mongo.Database) *repositories {
	repos := &repositories{
		user:     repository.NewUserRepository(db),
		roadmap:  repository.NewRoadmapRepository(db),
		progress: repository.NewProgressRepository(db),
		badge:    repository.NewBadgeRepository(db),
		attempt:  repository.NewAttemptRepository(db),
	}
	if chatDB != nil {
		repos.chat = repository.NewMongoChatContextRepository(chatDB)
	} else {
		repos.chat = repository.NewChatContextRepository(db)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.AI.APIKey,
		BaseURL:        cfg.AI.BaseURL,
		Model:          cfg.AI.Model,
		TimeoutSeconds: cfg.AI.TimeoutSeconds,
		MaxRetries:     cfg.AI.MaxRetries,
	})
	if !client.Enabled() {
		logger.Log.Warn("AI API key is empty, model-backed features will fall back or fail fast")
	}

	ai := service.NewAIService(client, cfg.AI)
	storage := service.NewStorageService(cfg)
	cat := catalog.New(storage, cfg.Catalog.Root)
	badge := service.NewBadgeService(repos.badge, a.Events)
	course := service.NewCourseService(cat, repos.roadmap)
	progress := service.NewProgressService(repos.progress, course, badge, a.Events, a.Policy)
	learningPath := service.NewLearningPathService(repos.roadmap, repos.progress)

	return &services{
		ai:           ai,
		storage:      storage,
		auth:         service.NewAuthService(repos.user, cfg),
		user:         service.NewUserService(repos.user, storage, ai),
		badge:        badge,
		roadmap:      service.NewRoadmapService(repos.roadmap, cat, ai, badge, a.Events, a.Policy),
		course:       course,
		progress:     progress,
		question:     service.NewQuestionService(ai, repos.attempt, repos.roadmap, progress, a.Policy),
		notes:        service.NewNotesService(ai, a.Redis),
		chat:         service.NewChatService(repos.chat, ai, cfg.Chat.HistoryLimit),
		learningPath: learningPath,
		dashboard:    service.NewDashboardService(repos.user, repos.roadmap, learningPath, badge),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, a.Config.JWT.ExpireTime, a.Config.Server.Mode == "release"),
		profile:      controller.NewProfileController(s.user, s.badge),
		user:         controller.NewUserController(s.user),
		roadmap:      controller.NewRoadmapController(s.roadmap),
		course:       controller.NewCourseController(s.course, s.progress),
		progress:     controller.NewProgressController(s.progress),
		proctor:      controller.NewProctorController(s.question),
		notes:        controller.NewNotesController(s.notes),
		chatbot:      controller.NewChatbotController(s.chat),
		learningPath: controller.NewLearningPathController(s.learningPath),
		dashboard:    controller.NewDashboardController(s.dashboard),
		health:       controller.NewHealthController(db, a.Redis),
	}
}

func (a *App) setupMiddlewares(ctx context.Context, router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	limiter := security.NewLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	go limiter.Janitor(ctx)
	router.Use(security.RateLimiter(limiter))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.Policy.Update(newCfg.Assessment)
		logger.Log.Info("Assessment policy reloaded", zap.Any("policy", a.Policy.Load()))
	})

	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.ConfigDir, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func shouldMigrate(cfg *config.Config, db *gorm.DB) bool {
	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		return true
	}
	return database.NeedsMigration(db)
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if shouldMigrate(cfg, db) {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Policy: service.NewPolicyHolder(cfg.Assessment),
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	var chatDB *mongo.Database
	if cfg.Chat.Store == "mongo" {
		client, mdb, err := database.InitMongo(&cfg.Mongo)
		if err != nil {
			logger.Log.Fatal("Failed to initialize mongo", zap.Error(err))
		}
		app.Mongo = client
		chatDB = mdb
	}

	events, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		// 事件只用于下游统计，连接失败时降级为不发布
		logger.Log.Error("Failed to connect event publisher", zap.Error(err))
		events, _ = event.NewEventPublisher("", cfg.RabbitMQ.Exchange)
	}
	app.Events = events

	repos := app.initRepositories(db, chatDB)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("enliven-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(ctx, router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(ctx)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	a.Close(ctx)
	log.Println("Server exiting")
}

// Close 释放后台任务与外部连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			logger.Log.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			logger.Log.Error("Failed to disconnect mongo", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
}
