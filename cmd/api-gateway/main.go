package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-engage-api/api/swagger"
	"github.com/noah-isme/sma-engage-api/internal/handler"
	"github.com/noah-isme/sma-engage-api/internal/middleware"
	"github.com/noah-isme/sma-engage-api/internal/models"
	"github.com/noah-isme/sma-engage-api/internal/repository"
	"github.com/noah-isme/sma-engage-api/internal/service"
	"github.com/noah-isme/sma-engage-api/pkg/cache"
	"github.com/noah-isme/sma-engage-api/pkg/config"
	"github.com/noah-isme/sma-engage-api/pkg/database"
	"github.com/noah-isme/sma-engage-api/pkg/jobs"
	"github.com/noah-isme/sma-engage-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-engage-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-engage-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-engage-api/pkg/realtime"
)

// @title SMA Engage API
// @version 1.0.0
// @description Student engagement backend: ratings, rankings, points, rewards, competitions and messaging.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	bonusTaskRepo := repository.NewBonusTaskRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	competitionRepo := repository.NewCompetitionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Cross-cutting services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaderboard.CacheTTL, logr, cfg.Leaderboard.Enabled)
	notifier := realtime.NewNotifier(redisClient, cfg.Realtime.ChannelPrefix, logr, cfg.Realtime.Enabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-engage-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	// Engagement domain.
	ratingSvc := service.NewRatingService(ratingRepo, homeworkRepo, attendanceRepo, participationRepo,
		groupRepo, notifier, cacheSvc, metricsSvc, cfg.Ratings.MaxRecomputeRetries, validate, logr)

	rankWorker := service.NewRankWorker(ratingSvc, logr)
	queue := jobs.NewQueue("rank-resolver", rankWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	groupSvc := service.NewGroupService(groupRepo, ratingRepo, validate, logr)
	homeworkSvc := service.NewHomeworkService(homeworkRepo, groupRepo, ratingSvc, queue, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, ratingSvc, queue, validate, logr)
	participationSvc := service.NewParticipationService(participationRepo, groupRepo, ratingSvc, queue, validate, logr)
	pointsSvc := service.NewPointsService(pointsRepo, bonusTaskRepo, notifier, validate, logr)
	rewardSvc := service.NewRewardService(rewardRepo, pointsRepo, notifier, metricsSvc, validate, logr)
	competitionSvc := service.NewCompetitionService(competitionRepo, pointsSvc, notifier, validate, logr)
	messageSvc := service.NewMessageService(messageRepo, userRepo, notifier, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	homeworkHandler := handler.NewHomeworkHandler(homeworkSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	participationHandler := handler.NewParticipationHandler(participationSvc)
	pointsHandler := handler.NewPointsHandler(pointsSvc)
	rewardHandler := handler.NewRewardHandler(rewardSvc)
	competitionHandler := handler.NewCompetitionHandler(competitionSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	users := authed.Group("/users")
	users.GET("", adminOnly, userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", adminOnly, userHandler.Create)
	users.PUT("/:id", adminOnly, userHandler.Update)
	users.DELETE("/:id", adminOnly, userHandler.Delete)

	groups := authed.Group("/groups")
	groups.POST("", staff, groupHandler.Create)
	groups.GET("", groupHandler.List)
	groups.GET("/:groupId", groupHandler.Get)
	groups.POST("/:groupId/members", staff, middleware.Audit(userRepo, "ENROLL", "group_member"), groupHandler.AddMember)
	groups.GET("/:groupId/members", groupHandler.Members)
	groups.GET("/:groupId/leaderboard", ratingHandler.Leaderboard)
	groups.POST("/:groupId/resolve", staff, ratingHandler.Resolve)
	groups.GET("/:groupId/ratings/:studentId", ratingHandler.Get)
	groups.POST("/:groupId/snapshots", staff, ratingHandler.Snapshot)
	groups.GET("/:groupId/homeworks", homeworkHandler.ListByGroup)

	authed.POST("/ratings/recompute", staff, ratingHandler.Recompute)

	authed.POST("/homeworks", staff, homeworkHandler.Create)
	authed.POST("/homeworks/:id/submissions", studentOnly, homeworkHandler.Submit)
	authed.POST("/submissions/:id/grade", staff, homeworkHandler.Grade)

	authed.POST("/attendance", staff, attendanceHandler.Record)
	authed.GET("/attendance", attendanceHandler.List)

	authed.POST("/participation", staff, participationHandler.Record)
	authed.GET("/participation", participationHandler.List)

	authed.GET("/points/:userId", pointsHandler.Summary)
	authed.POST("/points/credit", staff, middleware.Audit(userRepo, "CREDIT", "points"), pointsHandler.Credit)
	authed.POST("/points/debit", staff, middleware.Audit(userRepo, "DEBIT", "points"), pointsHandler.Debit)

	authed.GET("/bonus-tasks", pointsHandler.ListTasks)
	authed.POST("/bonus-tasks", staff, pointsHandler.CreateTask)
	authed.POST("/bonus-tasks/:id/complete", staff, pointsHandler.CompleteTask)

	if cfg.Rewards.Enabled {
		rewards := authed.Group("/rewards")
		rewards.GET("", rewardHandler.List)
		rewards.POST("", adminOnly, rewardHandler.Create)
		rewards.POST("/:id/claim", studentOnly, rewardHandler.Claim)
		rewards.GET("/:id/claims", staff, rewardHandler.ListClaims)
		rewards.PATCH("/:id/claims/status", staff, middleware.Audit(userRepo, "CLAIM_STATUS", "reward_claim"), rewardHandler.UpdateClaimStatus)
	}

	competitions := authed.Group("/competitions")
	competitions.GET("", competitionHandler.List)
	competitions.GET("/:id", competitionHandler.Get)
	competitions.POST("", staff, competitionHandler.Create)
	competitions.POST("/:id/register", studentOnly, competitionHandler.Register)
	competitions.POST("/:id/submissions", staff, competitionHandler.RecordSubmission)
	competitions.PATCH("/:id/status", staff, competitionHandler.UpdateStatus)
	competitions.POST("/:id/winners", staff, middleware.Audit(userRepo, "ASSIGN_WINNERS", "competition"), competitionHandler.AssignWinners)

	authed.GET("/system/stats", adminOnly, metricsHandler.Stats)

	authed.POST("/messages", messageHandler.Send)
	authed.POST("/messages/:id/read", messageHandler.MarkRead)
	authed.GET("/conversations/:peerId", messageHandler.Conversation)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	srv := &http.Server{Addr: addr, Handler: r}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
