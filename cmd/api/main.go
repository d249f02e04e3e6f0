package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/civreg/personnel-api/api/swagger"
	"github.com/civreg/personnel-api/internal/handler"
	"github.com/civreg/personnel-api/internal/middleware"
	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/repository"
	"github.com/civreg/personnel-api/internal/service"
	"github.com/civreg/personnel-api/pkg/cache"
	"github.com/civreg/personnel-api/pkg/config"
	"github.com/civreg/personnel-api/pkg/database"
	"github.com/civreg/personnel-api/pkg/logger"
	corsmiddleware "github.com/civreg/personnel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/civreg/personnel-api/pkg/middleware/requestid"
	"github.com/civreg/personnel-api/pkg/storage"
)

// @title Personnel Records API
// @version 1.0.0
// @description Staff-facing registry of person records with attachments and an audit trail
// @BasePath /
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	uploads, err := storage.NewUploadStore(cfg.Uploads.Dir, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	// Redis is optional: stats endpoints fall back to direct queries when it
	// is unreachable.
	var cacheRepo service.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
	} else {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
	})
	recordSvc := service.NewRecordService(recordRepo, uploads, cacheSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, auditRepo, validate, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)
	dashboardSvc := service.NewDashboardService(recordRepo, userRepo, auditRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc, uploads)
	recordHandler := handler.NewRecordHandler(recordSvc)
	userHandler := handler.NewUserHandler(userSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	uploadHandler := handler.NewUploadHandler(uploads)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authenticated := middleware.Authenticate(authSvc)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authenticated, middleware.RequireAdmin(), authHandler.Register)
			auth.GET("/me", authenticated, authHandler.Me)
			auth.PUT("/profile", authenticated, authHandler.UpdateProfile)
			auth.POST("/change-password", authenticated, authHandler.ChangePassword)
		}

		records := api.Group("/records", authenticated)
		{
			records.GET("", recordHandler.List)
			records.GET("/export", middleware.RequireAdmin(), middleware.Audit(auditRepo, logr, models.AuditActionRecordExport), recordHandler.Export)
			records.GET("/:id", recordHandler.Get)
			records.POST("", middleware.Audit(auditRepo, logr, models.AuditActionRecordCreate), recordHandler.Create)
			records.PUT("/:id", middleware.Audit(auditRepo, logr, models.AuditActionRecordUpdate), recordHandler.Update)
			records.DELETE("/:id", middleware.Audit(auditRepo, logr, models.AuditActionRecordDelete), recordHandler.Delete)
		}

		api.GET("/dashboard/stats", authenticated, dashboardHandler.Overview)

		admin := api.Group("/admin", authenticated, middleware.RequireAdmin())
		{
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)
			admin.GET("/audit-logs", auditHandler.List)
			admin.GET("/audit-stats", auditHandler.Stats)
			admin.GET("/stats", dashboardHandler.AdminOverview)
		}
	}

	r.GET("/uploads/*filepath", authenticated, uploadHandler.Serve)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
