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

	_ "github.com/noah-isme/afterschool-match-api/api/swagger"
	"github.com/noah-isme/afterschool-match-api/internal/handler"
	"github.com/noah-isme/afterschool-match-api/internal/middleware"
	"github.com/noah-isme/afterschool-match-api/internal/repository"
	"github.com/noah-isme/afterschool-match-api/internal/service"
	"github.com/noah-isme/afterschool-match-api/pkg/cache"
	"github.com/noah-isme/afterschool-match-api/pkg/config"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
	"github.com/noah-isme/afterschool-match-api/pkg/export"
	"github.com/noah-isme/afterschool-match-api/pkg/jobs"
	"github.com/noah-isme/afterschool-match-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/afterschool-match-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/afterschool-match-api/pkg/middleware/requestid"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 20 * time.Second
)

// @title Afterschool Match API
// @version 1.0.0
// @description Enrollment admission control and teacher/course matching for afterschool programs.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, weight cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	childRepo := repository.NewChildRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	matchRecordRepo := repository.NewMatchRecordRepository(db)
	parameterRepo := repository.NewParameterRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db, cfg.Admission.LockTimeout)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	scorer := service.NewScorer(cfg.Matching.RatingScale)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Matching.WeightsCacheTTL, logr, cfg.Matching.CacheEnabled)

	recomputeSvc := service.NewRecomputeService(matchRecordRepo, teacherRepo, scorer, metrics, logr, service.RecomputeConfig{
		Enabled:         cfg.Recompute.Enabled,
		RatingThreshold: cfg.Recompute.RatingThreshold,
		Queue: jobs.QueueConfig{
			Workers:    cfg.Recompute.Workers,
			BufferSize: cfg.Recompute.BufferSize,
			MaxRetries: cfg.Recompute.MaxRetries,
			RetryDelay: cfg.Recompute.RetryDelay,
			Logger:     logr,
		},
	})
	recomputeSvc.Start(ctx)
	defer recomputeSvc.Stop()

	parameterSvc := service.NewParameterService(parameterRepo, cacheSvc, recomputeSvc, validate, logr)
	rankingSvc := service.NewRankingService(childRepo, teacherRepo, courseRepo, matchRecordRepo, parameterSvc, scorer, metrics, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, childRepo, courseRepo, enrollmentRepo, validate, metrics, logr, service.AdmissionConfig{
		MaxAttempts:    cfg.Admission.MaxAttempts,
		InitialBackoff: cfg.Admission.InitialBackoff,
		MaxBackoff:     cfg.Admission.MaxBackoff,
		AttemptTimeout: cfg.Admission.AttemptTimeout,
	})
	exportSvc := service.NewExportService(courseRepo, enrollmentRepo, export.NewRegistry(), logr, cfg.Exports.Enabled)
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.Register(r, handler.Handlers{
		Enrollment: handler.NewEnrollmentHandler(admissionSvc),
		Matching:   handler.NewMatchingHandler(rankingSvc),
		Parameter:  handler.NewParameterHandler(parameterSvc),
		Recompute:  handler.NewRecomputeHandler(recomputeSvc),
		Export:     handler.NewExportHandler(exportSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis":    cacheRepo.Ping,
		}),
	}, handler.RouteConfig{
		Prefix:   cfg.APIPrefix,
		Tokens:   tokenSvc,
		AuditLog: logr.Named("audit"),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
