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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/csi-attendance-api/api/swagger"
	"github.com/noah-isme/csi-attendance-api/internal/handler"
	internalmiddleware "github.com/noah-isme/csi-attendance-api/internal/middleware"
	"github.com/noah-isme/csi-attendance-api/internal/service"
	"github.com/noah-isme/csi-attendance-api/pkg/config"
	"github.com/noah-isme/csi-attendance-api/pkg/jobs"
	"github.com/noah-isme/csi-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/csi-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/csi-attendance-api/pkg/middleware/requestid"
)

// @title CSI Attendance API
// @version 1.0.0
// @description Classroom attendance sessions, statistics, reports and push notifications.
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

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

	backends, err := openBackends(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to init backends", zap.Error(err))
	}
	defer backends.Close()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	store := backends.store

	var cacheRepo service.CacheRepository
	checks := map[string]handler.Pinger{"store": store}
	if backends.redis != nil {
		cacheRepo = backends.redis
		checks["cache"] = backends.redis
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	opts := service.AttendanceOptions{
		EnforceOwnership:      cfg.Attendance.EnforceOwnership,
		EnforceRoster:         cfg.Attendance.EnforceRoster,
		DefaultSessionMinutes: cfg.Attendance.DefaultSessionDuration,
	}

	notificationSvc := service.NewNotificationService(store.Classes, store.Notifications, backends.sender, metrics, cfg.Notifications.BroadcastConcurrency, nil, logr)

	var notifier service.SessionNotifier
	var queue *jobs.Queue
	if cfg.Notifications.SessionStartEnabled {
		worker := service.NewSessionNotifyWorker(notificationSvc, logr)
		queue = jobs.NewQueue("session-notifications", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			Logger:     logr,
			OnResult: func(job jobs.Job, err error) {
				if err != nil {
					logr.Warn("session notification dropped", zap.String("session_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
				}
			},
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifier = service.NewQueueNotifier(queue)
	}

	classSvc := service.NewClassService(store.Classes, cacheSvc, nil, logr)
	sessionSvc := service.NewSessionService(store.Classes, store.Sessions, store.Attendance, cacheSvc, metrics, notifier, opts, nil, logr)
	attendanceSvc := service.NewAttendanceService(store.Sessions, store.Classes, store.Attendance, cacheSvc, metrics, opts, nil, logr)
	statsSvc := service.NewStatisticsService(store.Classes, store.Sessions, store.Attendance, cacheSvc, cfg.Stats.CacheTTL, logr)
	reportSvc := service.NewReportService(statsSvc, nil, logr)

	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	var verifier *internalmiddleware.IssuerVerifier
	if cfg.IssuerTokens.Enabled {
		verifier = internalmiddleware.NewIssuerVerifier(cfg.IssuerTokens.Secret)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.Issuer(verifier))
	api.Use(internalmiddleware.WithResponseMeta())
	handler.Register(api, handler.Handlers{
		Classes:       handler.NewClassHandler(classSvc),
		Sessions:      handler.NewSessionHandler(sessionSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Statistics:    handler.NewStatisticsHandler(statsSvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Metrics:       metricsHandler,
	}, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", store.Driver, "push", cfg.Notifications.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
