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

	_ "github.com/noah-isme/gift-approval-api/api/swagger"
	"github.com/noah-isme/gift-approval-api/internal/handler"
	internalmiddleware "github.com/noah-isme/gift-approval-api/internal/middleware"
	"github.com/noah-isme/gift-approval-api/internal/repository"
	"github.com/noah-isme/gift-approval-api/internal/service"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	"github.com/noah-isme/gift-approval-api/pkg/cache"
	"github.com/noah-isme/gift-approval-api/pkg/config"
	"github.com/noah-isme/gift-approval-api/pkg/database"
	"github.com/noah-isme/gift-approval-api/pkg/jobs"
	"github.com/noah-isme/gift-approval-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gift-approval-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gift-approval-api/pkg/middleware/requestid"
)

// @title Gift Approval API
// @version 1.0.0
// @description Gift request approval workflow with transactional bulk import, update and rollback
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

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

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	metrics := service.NewMetricsService()

	giftRepo := repository.NewGiftRequestRepository(db)
	batchRepo := repository.NewGiftBatchRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	rollbackRepo := repository.NewRollbackLogRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	txManager := repository.NewTxManager(db)

	directoryCfg := service.MemberDirectoryConfig{Enabled: cfg.MemberCache.Enabled, TTL: cfg.MemberCache.TTL}
	var members *service.MemberDirectory
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, member cache disabled", zap.Error(err))
		directoryCfg.Enabled = false
		members = service.NewMemberDirectory(memberRepo, nil, metrics, directoryCfg, logr)
	} else {
		defer redisClient.Close()
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		members = service.NewMemberDirectory(memberRepo, repository.NewMemberCacheRepository(redisClient, logr), metrics, directoryCfg, logr)
		if _, err := members.Refresh(ctx); err != nil {
			logr.Warn("initial member cache refresh failed", zap.Error(err))
		}
		go members.RunRefresher(ctx, cfg.MemberCache.TTL)
	}

	var notifier *service.NotificationService
	if cfg.Notifications.Enabled {
		var sender service.NotificationSender = service.NewLogSender(logr)
		if cfg.Notifications.Sender == "smtp" {
			mailer, err := service.NewMailSender(cfg.Notifications.SMTP)
			if err != nil {
				logr.Fatal("invalid smtp notification config", zap.Error(err))
			}
			sender = mailer
		}
		delivery := service.NewNotificationService(nil, metrics, logr).Handler(sender)
		queue := jobs.NewQueue("gift-notifications", delivery, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifier = service.NewNotificationService(queue, metrics, logr)
	}

	gate := workflow.NewGate(cfg.Workflow.ModuleName)
	checker := service.NewPreconditionChecker(giftRepo)
	opts := []service.WorkflowOption{
		service.WithNotifier(notifier),
		service.WithWorkflowMetrics(metrics),
		service.WithLogger(logr),
	}

	giftService := service.NewGiftWorkflowService(txManager, giftRepo, timelineRepo, members, checker, gate, opts...)
	batchService := service.NewGiftBatchService(
		service.GiftBatchStores{Tx: txManager, Gifts: giftRepo, Batches: batchRepo, Timeline: timelineRepo, Rollbacks: rollbackRepo},
		members, checker, service.NewBatchReporter(nil, nil), gate,
		service.GiftBatchConfig{MaxRows: cfg.Workflow.BulkMaxRows},
		opts...,
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	verifier := service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	handler.RegisterRoutes(r, cfg.APIPrefix, gate.Module(), internalmiddleware.JWT(verifier), handler.Handlers{
		Gifts:   handler.NewGiftHandler(giftService),
		Batches: handler.NewGiftBatchHandler(batchService),
		Metrics: handler.NewMetricsHandler(metrics, readiness),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "module", gate.Module())
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
