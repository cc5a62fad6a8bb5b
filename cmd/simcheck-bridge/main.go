package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/simcheck-bridge/api/swagger"
	"github.com/noah-isme/simcheck-bridge/internal/handler"
	"github.com/noah-isme/simcheck-bridge/internal/middleware"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/internal/repository"
	"github.com/noah-isme/simcheck-bridge/internal/service"
	"github.com/noah-isme/simcheck-bridge/pkg/cache"
	"github.com/noah-isme/simcheck-bridge/pkg/config"
	"github.com/noah-isme/simcheck-bridge/pkg/database"
	"github.com/noah-isme/simcheck-bridge/pkg/jobs"
	"github.com/noah-isme/simcheck-bridge/pkg/logger"
	corsmiddleware "github.com/noah-isme/simcheck-bridge/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/simcheck-bridge/pkg/middleware/requestid"
	"github.com/noah-isme/simcheck-bridge/pkg/similarity"
	"github.com/noah-isme/simcheck-bridge/pkg/storage"
)

// @title Similarity Check Bridge API
// @version 0.1.0
// @description Sends LMS submissions to the similarity service and tracks their reports
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

	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			logr.Sugar().Fatalw("issue token failed", "error", err)
		}
		return
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.ConnectWithRetry(cfg.Database, logr)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.ConnectWithRetry(cfg.Redis, logr)
	if err != nil {
		logr.Sugar().Fatalw("redis unavailable", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(cfg, db, redisClient, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to build application", "error", err)
	}

	if cfg.Scheduler.Enabled {
		app.queue.Start(ctx)
		defer app.queue.Stop()
		app.scheduler.Start(ctx)
		logr.Sugar().Infow("scheduler started", "interval", cfg.Scheduler.Interval, "workers", cfg.Scheduler.Workers)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

type application struct {
	router    *gin.Engine
	queue     *jobs.Queue
	scheduler *service.SchedulerService
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	metricsSvc := service.NewMetricsService()

	client, err := similarity.NewClient(similarity.Config{
		BaseURL:            cfg.Similarity.BaseURL,
		APIKey:             cfg.Similarity.APIKey,
		IntegrationName:    cfg.Similarity.IntegrationName,
		IntegrationVersion: cfg.Similarity.IntegrationVersion,
		Timeout:            cfg.Similarity.Timeout,
		RequestsPerSecond:  cfg.Similarity.RequestsPerSecond,
		Burst:              cfg.Similarity.Burst,
		Observer:           metricsSvc,
	}, logr)
	if err != nil {
		return nil, fmt.Errorf("similarity client: %w", err)
	}
	contentStore, err := storage.NewContentStore(cfg.Storage.FileDir)
	if err != nil {
		return nil, fmt.Errorf("content store: %w", err)
	}

	submissionRepo := repository.NewSubmissionRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	fileRepo := repository.NewFileRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Features.CacheTTL, logr, true)
	featureSvc := service.NewFeatureService(client, cacheSvc, service.FeatureConfig{
		CacheTTL:                   cfg.Features.CacheTTL,
		FallbackRequireEULA:        cfg.Features.FallbackRequireEULA,
		FallbackSearchRepositories: cfg.Features.FallbackSearchRepositories,
	}, logr)
	adapters := service.NewModuleRegistry(moduleRepo)
	records := service.NewSubmissionValidator(nil)

	deps := service.LifecycleDeps{
		Store:      submissionRepo,
		Transport:  client,
		Modules:    moduleRepo,
		Identities: identityRepo,
		Files:      fileRepo,
		Content:    contentStore,
		Features:   featureSvc,
		Adapters:   adapters,
		Validator:  records,
		Metrics:    metricsSvc,
	}
	if cfg.Receipts.Enabled {
		outbox := repository.NewReceiptRepository(redisClient, cfg.Receipts.OutboxKey)
		deps.Receipts = service.NewReceiptService(outbox, identityRepo, moduleRepo, cfg.Viewer.InstructorRoles, logr)
	}
	lifecycle := service.NewSubmissionLifecycle(deps, service.LifecycleConfig{
		Language:        cfg.Similarity.Language,
		InstructorRoles: cfg.Viewer.InstructorRoles,
	}, logr)

	intakeSvc := service.NewIntakeService(submissionRepo, moduleRepo, fileRepo, adapters, nil, records, logr)
	viewerSvc := service.NewViewerService(submissionRepo, client, moduleRepo, identityRepo, service.ViewerConfig{
		Language:            cfg.Similarity.Language,
		HideIdentity:        cfg.Viewer.HideIdentity,
		ViewFullSource:      cfg.Viewer.ViewFullSource,
		MatchSubmissionInfo: cfg.Viewer.MatchSubmissionInfo,
		SaveChanges:         cfg.Viewer.SaveChanges,
		InstructorRoles:     cfg.Viewer.InstructorRoles,
	}, logr)
	exportSvc := service.NewExportService(submissionRepo, moduleRepo, viewerSvc, logr, nil, nil)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Leeway: 30 * time.Second})

	scheduler := service.NewSchedulerService(submissionRepo, lifecycle, service.SchedulerConfig{
		Interval:  cfg.Scheduler.Interval,
		BatchSize: cfg.Scheduler.BatchSize,
	}, logr)
	queue := jobs.NewQueue("lifecycle", scheduler.Handle, jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		MaxRetries: cfg.Scheduler.MaxRetries,
		RetryDelay: cfg.Scheduler.RetryDelay,
		Logger:     logr,
	})
	scheduler.AttachQueue(queue)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		tokens:      tokenSvc,
		submissions: handler.NewSubmissionHandler(intakeSvc, lifecycle),
		viewer:      handler.NewViewerHandler(viewerSvc),
		exports:     handler.NewExportHandler(exportSvc),
		features:    handler.NewFeatureHandler(featureSvc),
		metrics:     metricsHandler,
		logger:      logr,
	})

	return &application{router: r, queue: queue, scheduler: scheduler}, nil
}

type routeDeps struct {
	tokens      middleware.TokenValidator
	submissions *handler.SubmissionHandler
	viewer      *handler.ViewerHandler
	exports     *handler.ExportHandler
	features    *handler.FeatureHandler
	metrics     *handler.MetricsHandler
	logger      *zap.Logger
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	staff := []models.UserRole{models.RoleAdmin, models.RoleInstructor}

	api.Use(middleware.JWT(d.tokens))
	api.POST("/submissions", middleware.RequireRoles(staff...), d.submissions.Queue)
	api.GET("/submissions", middleware.RequireRoles(staff...), d.submissions.Lookup)
	api.GET("/submissions/:id", middleware.RequireRoles(staff...), d.submissions.Get)
	api.POST("/submissions/:id/viewer-url", d.viewer.Launch)
	api.POST("/submissions/:id/retry", middleware.RequireRoles(staff...), middleware.Audit(d.logger, "submission.retry"), d.submissions.Retry)
	api.POST("/submissions/:id/steps/:step", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(d.logger, "submission.step"), d.submissions.Advance)
	api.GET("/modules/:id/scores", middleware.RequireRoles(staff...), d.exports.ModuleScores)
	api.GET("/features", middleware.RequireRoles(staff...), d.features.Get)
	api.POST("/features/refresh", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(d.logger, "features.refresh"), d.features.Refresh)
	api.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), d.metrics.Summary)
}

func issueToken(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: issue-token <user-id> <ADMIN|INSTRUCTOR|LEARNER> [ttl]")
	}
	ttl := time.Hour
	if len(args) > 2 {
		parsed, err := time.ParseDuration(args[2])
		if err != nil {
			return fmt.Errorf("parse ttl: %w", err)
		}
		ttl = parsed
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	token, err := tokens.IssueToken(args[0], models.UserRole(args[1]), ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
