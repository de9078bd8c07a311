package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/bootstrap"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/http/routes"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker/gormrepo"
	"github.com/mo-amir99/elearning-server-go/pkg/cache"
	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/database"
	"github.com/mo-amir99/elearning-server-go/pkg/email"
	"github.com/mo-amir99/elearning-server-go/pkg/jobs"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/metrics"
	"github.com/mo-amir99/elearning-server-go/pkg/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/observability"
	"github.com/mo-amir99/elearning-server-go/pkg/realtime"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	flushSentry, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Version)
	if err != nil {
		appLogger.Warn("sentry disabled", slog.String("error", err.Error()))
	}
	defer flushSentry()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := validation.RegisterBindings(); err != nil {
		appLogger.Error("register validators failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.Connect(ctx, cfg.Database, appLogger, bootstrap.Models()...)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	if err := bootstrap.ApplyDatabaseMigrations(db, cfg, appLogger); err != nil {
		appLogger.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := bootstrap.EnsureDefaultAdmin(db, cfg.Admin, appLogger); err != nil {
		appLogger.Error("ensure default admin failed", slog.String("error", err.Error()))
	}

	cacheClient, err := cache.New(ctx, cfg.Redis, appLogger)
	if err != nil {
		appLogger.Error("cache initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cacheClient.Close()

	mediaClient, err := media.NewClient(ctx, cfg.Media, appLogger)
	if err != nil {
		appLogger.Error("media client initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer mediaClient.Close()

	emailClient := email.NewClient(cfg.Email, appLogger)

	realtimeServer := realtime.NewServer(db, appLogger, cfg.JWTSecret)
	defer realtimeServer.Close()
	appLogger.Info("socket.io server initialized")

	policy := tracker.Policy{PerVideo: cfg.Points.PerVideo, PerCourse: cfg.Points.PerCourse}
	completionEmails := tracker.NewEmailHook(emailClient, policy, appLogger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := completionEmails.Close(closeCtx); err != nil {
			appLogger.Warn("course completion emails still sending at shutdown", slog.String("error", err.Error()))
		}
	}()

	completionTracker := tracker.New(gormrepo.New(db), policy, appLogger,
		tracker.MetricsHook(),
		tracker.RealtimeHook(realtimeServer, policy),
		completionEmails,
	)

	rankings := ranking.NewService(db, ranking.NewGormSource(db), cacheClient, cfg.Ranking.CacheTTL, appLogger)
	rankings.SetNotifier(realtimeServer)
	completionTracker.Use(rankings.Hook())

	if cfg.Ranking.JobsEnabled {
		scheduler := jobs.NewScheduler(appLogger)
		if err := scheduler.AddJob(ranking.NewRolloverJob(rankings), cfg.Ranking.RolloverCron); err != nil {
			appLogger.Error("schedule rollover failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := scheduler.AddJob(enrollment.NewReconcileJob(completionTracker, appLogger), cfg.Ranking.ReconcileCron); err != nil {
			appLogger.Error("schedule reconcile failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	router := gin.New()

	// Socket.IO gets only recovery and CORS
	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/socket.io/*any", gin.WrapH(realtimeServer.Handler()))
	router.POST("/socket.io/*any", gin.WrapH(realtimeServer.Handler()))

	router.Use(middleware.RequestID())
	router.Use(middleware.Compression(middleware.BestSpeed))
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CacheControl())
	router.Use(middleware.RequestSizeLimit(1 << 20))
	router.Use(metrics.Middleware())
	router.Use(request.Handler(appLogger))

	// 100 requests per minute per IP
	rateLimiter := middleware.NewRateLimiter(100, time.Minute, middleware.ByClientIP)
	defer rateLimiter.Stop()
	router.Use(rateLimiter.Middleware())

	routes.Register(router, cfg, db, appLogger, routes.Services{
		Tracker:  completionTracker,
		Rankings: rankings,
		Media:    mediaClient,
		Email:    emailClient,
		Cache:    cacheClient,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}
