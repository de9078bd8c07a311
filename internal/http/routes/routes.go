package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/auth"
	"github.com/mo-amir99/elearning-server-go/internal/features/company"
	"github.com/mo-amir99/elearning-server-go/internal/features/completion"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/dashboard"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/module"
	"github.com/mo-amir99/elearning-server-go/internal/features/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/features/video"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/cache"
	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/email"
	"github.com/mo-amir99/elearning-server-go/pkg/health"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/metrics"
)

// Services are the long-lived dependencies handlers share.
type Services struct {
	Tracker  *tracker.Tracker
	Rankings *ranking.Service
	Media    media.Lookuper
	Email    *email.Client
	Cache    cache.Client
}

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, cfg *config.Config, db *gorm.DB, log *slog.Logger, svc Services) {
	// Health check endpoints (no /api prefix for Kubernetes probes)
	healthHandler := health.NewHandler(db, svc.Cache, log)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)

	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	if !cfg.IsProduction() {
		engine.GET("/debug/db-stats", healthHandler.DBStats)
	}

	api := engine.Group("/api")

	// Admins pass every role check (handled in authorizeRoles)
	middleware.Initialize(db, cfg.JWTSecret, log)

	authHandler := auth.NewHandler(db, log, auth.DefaultTokenConfig(cfg.JWTSecret, cfg.JWTRefreshSecret), svc.Email)
	auth.RegisterRoutes(api, authHandler)

	userHandler := user.NewHandler(db, log)
	user.RegisterRoutes(api, userHandler)

	courseHandler := course.NewHandler(db, log, svc.Tracker, svc.Media)
	course.RegisterRoutes(api, courseHandler)

	moduleHandler := module.NewHandler(db, log, svc.Tracker)
	module.RegisterRoutes(api, moduleHandler)

	videoHandler := video.NewHandler(db, log, svc.Tracker, svc.Media)
	video.RegisterRoutes(api, videoHandler)

	enrollmentHandler := enrollment.NewHandler(db, log, svc.Tracker)
	enrollment.RegisterRoutes(api, enrollmentHandler)

	completionHandler := completion.NewHandler(db, log, svc.Tracker)
	completion.RegisterRoutes(api, completionHandler)

	progressHandler := progress.NewHandler(db, log, svc.Tracker)
	progress.RegisterRoutes(api, progressHandler)

	rankingHandler := ranking.NewHandler(svc.Rankings, log, cfg.Ranking.DefaultLimit)
	ranking.RegisterRoutes(api, rankingHandler)

	companyHandler := company.NewHandler(db, log)
	company.RegisterRoutes(api, companyHandler)

	dashboardHandler := dashboard.NewHandler(db, log, svc.Rankings, logger.DefaultDir)
	dashboard.RegisterRoutes(api, dashboardHandler)
}
