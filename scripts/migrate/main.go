package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/mo-amir99/elearning-server-go/internal/bootstrap"
	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/database"
	"github.com/mo-amir99/elearning-server-go/pkg/database/migrations"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Schema changes are explicit here, so skip the implicit migrate in Connect.
	dbCfg := cfg.Database
	dbCfg.RunMigrations = false

	db, err := database.Connect(context.Background(), dbCfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	appLogger.Info("Starting database migrations...")

	if err := database.Migrate(db, appLogger, bootstrap.Models()...); err != nil {
		appLogger.Error("Failed to run schema migration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := migrations.Run(db, appLogger); err != nil {
		appLogger.Error("Failed to run data migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("Database migrations completed successfully")
	fmt.Println("\n✅ All database tables created/updated successfully!")
}
