package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/database"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

// Reverse dependency order.
var tables = []string{
	"monthly_rankings",
	"completion_records",
	"enrollments",
	"videos",
	"modules",
	"courses",
	"users",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	if cfg.IsProduction() && os.Getenv("LMS_ALLOW_DROP") != "true" {
		fmt.Println("❌ Refusing to drop tables in production (set LMS_ALLOW_DROP=true to override)")
		os.Exit(1)
	}

	dbCfg := cfg.Database
	dbCfg.RunMigrations = false

	db, err := database.Connect(context.Background(), dbCfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	fmt.Println("\n⚠️  WARNING: This will DROP ALL TABLES in the database!")
	fmt.Println("   This action CANNOT be undone.")
	fmt.Print("\nType 'DROP ALL TABLES' to confirm: ")

	reader := bufio.NewReader(os.Stdin)
	confirmation, _ := reader.ReadString('\n')
	if strings.TrimSpace(confirmation) != "DROP ALL TABLES" {
		fmt.Println("\n❌ Operation cancelled. Database unchanged.")
		return
	}

	dropped := 0
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			appLogger.Warn("Failed to drop table", slog.String("table", table), slog.String("error", err.Error()))
			continue
		}
		appLogger.Info("Dropped table", slog.String("table", table))
		dropped++
	}

	fmt.Printf("\n✅ Successfully dropped %d tables!\n", dropped)
	fmt.Println("   You can now run the migrate script to recreate them.")
}
