package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/database"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
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

	dbCfg := cfg.Database
	dbCfg.RunMigrations = false

	db, err := database.Connect(context.Background(), dbCfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	fullName := prompt("Full Name: ")
	email := prompt("Email: ")
	password := prompt("Password (min 8 chars): ")

	if fullName == "" || email == "" || len(password) < 8 {
		fmt.Println("❌ Error: Full name, email, and password (min 8 chars) are required")
		os.Exit(1)
	}

	admin, err := user.Create(db, user.CreateInput{
		FullName: fullName,
		Email:    email,
		Password: password,
		Role:     types.RoleAdmin,
	})
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		fmt.Println("❌ Error: A user with this email already exists")
		os.Exit(1)
	case err != nil:
		appLogger.Error("Failed to create admin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println("\n✅ Admin created successfully!")
	fmt.Printf("   ID: %s\n", admin.ID)
	fmt.Printf("   Email: %s\n", admin.Email)
	fmt.Printf("   Role: %s\n", admin.Role)
}
