package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/klinkercommerce/accounting/internal/auth"
	"github.com/klinkercommerce/accounting/internal/config"
	"github.com/klinkercommerce/accounting/internal/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()

	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sessionMgr := auth.NewSessionManager(pool, 0)
	authService := auth.NewService(pool, sessionMgr, logger)

	email := "admin@klinkercommerce.local"
	password := "admin123"

	if len(os.Args) > 1 {
		email = os.Args[1]
	}
	if len(os.Args) > 2 {
		password = os.Args[2]
	}

	// Check if user already exists
	_, err = authService.GetUserByEmail(context.Background(), email)
	if err == nil {
		fmt.Printf("Admin user %s already exists\n", email)
		os.Exit(0)
	}

	user, err := authService.CreateUser(context.Background(), email, password)
	if err != nil {
		slog.Error("failed to create admin user", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Admin user created:\n  ID:    %s\n  Email: %s\n\nLogin via POST /admin/login\n", user.ID, user.Email)
}
