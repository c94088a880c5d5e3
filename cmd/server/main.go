// Package main implements the entry point for the numlab API server,
// which lets users submit numerical optimization and linear algebra
// runs and poll for their results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/nvalden/numlab-api/internal/config"
	"github.com/nvalden/numlab-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String(
		"migrate",
		"",
		"Run a database migration command (up, down, reset, status, version) and exit",
	)
	flag.Parse()

	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if *migrateCmd != "" {
		if err := runMigrations(cfg, appLogger, *migrateCmd); err != nil {
			appLogger.Error("migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg, appLogger); err != nil {
		appLogger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	return cfg, appLogger, nil
}

// runServer wires the application together and runs it until shutdown.
func runServer(cfg *config.Config, appLogger *slog.Logger) error {
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("failed to close database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
