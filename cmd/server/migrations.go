package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/nvalden/numlab-api/internal/config"
)

// MigrationsDir is the default location of the SQL migration files,
// relative to the working directory.
const MigrationsDir = "migrations"

// slogGooseLogger adapts goose's logger interface to slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

// runMigrations executes the given goose migration command against the
// configured database and returns when it completes.
func runMigrations(cfg *config.Config, logger *slog.Logger, command string) error {
	migrationsDir, err := filepath.Abs(MigrationsDir)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations directory: %w", err)
	}
	if _, err := os.Stat(migrationsDir); err != nil {
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect for migrations: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database connection", "error", closeErr)
		}
	}()

	goose.SetLogger(&slogGooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	logger.Info("executing migration command",
		"command", command,
		"dir", migrationsDir)

	switch command {
	case "up":
		err = goose.Up(db, migrationsDir)
	case "down":
		err = goose.Down(db, migrationsDir)
	case "reset":
		err = goose.Reset(db, migrationsDir)
	case "status":
		err = goose.Status(db, migrationsDir)
	case "version":
		err = goose.Version(db, migrationsDir)
	default:
		return fmt.Errorf(
			"unknown migration command: %s (expected up, down, reset, status, or version)",
			command,
		)
	}
	if err != nil {
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}

	logger.Info("migration command completed", "command", command)
	return nil
}
