// Package cli provides common initialization shared by the
// cmd/financebot and cmd/export-worker entrypoints.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/gvozdik97/finance-bot/internal/config"
	applog "github.com/gvozdik97/finance-bot/internal/log"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from the configured level and
// format, and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var logger *applog.Logger
	switch cfg.LogFormat {
	case "pretty":
		logger = applog.NewPretty(level, component)
	case "json":
		logger = applog.New(applog.Config{
			Level:     level,
			Component: component,
			Handler:   slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		})
	default:
		logger = applog.New(applog.Config{
			Level:     level,
			Component: component,
			Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		})
	}

	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
