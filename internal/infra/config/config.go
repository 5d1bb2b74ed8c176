package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL           string // empty: circles are kept in memory
	TelegramToken         string // empty: no bot front-end
	AdminTelegramID       int64
	LogLevel              string
	Environment           string
	CronSpecReminders     string
	ReminderLookaheadDays int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing .env is fine.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if cfg.TelegramToken != "" && adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	if adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecReminders = os.Getenv("CRON_SPEC_REMINDERS")
	if cfg.CronSpecReminders == "" {
		cfg.CronSpecReminders = "0 9 * * *" // Default: 9 AM daily
	}

	cfg.ReminderLookaheadDays = 1
	if v := os.Getenv("REMINDER_LOOKAHEAD_DAYS"); v != "" {
		cfg.ReminderLookaheadDays, err = strconv.Atoi(v)
		if err != nil || cfg.ReminderLookaheadDays < 1 {
			return nil, fmt.Errorf("invalid REMINDER_LOOKAHEAD_DAYS %q", v)
		}
	}

	return cfg, nil
}
