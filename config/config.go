// Package config loads service settings from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr        string
	DatabaseURL string // SQLite path or postgres:// URL
	JWTSecret   string
	TokenTTL    time.Duration
	Timezone    string

	SweepInterval  time.Duration
	WatchLead      time.Duration
	AccrualEnabled bool

	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	SeedAdminUsername   string
	SeedAdminPassword   string
	SickLeavePerMonth   int64
	CasualLeavePerMonth int64
}

// Load reads .env (if any) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to read .env")
	}

	return Config{
		Addr:                getEnv("APP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", "./data/worklog.db"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenTTL:            getEnvDuration("TOKEN_TTL", 24*time.Hour),
		Timezone:            getEnv("TZ_NAME", "UTC"),
		SweepInterval:       getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		WatchLead:           getEnvDuration("WATCH_LEAD", 5*time.Second),
		AccrualEnabled:      getEnvBool("ACCRUAL_ENABLED", true),
		CORSOrigins:         getEnvList("CORS_ORIGINS", []string{"*"}),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		SeedAdminUsername:   getEnv("SEED_ADMIN_USERNAME", "admin"),
		SeedAdminPassword:   getEnv("SEED_ADMIN_PASSWORD", ""),
		SickLeavePerMonth:   int64(getEnvInt("SICK_LEAVE_PER_MONTH", 1)),
		CasualLeavePerMonth: int64(getEnvInt("CASUAL_LEAVE_PER_MONTH", 1)),
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TZ_NAME %q: %w", c.Timezone, err)
	}
	if c.WatchLead < 0 {
		return fmt.Errorf("WATCH_LEAD must not be negative")
	}
	if c.SickLeavePerMonth < 0 || c.CasualLeavePerMonth < 0 {
		return fmt.Errorf("leave amounts must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Location returns the service location, UTC if the name is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsPostgres reports whether DatabaseURL points at PostgreSQL.
func (c Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
