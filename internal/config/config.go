package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application (SPEC_FULL.md §2.3).
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Forecast engine defaults
	ForecastHorizonDays     int
	ForecastDefaultMethod   string
	RecurrenceMinOccurrences int
	TrendMinHistoryDays     int

	// Rate limiting (per client IP, SPEC_FULL.md §3 golang.org/x/time row)
	RateLimitPerMinute int

	// StatementArchive is the S3/MinIO bucket raw statement uploads are
	// archived to.
	StatementArchive StatementArchiveConfig
}

// StatementArchiveConfig holds S3/MinIO configuration for archived
// statement uploads.
type StatementArchiveConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),

		ForecastHorizonDays:      getEnvInt("FORECAST_HORIZON_DAYS", 90),
		ForecastDefaultMethod:    getEnv("FORECAST_DEFAULT_METHOD", "auto"),
		RecurrenceMinOccurrences: getEnvInt("RECURRENCE_MIN_OCCURRENCES", 3),
		TrendMinHistoryDays:      getEnvInt("TREND_MIN_HISTORY_DAYS", 60),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),

		StatementArchive: StatementArchiveConfig{
			Region:          getEnv("STATEMENT_ARCHIVE_REGION", "us-east-1"),
			Endpoint:        getEnv("STATEMENT_ARCHIVE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STATEMENT_ARCHIVE_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("STATEMENT_ARCHIVE_SECRET_KEY", ""),
			Bucket:          getEnv("STATEMENT_ARCHIVE_BUCKET", "fortuna-statements"),
			UseSSL:          getEnv("STATEMENT_ARCHIVE_USE_SSL", "false") == "true",
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ForecastHorizonDays <= 0 {
		return fmt.Errorf("FORECAST_HORIZON_DAYS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
