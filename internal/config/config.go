// Package config reads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fundflow/internal/llm"
	"github.com/mmynk/fundflow/internal/validator"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverDynamo   = "dynamo"
	DriverPostgres = "postgres"
)

// Notification senders.
const (
	SenderStore = "store"
	SenderLog   = "log"
)

// Config holds everything cmd/server needs.
type Config struct {
	Port int

	StoreDriver string
	DBPath      string
	DatabaseURL string
	DynamoTable string
	AWSRegion   string

	JWTSecret      string
	TokenTTL       time.Duration
	GoogleClientID string

	LLM llm.Config

	RefreshInterval time.Duration
	NotifyBuffer    int
	NotifySender    string
	UserCacheTTL    time.Duration

	Policy validator.Policy

	LogLevel  string
	LogFormat string
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads the environment. Malformed values are errors rather than
// silently falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DBPath:         getEnv("DB_PATH", "./data/fundflow.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DynamoTable:    getEnv("DYNAMO_TABLE", "fundflow"),
		AWSRegion:      getEnv("AWS_REGION", "ap-southeast-1"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		LLM: llm.Config{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", llm.ProviderOpenAI)),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
			Model:    os.Getenv("LLM_MODEL"),
			APIKeys: map[string]string{
				llm.ProviderOpenAI: os.Getenv("OPENAI_API_KEY"),
				llm.ProviderGemini: os.Getenv("GEMINI_API_KEY"),
				llm.ProviderCustom: os.Getenv("LLM_API_KEY"),
			},
		},
		NotifySender: strings.ToLower(getEnv("NOTIFY_SENDER", SenderStore)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.RefreshInterval, err = time.ParseDuration(getEnv("REFRESH_INTERVAL", "30s")); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if cfg.UserCacheTTL, err = time.ParseDuration(getEnv("USER_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid USER_CACHE_TTL: %w", err)
	}
	if cfg.NotifyBuffer, err = strconv.Atoi(getEnv("NOTIFY_BUFFER", "64")); err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_BUFFER: %w", err)
	}

	cfg.Policy = validator.DefaultPolicy()
	if cfg.Policy.SilentTolerance, err = decimalEnv("FUNDFLOW_SILENT_TOLERANCE", cfg.Policy.SilentTolerance); err != nil {
		return nil, err
	}
	if cfg.Policy.WarnTolerance, err = decimalEnv("FUNDFLOW_WARN_TOLERANCE", cfg.Policy.WarnTolerance); err != nil {
		return nil, err
	}
	if cfg.Policy.NarrativeTolerance, err = decimalEnv("FUNDFLOW_NARRATIVE_TOLERANCE", cfg.Policy.NarrativeTolerance); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverDynamo:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Policy.SilentTolerance.GreaterThan(c.Policy.WarnTolerance) {
		return fmt.Errorf("silent tolerance %s exceeds warn tolerance %s",
			c.Policy.SilentTolerance, c.Policy.WarnTolerance)
	}
	if c.NotifyBuffer < 0 {
		return fmt.Errorf("NOTIFY_BUFFER must not be negative")
	}
	if c.NotifySender != SenderStore && c.NotifySender != SenderLog {
		return fmt.Errorf("unknown NOTIFY_SENDER %q", c.NotifySender)
	}
	return nil
}

func decimalEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
