/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Public base URL (e.g., https://book.example.com)
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	MetricsBind   string

	// Redis cache for settings reads; empty addr disables caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Stripe deposit holds. Empty key disables the processor and deposit
	// collection degrades to record-only mode.
	StripeSecretKey string

	// Slot generation defaults applied when a restaurant has no stored
	// booking settings.
	DefaultSlotIntervalMinutes int
	DefaultSeatingBufferMins   int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SEATWISE_ENV", "development"),
		HTTPBind:    getEnv("SEATWISE_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SEATWISE_HTTP_PORT", 8080),
		BaseURL:     getEnv("SEATWISE_BASE_URL", ""),
		DBBackend:   DatabaseBackend(getEnv("SEATWISE_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("SEATWISE_DB_DSN", ""),

		JWTSigningKey: getEnv("SEATWISE_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("SEATWISE_METRICS_BIND", "127.0.0.1:9000"),

		RedisAddr:     getEnv("SEATWISE_REDIS_ADDR", ""),
		RedisPassword: getEnv("SEATWISE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SEATWISE_REDIS_DB", 0),

		StripeSecretKey: getEnv("SEATWISE_STRIPE_SECRET_KEY", ""),

		DefaultSlotIntervalMinutes: getEnvInt("SEATWISE_DEFAULT_SLOT_INTERVAL_MINUTES", 30),
		DefaultSeatingBufferMins:   getEnvInt("SEATWISE_DEFAULT_SEATING_BUFFER_MINUTES", 90),

		TracingEnabled:    getEnvBool("SEATWISE_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SEATWISE_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SEATWISE_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SEATWISE_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("SEATWISE_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("SEATWISE_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	if cfg.DefaultSlotIntervalMinutes <= 0 {
		cfg.DefaultSlotIntervalMinutes = 30
	}
	if cfg.DefaultSeatingBufferMins < 0 {
		cfg.DefaultSeatingBufferMins = 0
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
