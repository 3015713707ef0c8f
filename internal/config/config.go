// Package config provides environment-driven configuration for the lineage server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL      Secret
	Port             string
	ListenHost       string
	MetricsPort      string
	CORSOrigins      []string
	LogLevel         string
	APIKey           Secret
	RelationPrefix   string
	EdgeRelation     string
	DefaultMaxRounds int
	MaxRoundsLimit   int
	BatchConcurrency int
	RetainFailedRuns bool
	DBMaxConns       int32
	OTelExporter     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      Secret(envOrDefault("DATABASE_URL", "sqlite://lineage.db")),
		Port:             envOrDefault("PORT", "3040"),
		ListenHost:       envOrDefault("LISTEN_HOST", "127.0.0.1"),
		MetricsPort:      envOrDefault("METRICS_PORT", "9092"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		APIKey:           Secret(envOrDefault("LINEAGE_API_KEY", "")),
		RelationPrefix:   envOrDefault("RELATION_PREFIX", "lineage"),
		EdgeRelation:     envOrDefault("EDGE_RELATION", "edges"),
		RetainFailedRuns: envOrDefault("RETAIN_FAILED_RUNS", "false") == "true",
		OTelExporter:     envOrDefault("OTEL_EXPORTER", "none"),
	}

	ints := []struct {
		key      string
		fallback string
		min, max int
		dst      *int
	}{
		{"DEFAULT_MAX_ROUNDS", "50", 1, 100_000, &cfg.DefaultMaxRounds},
		{"MAX_ROUNDS_LIMIT", "10000", 1, 100_000, &cfg.MaxRoundsLimit},
		{"BATCH_CONCURRENCY", "4", 1, 64, &cfg.BatchConcurrency},
	}

	for _, f := range ints {
		v, err := strconv.Atoi(envOrDefault(f.key, f.fallback))
		if err != nil || v < f.min || v > f.max {
			return nil, fmt.Errorf("%s must be an integer between %d and %d", f.key, f.min, f.max)
		}
		*f.dst = v
	}

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "21"))
	if err != nil || maxConns < 1 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 1 and 200")
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // bounded above.

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
