package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/workset"
)

func (c *Config) validate() error {
	checks := []func() error{
		c.validateDatabase,
		c.validateNetwork,
		c.validateCORS,
		c.validateTraversal,
		c.validateLogging,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	raw := c.DatabaseURL.Value()
	if raw == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if path, ok := relstore.SQLitePath(raw); ok {
		if path == "" {
			return fmt.Errorf("DATABASE_URL sqlite:// must name a file or :memory:")
		}

		return nil
	}

	dbURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres://, postgresql:// or sqlite://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if dbHost != "localhost" && dbHost != "127.0.0.1" && dbHost != "::1" {
		sslmode := dbURL.Query().Get("sslmode")
		if sslmode == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local deployments, 0.0.0.0/:: where a container boundary applies.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	// A non-loopback listener must not serve the API unauthenticated.
	if (c.ListenHost == "0.0.0.0" || c.ListenHost == "::") && c.APIKey.Value() == "" {
		return fmt.Errorf("LINEAGE_API_KEY is required when LISTEN_HOST is %q", c.ListenHost)
	}

	metricsPort, err := strconv.Atoi(c.MetricsPort)
	if err != nil {
		return fmt.Errorf("METRICS_PORT must be a valid integer: %w", err)
	}

	if metricsPort < 1 || metricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT must be between 1 and 65535")
	}

	if metricsPort == port {
		return fmt.Errorf("METRICS_PORT must differ from PORT")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateTraversal() error {
	if !workset.ValidIdentifier(c.RelationPrefix) {
		return fmt.Errorf("RELATION_PREFIX must be a lowercase SQL identifier, got %q", c.RelationPrefix)
	}

	if !workset.ValidIdentifier(c.EdgeRelation) {
		return fmt.Errorf("EDGE_RELATION must be a lowercase SQL identifier, got %q", c.EdgeRelation)
	}

	if c.DefaultMaxRounds > c.MaxRoundsLimit {
		return fmt.Errorf("DEFAULT_MAX_ROUNDS (%d) must not exceed MAX_ROUNDS_LIMIT (%d)", c.DefaultMaxRounds, c.MaxRoundsLimit)
	}

	switch c.OTelExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("OTEL_EXPORTER must be 'none' or 'stdout', got %q", c.OTelExporter)
	}

	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return nil
}
