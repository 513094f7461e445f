package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

type Config struct {
	Host     string
	Port     string
	Store    string
	DSN      string
	LogLevel string

	MetricsEnabled bool
	MetricsToken   string

	// WriteRateLimit is requests per second per client IP on write routes;
	// zero disables limiting.
	WriteRateLimit float64
	WriteRateBurst int
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func loadConfig(getenv func(string) string) (Config, error) {
	env := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Host:         env("HOST", "localhost"),
		Port:         env("PORT", "9000"),
		Store:        env("STORE", storeMemory),
		DSN:          getenv("DB_DSN"),
		LogLevel:     env("LOG_LEVEL", "info"),
		MetricsToken: getenv("METRICS_TOKEN"),
	}

	var err error
	if cfg.MetricsEnabled, err = strconv.ParseBool(env("METRICS_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("METRICS_ENABLED: %w", err)
	}
	if cfg.WriteRateLimit, err = strconv.ParseFloat(env("WRITE_RATE_LIMIT", "0"), 64); err != nil {
		return Config{}, fmt.Errorf("WRITE_RATE_LIMIT: %w", err)
	}
	if cfg.WriteRateBurst, err = strconv.Atoi(env("WRITE_RATE_BURST", "10")); err != nil {
		return Config{}, fmt.Errorf("WRITE_RATE_BURST: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("PORT %q is not a valid port", c.Port)
	}

	switch c.Store {
	case storeMemory:
	case storePostgres:
		if c.DSN == "" {
			return errors.New("DB_DSN is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", storeMemory, storePostgres, c.Store)
	}

	if c.MetricsEnabled && c.MetricsToken == "" {
		return errors.New("METRICS_TOKEN is required when METRICS_ENABLED=true")
	}
	if c.WriteRateLimit < 0 {
		return errors.New("WRITE_RATE_LIMIT must not be negative")
	}
	if c.WriteRateLimit > 0 && c.WriteRateBurst < 1 {
		return errors.New("WRITE_RATE_BURST must be at least 1")
	}
	return nil
}
