// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all configuration for the indexer.
type Config struct {
	Network Network

	// Ethereum JSON-RPC endpoint for contract reads.
	RPCURL string

	// PostgreSQL (optional; in-memory store otherwise)
	DatabaseURL string

	// Redis
	RedisURL      string
	CacheTTL      time.Duration
	EventsTopic   string
	CommandsTopic string
	ConsumerGroup string

	// HTTP API
	HTTPAddr string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		CacheTTL:      30 * time.Second,
		EventsTopic:   "aco-events",
		CommandsTopic: "aco-register-contract",
		ConsumerGroup: "aco-indexer",
		HTTPAddr:      ":8080",
		LogLevel:      "info",
	}

	network, err := NetworkByName(os.Getenv("NETWORK"))
	if err != nil {
		return nil, err
	}
	if path := os.Getenv("NETWORK_FILE"); path != "" {
		if network, err = LoadNetworkFile(network, path); err != nil {
			return nil, err
		}
	}
	cfg.Network = network

	// Required
	cfg.RPCURL = os.Getenv("RPC_URL")
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	// Optional overrides
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("EVENTS_TOPIC"); v != "" {
		cfg.EventsTopic = v
	}

	if v := os.Getenv("COMMANDS_TOPIC"); v != "" {
		cfg.CommandsTopic = v
	}

	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
