package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	storeFile   = "file"
	storeYAML   = "yaml"
	storeBbolt  = "bbolt"
	storeSQLite = "sqlite"
	storeNATS   = "nats"
)

type Config struct {
	DataDir     string        `env:"RIG_DATA_DIR"     envDefault:"./data"`
	Store       string        `env:"RIG_STORE"        envDefault:"file"`
	NatsURL     string        `env:"RIG_NATS_URL"     envDefault:"nats://127.0.0.1:4222"`
	NatsBucket  string        `env:"RIG_NATS_BUCKET"  envDefault:"rig_snapshots"`
	MetricsAddr string        `env:"RIG_METRICS_ADDR" envDefault:":2121"`
	LogLevel    slog.Level    `env:"RIG_LOG_LEVEL"    envDefault:"INFO"`
	Watch       bool          `env:"RIG_WATCH"        envDefault:"true"`
	Debounce    time.Duration `env:"RIG_WATCH_DEBOUNCE" envDefault:"250ms"`
}

// LoadConfig parses the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Store {
	case storeFile, storeYAML, storeBbolt, storeSQLite, storeNATS:
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}
