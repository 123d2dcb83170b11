package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jacoelho/bipe"
)

// Config holds all bipe-stress configuration.
type Config struct {
	Stress  StressConfig
	Logging LogConfig
}

// StressConfig describes the scenario pushed through every pipe.
type StressConfig struct {
	Capacity   int           `envconfig:"BIPE_CAPACITY" default:"9"`
	Count      int           `envconfig:"BIPE_COUNT" default:"1000"`
	Strategies []string      `envconfig:"BIPE_STRATEGIES" default:"ring,buffer,chunk"`
	Rate       float64       `envconfig:"BIPE_RATE" default:"0"` // writes per second, 0 is unlimited
	Jitter     time.Duration `envconfig:"BIPE_JITTER" default:"0"`
	Seed       uint64        `envconfig:"BIPE_SEED" default:"0"` // 0 picks a seed from the clock
	Timeout    time.Duration `envconfig:"BIPE_TIMEOUT" default:"30s"`
	Metrics    bool          `envconfig:"BIPE_METRICS" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Stress: StressConfig{
			Capacity:   9,
			Count:      1000,
			Strategies: []string{"ring", "buffer", "chunk"},
			Timeout:    30 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Validate rejects settings the stress run cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Stress.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %d", c.Stress.Capacity))
	}
	if c.Stress.Count < 0 {
		errs = append(errs, fmt.Errorf("count must not be negative, got %d", c.Stress.Count))
	}
	if c.Stress.Rate < 0 {
		errs = append(errs, fmt.Errorf("rate must not be negative, got %v", c.Stress.Rate))
	}
	if len(c.Stress.Strategies) == 0 {
		errs = append(errs, errors.New("at least one strategy is required"))
	}
	if _, err := c.Stress.ParseStrategies(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseStrategies resolves the configured strategy names.
func (s StressConfig) ParseStrategies() ([]bipe.Strategy, error) {
	out := make([]bipe.Strategy, 0, len(s.Strategies))
	for _, name := range s.Strategies {
		st, err := bipe.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
