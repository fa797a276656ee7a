package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/quantbyte/rotor/internal/rotation"
	"github.com/quantbyte/rotor/internal/scoring"
)

// Config is the full runtime configuration loaded from rotor.yaml
type Config struct {
	LogLevel       string          `yaml:"log_level"`
	UniverseFile   string          `yaml:"universe_file"`
	StateFile      string          `yaml:"state_file"`
	HistoryFile    string          `yaml:"history_file"`
	InitialCapital float64         `yaml:"initial_capital"`
	Data           DataConfig      `yaml:"data"`
	Scoring        scoring.Config  `yaml:"scoring"`
	Sizing         SizingConfig    `yaml:"sizing"`
	Rotation       rotation.Config `yaml:"rotation"`
	HTTP           HTTPConfig      `yaml:"http"`
	Postgres       PostgresConfig  `yaml:"postgres"`
}

// DataConfig tunes the market-data layer
type DataConfig struct {
	LookbackDays    int     `yaml:"lookback_days"`
	FetchWorkers    int     `yaml:"fetch_workers"`
	CacheCapacity   int     `yaml:"cache_capacity"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	RedisAddr       string  `yaml:"redis_addr"`
	RedisTTLSeconds int     `yaml:"redis_ttl_seconds"`
	StreamURL       string  `yaml:"stream_url"`
}

// SizingConfig bounds per-position allocations
type SizingConfig struct {
	MinAllocation float64 `yaml:"min_allocation"`
	MaxAllocation float64 `yaml:"max_allocation"`
}

// HTTPConfig tunes the read-only API server
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// PostgresConfig configures the optional trade sink. An empty DSN disables it.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		UniverseFile:   "config/universe.yaml",
		StateFile:      "rotor_state.json",
		HistoryFile:    "rotor_history.json",
		InitialCapital: 100_000,
		Data: DataConfig{
			LookbackDays:    120,
			FetchWorkers:    8,
			CacheCapacity:   256,
			CacheTTLSeconds: 300,
			RateLimitPerSec: 5,
			RateLimitBurst:  10,
			RedisTTLSeconds: 300,
		},
		Scoring: *scoring.DefaultConfig(),
		Sizing: SizingConfig{
			MinAllocation: 0.10,
			MaxAllocation: 0.90,
		},
		Rotation: *rotation.DefaultConfig(),
		HTTP: HTTPConfig{
			ListenAddr: ":8080",
		},
	}
}

// Load reads the YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to disk
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects configurations that cannot run
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %.2f", c.InitialCapital)
	}
	if c.Data.LookbackDays < 1 {
		return fmt.Errorf("data.lookback_days must be at least 1, got %d", c.Data.LookbackDays)
	}
	if c.Data.CacheCapacity < 1 {
		return fmt.Errorf("data.cache_capacity must be at least 1, got %d", c.Data.CacheCapacity)
	}
	if c.Sizing.MinAllocation <= 0 || c.Sizing.MaxAllocation > 1 ||
		c.Sizing.MinAllocation >= c.Sizing.MaxAllocation {
		return fmt.Errorf("sizing bounds [%.2f, %.2f] are invalid",
			c.Sizing.MinAllocation, c.Sizing.MaxAllocation)
	}
	if c.Rotation.RotationThreshold < 0 {
		return fmt.Errorf("rotation.rotation_threshold must not be negative, got %.4f",
			c.Rotation.RotationThreshold)
	}
	if c.Rotation.StopLossPercent >= 0 || c.Rotation.CircuitBreakerPercent >= 0 {
		return fmt.Errorf("rotation stop_loss_percent and circuit_breaker_percent must be negative")
	}
	return nil
}
