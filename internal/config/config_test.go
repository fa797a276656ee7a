package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotor.yaml")
	raw := `
initial_capital: 250000
data:
  lookback_days: 90
  fetch_workers: 4
  cache_capacity: 64
  cache_ttl_seconds: 60
rotation:
  stop_loss_percent: -10
  circuit_breaker_percent: -25
  rotation_threshold: 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 250_000, cfg.InitialCapital, 1e-9)
	assert.Equal(t, 90, cfg.Data.LookbackDays)
	assert.Equal(t, 4, cfg.Data.FetchWorkers)
	assert.InDelta(t, -10, cfg.Rotation.StopLossPercent, 1e-9)
	assert.InDelta(t, 0.05, cfg.Rotation.RotationThreshold, 1e-9)

	// Untouched sections keep their defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 0.90, cfg.Sizing.MaxAllocation, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial_capital: [not a number"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }},
		{"zero lookback", func(c *Config) { c.Data.LookbackDays = 0 }},
		{"zero cache capacity", func(c *Config) { c.Data.CacheCapacity = 0 }},
		{"inverted sizing bounds", func(c *Config) { c.Sizing.MinAllocation = 0.9; c.Sizing.MaxAllocation = 0.1 }},
		{"allocation above one", func(c *Config) { c.Sizing.MaxAllocation = 1.5 }},
		{"negative threshold", func(c *Config) { c.Rotation.RotationThreshold = -0.01 }},
		{"positive stop loss", func(c *Config) { c.Rotation.StopLossPercent = 15 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotor.yaml")
	cfg := Default()
	cfg.InitialCapital = 42_000

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg, loaded)
}
