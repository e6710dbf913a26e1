package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, int64(31_536_000), cfg.Engine.SecondsPerYear)
	require.Equal(t, int64(8_760), cfg.Engine.CompoundingPeriodsPerYear)
	require.Equal(t, 16, cfg.Engine.HealthCheckCapacity)
	require.False(t, cfg.Engine.StrictMissingData)
	require.Equal(t, "8080", cfg.Service.Port)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
engine:
  compounding_periods_per_year: 365
  health_check_capacity: 12
  strict_missing_data: true
service:
  port: " :9090 "
  cache_ttl: 1m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(365), cfg.Engine.CompoundingPeriodsPerYear)
	require.Equal(t, 12, cfg.Engine.HealthCheckCapacity)
	require.True(t, cfg.Engine.StrictMissingData)
	require.Equal(t, int64(31_536_000), cfg.Engine.SecondsPerYear, "unset keys keep defaults")
	require.Equal(t, "9090", cfg.Service.Port)
	require.Equal(t, time.Minute, cfg.Service.CacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"zero year", "engine:\n  seconds_per_year: 0\n"},
		{"negative periods", "engine:\n  compounding_periods_per_year: -1\n"},
		{"zero capacity", "engine:\n  health_check_capacity: 0\n"},
		{"zero concurrency", "service:\n  refresh_concurrency: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			require.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                  "7000",
		"DATABASE_URL":          "postgres://risk@localhost/risk",
		"REDIS_URL":             "redis://localhost:6379/0",
		"HEALTH_CHECK_CAPACITY": "8",
		"STRICT_MISSING_DATA":   "true",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	require.Equal(t, "7000", cfg.Service.Port)
	require.Equal(t, env["DATABASE_URL"], cfg.Service.DatabaseURL)
	require.Equal(t, env["REDIS_URL"], cfg.Service.RedisURL)
	require.Equal(t, 8, cfg.Engine.HealthCheckCapacity)
	require.True(t, cfg.Engine.Options().Strict)
}

func TestApplyEnv_BadValues(t *testing.T) {
	for _, key := range []string{"HEALTH_CHECK_CAPACITY", "STRICT_MISSING_DATA"} {
		cfg := Default()
		err := cfg.ApplyEnv(func(k string) string {
			if k == key {
				return "nope"
			}
			return ""
		})
		require.Error(t, err, key)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)

	cfg, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestEngine_Emissions(t *testing.T) {
	require.Equal(t, int64(31_536_000), Default().Engine.Emissions().SecondsPerYear)
}
