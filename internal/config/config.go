// Package config loads the engine constants and the service settings.
//
// Engine constants are passed explicitly into every computation; nothing in
// the engine reads process-wide state. Values come from an optional YAML file
// (ENGINE_CONFIG) and are then overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atmx/risk-engine/internal/emissions"
	"github.com/atmx/risk-engine/internal/health"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Engine holds the constants the risk computations depend on.
type Engine struct {
	SecondsPerYear            int64 `yaml:"seconds_per_year" json:"seconds_per_year"`
	CompoundingPeriodsPerYear int64 `yaml:"compounding_periods_per_year" json:"compounding_periods_per_year"`
	HealthCheckCapacity       int   `yaml:"health_check_capacity" json:"health_check_capacity"`
	StrictMissingData         bool  `yaml:"strict_missing_data" json:"strict_missing_data"`
}

// Service holds the HTTP daemon settings.
type Service struct {
	Port               string        `yaml:"port" json:"port"`
	DatabaseURL        string        `yaml:"database_url" json:"database_url"`
	RedisURL           string        `yaml:"redis_url" json:"redis_url"`
	CacheTTL           time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	RefreshConcurrency int           `yaml:"refresh_concurrency" json:"refresh_concurrency"`
}

// Config is the whole configuration file.
type Config struct {
	Engine  Engine  `yaml:"engine" json:"engine"`
	Service Service `yaml:"service" json:"service"`
}

// Default returns the built-in configuration: a 365-day year, hourly
// compounding and 16 health-check slots.
func Default() Config {
	return Config{
		Engine: Engine{
			SecondsPerYear:            emissions.DefaultSecondsPerYear,
			CompoundingPeriodsPerYear: 8_760,
			HealthCheckCapacity:       16,
		},
		Service: Service{
			Port:               "8080",
			CacheTTL:           30 * time.Second,
			RefreshConcurrency: 8,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv loads the file named by ENGINE_CONFIG, if any, and applies the
// environment overrides.
func FromEnv() (Config, error) {
	cfg, err := Load(os.Getenv("ENGINE_CONFIG"))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from PORT, DATABASE_URL, REDIS_URL,
// HEALTH_CHECK_CAPACITY and STRICT_MISSING_DATA.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Service.Port = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Service.DatabaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Service.RedisURL = v
	}
	if v := getenv("HEALTH_CHECK_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEALTH_CHECK_CAPACITY: %w", err)
		}
		c.Engine.HealthCheckCapacity = n
	}
	if v := getenv("STRICT_MISSING_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRICT_MISSING_DATA: %w", err)
		}
		c.Engine.StrictMissingData = b
	}
	return nil
}

func (c *Config) normalize() {
	c.Service.Port = strings.TrimPrefix(strings.TrimSpace(c.Service.Port), ":")
	c.Service.DatabaseURL = strings.TrimSpace(c.Service.DatabaseURL)
	c.Service.RedisURL = strings.TrimSpace(c.Service.RedisURL)
}

// Validate rejects non-positive constants.
func (c Config) Validate() error {
	switch {
	case c.Engine.SecondsPerYear <= 0:
		return fmt.Errorf("%w: seconds_per_year must be positive", ErrInvalidConfig)
	case c.Engine.CompoundingPeriodsPerYear <= 0:
		return fmt.Errorf("%w: compounding_periods_per_year must be positive", ErrInvalidConfig)
	case c.Engine.HealthCheckCapacity <= 0:
		return fmt.Errorf("%w: health_check_capacity must be positive", ErrInvalidConfig)
	case c.Service.CacheTTL < 0:
		return fmt.Errorf("%w: cache_ttl must not be negative", ErrInvalidConfig)
	case c.Service.RefreshConcurrency <= 0:
		return fmt.Errorf("%w: refresh_concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}

// Emissions returns the accrual constants.
func (e Engine) Emissions() emissions.Config {
	return emissions.Config{SecondsPerYear: e.SecondsPerYear}
}

// Options returns the aggregation options for display computations.
// Transaction-facing callers force Strict regardless of this setting.
func (e Engine) Options() health.Options {
	return health.Options{Strict: e.StrictMissingData}
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
