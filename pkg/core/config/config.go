// Package config loads engine settings from YAML, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" default:"33554432" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

type EngineConfig struct {
	BalanceTolerancePct  float64       `yaml:"balance_tolerance_pct" default:"0.1" validate:"gte=0,lt=100"`
	CashFlowTolerancePct float64       `yaml:"cash_flow_tolerance_pct" default:"1.0" validate:"gte=0,lt=100"`
	PipelineTimeout      time.Duration `yaml:"pipeline_timeout" default:"5s" validate:"gt=0"`
	RulesFile            string        `yaml:"rules_file"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	Prefix   string        `yaml:"prefix" default:"statements"`
	TTL      time.Duration `yaml:"ttl" default:"24h"`
}

// CacheConfig places the result cache on disk when no Redis address is
// configured or Redis is unreachable. An empty Dir disables it.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

type VaultConfig struct {
	Dir string `yaml:"dir" default:".cache/reports"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// Config is the full engine configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Vault    VaultConfig    `yaml:"vault"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML configuration file over the defaults. An empty path
// yields the defaults alone.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads the file, then a .env file if present, then applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("RULES_FILE"); v != "" {
		c.Engine.RulesFile = v
	}
	if v := getenv("BALANCE_TOLERANCE_PCT"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BALANCE_TOLERANCE_PCT: %w", err)
		}
		c.Engine.BalanceTolerancePct = tol
	}
	if v := getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv("VAULT_DIR"); v != "" {
		c.Vault.Dir = v
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
