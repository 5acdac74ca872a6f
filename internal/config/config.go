// Package config loads engine configuration from a YAML file with environment
// variable overrides. Secrets live in env vars (or a local .env); the YAML
// file carries the tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine process.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sending   SendingConfig   `yaml:"sending"`
	Webhooks  WebhooksConfig  `yaml:"webhooks"`
	Mailgun   MailgunConfig   `yaml:"mailgun"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the ops HTTP listener settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the Redis connection settings. Redis is optional: without
// it the engine falls back to Postgres advisory locks and skips the shared
// daily counters.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// SchedulerConfig holds scheduler tick settings.
type SchedulerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// PollInterval returns the tick interval as a duration.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// SendingConfig holds send worker pool settings.
type SendingConfig struct {
	Workers        int     `yaml:"workers"`
	SendsPerSecond float64 `yaml:"sends_per_second"`
}

// WebhooksConfig holds webhook dispatch settings.
type WebhooksConfig struct {
	Workers int `yaml:"workers"`
}

// MailgunConfig holds the mail transport settings. The API key comes from
// the environment, never from the YAML file.
type MailgunConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides. A
// local .env file is read first if present, so secrets never need to live in
// config.yaml.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MAILGUN_API_KEY"); v != "" {
		cfg.Mailgun.APIKey = v
	}
	if v := os.Getenv("MAILGUN_BASE_URL"); v != "" {
		cfg.Mailgun.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Scheduler.PollIntervalSeconds == 0 {
		c.Scheduler.PollIntervalSeconds = 30
	}
	if c.Sending.Workers == 0 {
		c.Sending.Workers = 5
	}
	if c.Sending.SendsPerSecond == 0 {
		c.Sending.SendsPerSecond = 5
	}
	if c.Webhooks.Workers == 0 {
		c.Webhooks.Workers = 3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url (or DATABASE_URL) is required")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("config: redis.enabled set without redis.url")
	}
	if c.Sending.Workers < 0 || c.Webhooks.Workers < 0 {
		return fmt.Errorf("config: worker counts must be positive")
	}
	return nil
}
