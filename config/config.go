package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret     string `env:"JWT_SECRET,required"        validate:"required,min=32"`
	TriggerSecret string `env:"TRIGGER_JWT_SECRET,required" validate:"required,min=32"`
	ResendAPIKey  string `env:"RESEND_API_KEY"              validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom    string `env:"RESEND_FROM"                 validate:"required_if=Env production,required_if=Env staging"`
	MagicLinkBase string `env:"MAGIC_LINK_BASE_URL"         envDefault:"http://localhost:8080"`

	// Throttling and token policy. Defaults match the product decision of
	// 3 link requests per 15-minute window and 15-minute links.
	RateLimitWindowMin int `env:"RATE_LIMIT_WINDOW_MIN"   envDefault:"15" validate:"min=1,max=1440"`
	RateLimitMax       int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"3"  validate:"min=1,max=100"`
	TokenTTLMin        int `env:"MAGIC_LINK_TTL_MIN"      envDefault:"15" validate:"min=1,max=1440"`

	CleanupCron string `env:"CLEANUP_CRON" envDefault:"*/5 * * * *" validate:"required"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMin) * time.Minute
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMin) * time.Minute
}
