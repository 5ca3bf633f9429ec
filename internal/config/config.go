// Package config loads server configuration from defaults, an optional
// config.yaml, a .env file and THINKSTREAM_* environment variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RichardoC/thinkstream/internal/chat"
	"github.com/RichardoC/thinkstream/internal/db"
	"github.com/RichardoC/thinkstream/internal/llm"
)

// Configuration holds all application configuration values.
type Configuration struct {
	Server    ServerConfig         `mapstructure:"server"`
	Store     db.Options           `mapstructure:"store"`
	Redis     RedisConfig          `mapstructure:"redis"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Providers llm.ProviderSettings `mapstructure:"providers"`
	Chat      chat.Config          `mapstructure:"chat"`
}

// ServerConfig holds HTTP server settings. Responses are streamed, so there
// is no write timeout.
type ServerConfig struct {
	Host                   string   `mapstructure:"host"`
	Port                   int      `mapstructure:"port"`
	ReadTimeoutSeconds     int      `mapstructure:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	// StaticDir is an optional directory with a built web client.
	StaticDir string `mapstructure:"static_dir"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// RedisConfig enables distributed session locks when URL is set.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level"`
	// Development switches to the human-readable console encoder.
	Development bool `mapstructure:"development"`
}

// Validate checks the configuration and reports every problem at once.
func (c *Configuration) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if c.Server.ReadTimeoutSeconds < 0 {
		problems = append(problems, "server.read_timeout_seconds must not be negative")
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		problems = append(problems, "server.shutdown_timeout_seconds must not be negative")
	}

	switch c.Store.Driver {
	case db.DriverMemory:
	case db.DriverSQLite:
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	case db.DriverPostgres:
		if c.Store.PostgresURL == "" {
			problems = append(problems, "store.postgres_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf(
			"store.driver '%s' is invalid, must be one of: sqlite, postgres, memory", c.Store.Driver))
	}

	if c.Redis.URL != "" {
		if _, err := url.Parse(c.Redis.URL); err != nil {
			problems = append(problems, fmt.Sprintf("redis.url is invalid: %v", err))
		}
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		problems = append(problems, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error", c.Logging.Level))
	}

	for key, base := range map[string]string{
		"providers.completions.base_url": c.Providers.Completions.BaseURL,
		"providers.router.base_url":      c.Providers.Router.BaseURL,
	} {
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, key+" must be an absolute URL")
		}
	}

	if c.Chat.DefaultModel != "" {
		if _, ok := llm.LookupModel(c.Chat.DefaultModel); !ok {
			problems = append(problems, fmt.Sprintf("chat.default_model '%s' is not in the model catalog", c.Chat.DefaultModel))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// NewLogger builds the application logger: JSON in production, the console
// encoder in development.
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if l.Level != "" {
		level, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
