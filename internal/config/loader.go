package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/RichardoC/thinkstream/internal/llm"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "THINKSTREAM"
)

// providerKeyEnv lists the conventional variables accepted for provider
// keys in addition to the prefixed names.
var providerKeyEnv = map[string][]string{
	"providers.completions.api_key": {"NVIDIA_API_KEY", "OPENAI_API_KEY"},
	"providers.thinking.api_key":    {"GEMINI_API_KEY", "GOOGLE_AI_API_KEY"},
	"providers.router.api_key":      {"OPENROUTER_API_KEY"},
}

// Load reads configuration. Priority, highest first: environment variables
// (THINKSTREAM_ prefixed, then the conventional provider key names), a
// .env file in the working directory, the config file, defaults.
// configPath may be empty to search the usual locations.
func Load(configPath string) (*Configuration, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.thinkstream")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, names := range providerKeyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, &ConfigError{Op: "bind", Err: err}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{Op: "read", Err: fmt.Errorf("failed to read config file: %w", err)}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Op: "unmarshal", Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.static_dir", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "thinkstream.db")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.connect_timeout_seconds", 5)

	v.SetDefault("redis.url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("providers.completions.base_url", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("providers.completions.api_key", "")
	v.SetDefault("providers.completions.temperature", 0.6)
	v.SetDefault("providers.completions.top_p", 0.7)
	v.SetDefault("providers.completions.max_tokens", 2048)

	v.SetDefault("providers.thinking.base_url", "")
	v.SetDefault("providers.thinking.api_key", "")
	v.SetDefault("providers.thinking.temperature", 0.7)
	v.SetDefault("providers.thinking.max_output_tokens", 8192)

	v.SetDefault("providers.router.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.router.api_key", "")
	v.SetDefault("providers.router.referer", "http://localhost:5000")
	v.SetDefault("providers.router.title", "ThinkStream")
	v.SetDefault("providers.router.temperature", 0.7)

	v.SetDefault("chat.default_model", llm.DefaultModelID)
	v.SetDefault("chat.fallback_message", "")
}
