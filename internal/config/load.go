package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKLOG_SERVER_PORT.
const EnvPrefix = "TASKLOG"

// defaults lists every configuration key with its default value. Keys
// without a sensible default are listed with a zero value so they can still
// be bound to environment variables.
var defaults = map[string]any{
	"server.port":                    8080,
	"server.log_level":               "info",
	"server.shutdown_timeout":        "30s",
	"database.url":                   "",
	"database.max_open_conns":        10,
	"database.max_idle_conns":        5,
	"database.conn_max_lifetime":     "5m",
	"redis.enabled":                  true,
	"redis.addr":                     "localhost:6379",
	"redis.password":                 "",
	"redis.db":                       0,
	"redis.key_prefix":               "tasklog:",
	"cache.ttl":                      "1h",
	"scheduler.enabled":              true,
	"scheduler.max_attempts":         3,
	"scheduler.retry_delay":          "5m",
	"scheduler.run_timeout":          "30m",
	"alert.webhook_url":              "",
	"alert.webhook_timeout":          "10s",
	"auth.jwt_secret":                "",
	"auth.token_lifetime":            "24h",
	"rate_limit.requests_per_second": 10.0,
	"rate_limit.burst":               20,
}

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first if present.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
