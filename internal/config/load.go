package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for configuration environment variables, e.g.
// NUMLAB_SERVER_PORT or NUMLAB_DATABASE_URL.
const envPrefix = "NUMLAB"

// Load reads configuration from an optional config.yaml in the working
// directory and from environment variables. Environment variables take
// precedence over file values. Returns a validated Config or an error
// describing what is missing or malformed.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read error is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not cooperate with Unmarshal for keys that never
	// appear in a file, so bind every known key explicitly.
	for _, key := range []string{
		"server.port",
		"server.log_level",
		"database.url",
		"auth.jwt_secret",
		"auth.token_lifetime_minutes",
		"auth.refresh_token_lifetime_minutes",
		"auth.bcrypt_cost",
		"task.worker_count",
		"task.queue_size",
		"task.stuck_task_age_minutes",
		"solver.run_timeout_seconds",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults establishes defaults for everything that has a sensible
// one. Secrets and the database URL deliberately have none.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 15)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 7*24*60)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
	v.SetDefault("solver.run_timeout_seconds", 60)
}
