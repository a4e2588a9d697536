package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the READIUM_ prefix with
// underscores for nesting (READIUM_SERVER_PORT, READIUM_STORAGE_PATH) and
// take precedence over file values. Returns a populated Config struct or
// an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("READIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/readium")

	// The config file is optional; env vars and defaults may be enough.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Keys without a meaningful default still need to be registered so
	// AutomaticEnv can surface their environment values to Unmarshal.
	v.SetDefault("database.url", "")

	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.path", "data/books")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("ocr.sample_pages", 10)
	v.SetDefault("ocr.engine", "HEURISTIC")
	v.SetDefault("ocr.ocrmypdf_command", "ocrmypdf")
	v.SetDefault("ocr.ocrmypdf_languages", "eng")
	v.SetDefault("ocr.ocrmypdf_timeout_seconds", 1800)
	v.SetDefault("ocr.running_timeout_seconds", 2400)
	v.SetDefault("ocr.workers", 1)
	v.SetDefault("ocr.queue_size", 8)

	v.SetDefault("metadata.workers", 2)
	v.SetDefault("metadata.queue_size", 16)

	v.SetDefault("translation.provider", "MYMEMORY")
	v.SetDefault("translation.mymemory_url", "https://api.mymemory.translated.net/get")
	v.SetDefault("translation.libre_url", "http://localhost:5000/translate")
	v.SetDefault("translation.libre_api_key", "")
	v.SetDefault("translation.timeout_ms", 5000)
	v.SetDefault("translation.cache_ttl_seconds", 86400)
	v.SetDefault("translation.cache_max_entries", 5000)
	v.SetDefault("translation.min_interval_ms", 150)
}
