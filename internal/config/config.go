// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// MaxFields bounds the number of field changes accepted per version entry.
	MaxFields int
}

// Load reads configuration from the environment, consulting a .env file when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxFields, err := strconv.Atoi(getEnv("HISTORY_MAX_FIELDS", "256"))
	if err != nil || maxFields <= 0 {
		maxFields = 256
	}

	return &Config{
		Port:      getEnv("HISTORY_PORT", "8080"),
		Env:       getEnv("HISTORY_ENV", "development"),
		MaxFields: maxFields,
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
