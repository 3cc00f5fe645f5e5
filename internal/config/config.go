package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the defaults of the command-line flags.
type Config struct {
	Format   string
	LogLevel slog.Level
	HalfSize bool
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load() *Config {
	envFile := getEnv("LSRAW_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config: cannot load env file", "path", envFile, "err", err)
	}

	return &Config{
		Format:   getEnv("LSRAW_FORMAT", "text"),
		LogLevel: getEnvAsLevel("LSRAW_LOG_LEVEL", slog.LevelWarn),
		HalfSize: getEnvAsBool("LSRAW_HALF_SIZE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
