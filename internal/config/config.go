package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string
	MediaDir    string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded in main) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.MediaDir = getEnv("MEDIA_DIR", "media")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(log *zap.Logger, key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn("invalid boolean env var", zap.String("key", key), zap.String("value", v))
			return def
		}
		return b
	}
	return def
}
