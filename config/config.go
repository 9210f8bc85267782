package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// LoadEnv loads .env when present. In deployed environments variables are set directly.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv() error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if os.Getenv("FRONTEND_URL") == "" {
		log.Warn().Msg("FRONTEND_URL not set - CORS may not work correctly")
	}
	if os.Getenv("REDIS_ADDR") == "" {
		log.Warn().Msg("REDIS_ADDR not set - availability responses will not be cached")
	}
	if os.Getenv("SMTP_HOST") == "" || os.Getenv("SMTP_FROM") == "" {
		log.Warn().Msg("SMTP_HOST/SMTP_FROM not set - time-off notifications will not be sent")
	}
	if _, err := ShiftLocation(); err != nil {
		return err
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetInt returns the integer value of key, or defaultValue when unset or malformed.
func GetInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
		return defaultValue
	}
	return n
}

// GetDuration parses key with time.ParseDuration ("5m", "90s").
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}

// ShiftLocation is the timezone shift wall-clock times are interpreted in.
func ShiftLocation() (*time.Location, error) {
	name := GetEnv("SHIFT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid SHIFT_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
