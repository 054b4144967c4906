// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	DBPath     string
	Addr       string
	UploadsDir string
	Owner      string
	AdminUser  string
	// JWTSecret, when empty, is generated once and kept in the database.
	JWTSecret string

	LogFile  string
	LogLevel string

	ImageTimeout   time.Duration
	ImageMaxBytes  int64
	ImportFetchers int
	LoginRate      int
}

// Load reads an optional .env file from envFile (ignored when missing) and
// then the DARILA_* environment variables. Variables already set in the
// environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DBPath:     getEnv("DARILA_DB", "darila.sqlite3"),
		Addr:       getEnv("DARILA_ADDR", ":8080"),
		UploadsDir: getEnv("DARILA_UPLOADS_DIR", "public/images/uploads"),
		Owner:      getEnv("DARILA_OWNER", "Owner"),
		AdminUser:  getEnv("DARILA_ADMIN_USER", "admin"),
		JWTSecret:  os.Getenv("DARILA_JWT_SECRET"),

		LogFile:  os.Getenv("DARILA_LOG"),
		LogLevel: getEnv("DARILA_LOG_LEVEL", "info"),

		ImageTimeout:   getEnvDuration("DARILA_IMAGE_TIMEOUT", 15*time.Second),
		ImageMaxBytes:  int64(getEnvInt("DARILA_IMAGE_MAX_BYTES", 10<<20)),
		ImportFetchers: getEnvInt("DARILA_IMPORT_FETCHERS", 4),
		LoginRate:      getEnvInt("DARILA_LOGIN_RATE", 5),
	}
	return cfg, nil
}

// Validate checks that every limit is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("DARILA_DB must not be empty"))
	}
	if c.UploadsDir == "" {
		errs = append(errs, errors.New("DARILA_UPLOADS_DIR must not be empty"))
	}
	if c.ImageTimeout <= 0 {
		errs = append(errs, errors.New("DARILA_IMAGE_TIMEOUT must be positive"))
	}
	if c.ImageMaxBytes <= 0 {
		errs = append(errs, errors.New("DARILA_IMAGE_MAX_BYTES must be positive"))
	}
	if c.ImportFetchers <= 0 {
		errs = append(errs, errors.New("DARILA_IMPORT_FETCHERS must be positive"))
	}
	if c.LoginRate <= 0 {
		errs = append(errs, errors.New("DARILA_LOGIN_RATE must be positive"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("DARILA_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
