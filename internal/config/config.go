package config

import (
	"os"
	"strconv"
	"time"

	"enemtri/internal/errors"
)

// Config is the complete application configuration, loaded from the
// environment (with .env support handled by the entrypoints).
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Paths      PathConfig
	Estimation EstimationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the optional Postgres connection. When URL is empty
// the application runs on the JSON file cache instead.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// Enabled reports whether a Postgres store is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// PathConfig holds filesystem locations for cached data.
type PathConfig struct {
	DataDir         string
	UserDataFile    string
	SpreadsheetFile string
}

// EstimationConfig holds estimation defaults.
type EstimationConfig struct {
	ReferenceYear   int
	ConfidenceLevel float64
	Locale          string
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "8080"),
			ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Paths: PathConfig{
			DataDir:         getEnvOrDefault("DATA_DIR", "data"),
			UserDataFile:    getEnvOrDefault("USER_DATA_FILE", "data/user_data.yaml"),
			SpreadsheetFile: getEnvOrDefault("STATS_SPREADSHEET", ""),
		},
		Estimation: EstimationConfig{
			ReferenceYear:   getEnvIntOrDefault("REFERENCE_YEAR", 2023),
			ConfidenceLevel: getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
			Locale:          getEnvOrDefault("LOCALE", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Paths.DataDir == "" {
		return errors.ConfigInvalid("DATA_DIR must not be empty")
	}
	if cfg.Estimation.ReferenceYear < 1998 {
		return errors.ConfigInvalid("REFERENCE_YEAR predates the standardized exam")
	}
	if c := cfg.Estimation.ConfidenceLevel; c <= 0 || c >= 1 {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be strictly between 0 and 1")
	}
	return nil
}

// Environment parsing helpers.

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
