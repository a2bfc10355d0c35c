package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration, read from the environment.
type Config struct {
	Environment string
	HTTPAddr    string
	Database    Database
	RabbitMQURL string
	CatalogPath string

	// Retention is how long soft-deleted records are kept before the
	// cleanup job purges them.
	Retention time.Duration

	ShutdownTimeout time.Duration
}

// Database holds the Postgres connection settings.
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads config from env with sensible defaults. Only the database
// credentials have no default; db.Connect rejects a config missing them.
func Load() Config {
	return Config{
		Environment: getEnv("ENVIRONMENT", "production"),
		HTTPAddr:    ":" + getEnv("PORT", "8080"),
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		Retention:       getDurationDays("PATIENT_RETENTION_DAYS", 90),
		ShutdownTimeout: 15 * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationDays(key string, fallbackDays int) time.Duration {
	days := fallbackDays
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return time.Duration(days) * 24 * time.Hour
}
