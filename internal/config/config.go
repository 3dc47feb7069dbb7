package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DBSource        string
	StoreDriver     string
	SQLitePath      string
	Port            string
	Env             string
	ImportDir       string
	ImportBatchSize int
	JobQueueSize    int
	LogLevel        string
}

func Load() (*Config, error) {
	cfg := &Config{
		DBSource:    os.Getenv("DB_SOURCE"),
		StoreDriver: getenv("STORE_DRIVER", "postgres"),
		SQLitePath:  getenv("SQLITE_PATH", "./data/debts.db"),
		Port:        getenv("SERVER_PORT", "8080"),
		Env:         getenv("ENVIRONMENT", "development"),
		ImportDir:   getenv("IMPORT_DIR", "./tmp/imports"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", cfg.StoreDriver)
	}

	var err error
	if cfg.ImportBatchSize, err = positiveInt("IMPORT_BATCH_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.JobQueueSize, err = positiveInt("JOB_QUEUE_SIZE", 64); err != nil {
		return nil, err
	}

	return cfg, nil
}

// StoreSource is the connection string for the selected driver.
func (c *Config) StoreSource() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DBSource
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
