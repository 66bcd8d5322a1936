package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime tunable of the service, loaded from env vars
// (a .env file is honored when present, same as the DB layer).
type Config struct {
	HTTPAddr string

	ExpirySweepInterval   time.Duration
	ReminderSweepInterval time.Duration

	DispatcherWorkers   int
	DispatcherQueueSize int
}

// Load reads the configuration from the environment, applying defaults for
// anything unset.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:              getString("HTTP_ADDR", ":9000"),
		ExpirySweepInterval:   getDuration("EXPIRY_SWEEP_INTERVAL", 80*time.Second),
		ReminderSweepInterval: getDuration("REMINDER_SWEEP_INTERVAL", 5*time.Minute),
		DispatcherWorkers:     getInt("DISPATCHER_WORKERS", 4),
		DispatcherQueueSize:   getInt("DISPATCHER_QUEUE_SIZE", 1024),
	}
}

// BuildPostgresDSN assembles the connection string from the DB_* env vars.
func BuildPostgresDSN() string {
	_ = godotenv.Load()

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_SSLMODE"),
	)
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
