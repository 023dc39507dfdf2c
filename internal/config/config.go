package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Store selection: "mongo" (default) or "postgres"
	Store       string
	MongoURL    string
	MongoDB     string
	DatabaseURL string

	// Event transport: "redis" (default), "nats" or "none"
	Events   string
	RedisURL string
	NATSURL  string

	// Trailing window for per-room activity counts
	RecentWindow time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		Store:        getEnv("STORE", "mongo"),
		MongoURL:     getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "parley"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Events:       getEnv("EVENTS", "redis"),
		RedisURL:     os.Getenv("REDIS_URL"),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		RecentWindow: getDuration("RECENT_WINDOW", 10*time.Minute),
	}

	if cfg.Env == "production" {
		if cfg.Store == "postgres" && cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production with STORE=postgres")
		}
		if cfg.Events == "redis" && cfg.RedisURL == "" {
			panic("REDIS_URL is required in production with EVENTS=redis")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
