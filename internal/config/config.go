// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	HTTPAddr    string
	DatabaseURL string // Postgres DSN; empty disables persistence.
	RedisAddr   string // Redis address; empty disables the round-record queue.
	JWTSecret   string
	LogLevel    logrus.Level
	ChoiceTimer time.Duration // Per-round submission window; 0 disables timeouts.
}

// Load reads .env (if present) and the process environment. Invalid values
// fail fast; missing optional backends just disable the feature.
func Load() (Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	c := Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ChoiceTimer: 30 * time.Second,
	}

	if v := os.Getenv("CHOICE_TIMER_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return Config{}, fmt.Errorf("invalid CHOICE_TIMER_SEC %q", v)
		}
		c.ChoiceTimer = time.Duration(sec) * time.Second
	}

	level, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	if c.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
