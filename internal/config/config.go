// Package config reads the environment the storefront client runs against.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// APIBaseURL is the backend root every resource path is joined onto.
	APIBaseURL string
	// StripePublishableKey identifies the hosted-payment account; the client
	// only passes it through, it never talks to the provider directly.
	StripePublishableKey string
	// FrontendBaseURL is where the provider redirects the customer back to.
	FrontendBaseURL string

	// StatePath is the JSON file holding the persisted session; empty means
	// in-memory only.
	StatePath string
	// RedisAddr switches session persistence to redis when set.
	RedisAddr string

	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	// missing .env is fine; a broken one is not
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		APIBaseURL:           getEnv("API_BASE_URL", "http://localhost:5000"),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		FrontendBaseURL:      getEnv("FRONTEND_BASE_URL", "http://localhost:4300"),
		StatePath:            getEnv("STOREFRONT_STATE_PATH", defaultStatePath()),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RequestTimeout:       30 * time.Second,
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.storefront/session.json"
}
