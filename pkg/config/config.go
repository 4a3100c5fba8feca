package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values, one field per environment
// variable.
type Config struct {
	Port           string
	BackendBaseURL string
	GatewayBaseURL string
	GatewayAPIKey  string
	ReturnBaseURL  string
	Currency       string
	TokenPath      string
	HoldSeconds    int
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (Config, error) {
	// A missing .env file is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := Config{
		Port:        getenv("HTTP_PORT", "8080"),
		Currency:    getenv("CURRENCY", "mxn"),
		TokenPath:   getenv("TOKEN_PATH", ".andenbus/token.json"),
		HoldSeconds: 600,
	}

	var err error
	if cfg.BackendBaseURL, err = must("BACKEND_BASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.GatewayBaseURL, err = must("GATEWAY_BASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.GatewayAPIKey, err = must("GATEWAY_API_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.ReturnBaseURL, err = must("RETURN_BASE_URL"); err != nil {
		return Config{}, err
	}

	if raw := os.Getenv("HOLD_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid HOLD_SECONDS: %q", raw)
		}
		cfg.HoldSeconds = n
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func must(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return v, nil
}
