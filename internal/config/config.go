package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the engine's environment-driven configuration.
type Config struct {
	// CatalogAPIURL is the base URL of the remote catalog API.
	CatalogAPIURL string
	// ListenAddr is the HTTP listen address for the UI-facing surface.
	ListenAddr string
	// DataDir is the directory for the durable cart store.
	DataDir string
	// Debounce is the criteria coalescing window.
	Debounce time.Duration
	// HTTPTimeout is applied to the outgoing transport. The engine itself
	// imposes no deadline; this configures the transport it is handed.
	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables, defaulting every key.
func Load() Config {
	return Config{
		CatalogAPIURL: getEnv("CATALOG_API_URL", "https://fakestoreapi.com"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DataDir:       getEnv("DATA_DIR", "data"),
		Debounce:      msEnv("DEBOUNCE_MS", 300),
		HTTPTimeout:   msEnv("HTTP_TIMEOUT_MS", 10000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func msEnv(key string, defaultMs int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(defaultMs) * time.Millisecond
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return time.Duration(defaultMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
