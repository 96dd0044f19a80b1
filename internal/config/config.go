package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	ListenAddr   string
	DatabasePath string
	DataDir      string
	SecretKey    string
	DefaultUser  string
	DefaultPass  string
	PollInterval time.Duration
}

func Load() (*Config, error) {
	dataDir := envOr("CRAFTDECK_DATA_DIR", "./data")
	// Docker bind mounts require absolute paths
	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	poll := 30 * time.Second
	if v := os.Getenv("CRAFTDECK_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CRAFTDECK_POLL_INTERVAL %q: %w", v, err)
		}
		if d < time.Second {
			return nil, fmt.Errorf("CRAFTDECK_POLL_INTERVAL must be at least 1s")
		}
		poll = d
	}

	return &Config{
		ListenAddr:   envOr("CRAFTDECK_LISTEN", ":8080"),
		DatabasePath: envOr("CRAFTDECK_DB", filepath.Join(dataDir, "craftdeck.db")),
		DataDir:      dataDir,
		SecretKey:    envOr("CRAFTDECK_SECRET", "change-me-in-production"),
		DefaultUser:  envOr("CRAFTDECK_DEFAULT_USER", "admin"),
		DefaultPass:  envOr("CRAFTDECK_DEFAULT_PASS", "admin"),
		PollInterval: poll,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
