package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseURL      string
	ChannelURL   string
	ChannelEvent string
	DBFile       string
	UserID       string
	Token        string
	DialEvery    time.Duration
}

func Load() (*Config, error) {
	// Optional .env file, real env wins.
	_ = godotenv.Load()

	dialEvery, err := time.ParseDuration(getEnv("PEERTALK_DIAL_EVERY", "2s"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:      getEnv("PEERTALK_BASE_URL", "http://localhost:8080"),
		ChannelURL:   getEnv("PEERTALK_WS_URL", "ws://localhost:8080/api/chat"),
		ChannelEvent: getEnv("PEERTALK_EVENT", "message"),
		DBFile:       getEnv("PEERTALK_DB", "peertalk.db"),
		UserID:       os.Getenv("PEERTALK_USER_ID"),
		Token:        os.Getenv("PEERTALK_TOKEN"),
		DialEvery:    dialEvery,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("PEERTALK_USER_ID is required")
	}
	if c.Token == "" {
		return fmt.Errorf("PEERTALK_TOKEN is required")
	}
	if c.DialEvery <= 0 {
		return fmt.Errorf("PEERTALK_DIAL_EVERY must be greater than 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
