package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	Environment string `validate:"required"`

	// AWS configuration
	AWSRegion         string `validate:"required"`
	LiveTable         string `validate:"required"`
	StaticTable       string `validate:"required"`
	PersonalBestIndex string `validate:"required"`
	EventBusName      string

	// Notification configuration
	NotificationSender    string `validate:"omitempty,email"`
	NotificationRecipient string `validate:"omitempty,email"`
	NotificationCC        []string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		AWSRegion:         getEnv("AWS_REGION", "eu-west-1"),
		LiveTable:         getEnv("LIVE_TABLE_NAME", "velostream-live"),
		StaticTable:       getEnv("STATIC_TABLE_NAME", "velostream-static"),
		PersonalBestIndex: getEnv("PERSONAL_BEST_INDEX_NAME", "EventTimeStampIndex"),
		EventBusName:      getEnv("EVENT_BUS_NAME", ""),

		NotificationSender:    getEnv("NOTIFICATION_SENDER", ""),
		NotificationRecipient: getEnv("NOTIFICATION_RECIPIENT", ""),
		NotificationCC:        getEnvList("NOTIFICATION_CC"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.NotificationsEnabled() && c.NotificationSender == "" {
		return fmt.Errorf("NOTIFICATION_SENDER is required when NOTIFICATION_RECIPIENT is set")
	}
	return nil
}

// NotificationsEnabled reports whether personal-best email is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.NotificationRecipient != ""
}

// StatusEventsEnabled reports whether lifecycle transitions are published.
func (c *Config) StatusEventsEnabled() bool {
	return c.EventBusName != ""
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
