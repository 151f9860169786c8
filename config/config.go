package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Transfer service configuration
	TransferServiceURL string

	// Account IDs allowed to call administrative operations
	// (set rates, toggle staking, run the expiry sweep)
	AdminAccountIDs []int64

	// Sweep worker configuration
	SweepIntervalMinutes int

	// Metrics endpoint listen address
	MetricsAddr string

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// IsAdmin reports whether the account is a configured administrator
func (c *Config) IsAdmin(accountID int64) bool {
	for _, id := range c.AdminAccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		TransferServiceURL: os.Getenv("TRANSFER_SERVICE_URL"),

		// Defaults
		SweepIntervalMinutes: 60,
		MetricsAddr:          ":9090",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if interval := os.Getenv("SWEEP_INTERVAL_MINUTES"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil {
			config.SweepIntervalMinutes = parsed
		}
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		config.MetricsAddr = addr
	}

	// Parse admin account IDs
	if adminIDs := os.Getenv("ADMIN_ACCOUNT_IDS"); adminIDs != "" {
		idStrings := strings.Split(adminIDs, ",")
		for _, idStr := range idStrings {
			idStr = strings.TrimSpace(idStr)
			if idStr != "" {
				if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
					config.AdminAccountIDs = append(config.AdminAccountIDs, id)
				}
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.TransferServiceURL == "" {
			return nil, fmt.Errorf("TRANSFER_SERVICE_URL is required")
		}
	}

	return config, nil
}
