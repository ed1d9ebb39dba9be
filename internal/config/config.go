package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the engine
type Config struct {
	// Environment: "development" or "production"
	Environment string

	// Resource paths
	DataDir string

	// Wallet
	SeedBalance int64  // starting balance for a fresh profile
	Currency    string // display currency for transactions

	// Storage
	StorageType string // "memory" or "sqlite"

	// VIP gating and achievement thresholds
	VIPMinBalance   int64
	BigWinThreshold int64
	LoyalSpins      int

	// Settlement archive (optional)
	ArchiveEnabled bool
	ArchiveURL     string
	ArchiveIndex   string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	seedBalance, err := getEnvInt64("SEED_BALANCE", 70000)
	if err != nil {
		return nil, err
	}
	vipMin, err := getEnvInt64("VIP_MIN_BALANCE", 50000)
	if err != nil {
		return nil, err
	}
	bigWin, err := getEnvInt64("BIG_WIN_THRESHOLD", 10000)
	if err != nil {
		return nil, err
	}
	loyal, err := getEnvInt64("LOYAL_SPINS", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		DataDir:         getEnvWithDefault("DATA_DIR", filepath.Join(wd, "data")),
		SeedBalance:     seedBalance,
		Currency:        getEnvWithDefault("CURRENCY", "KOLO"),
		StorageType:     getEnvWithDefault("STORAGE_TYPE", "memory"),
		VIPMinBalance:   vipMin,
		BigWinThreshold: bigWin,
		LoyalSpins:      int(loyal),
		ArchiveEnabled:  strings.EqualFold(os.Getenv("ARCHIVE_ENABLED"), "true"),
		ArchiveURL:      getEnvWithDefault("ARCHIVE_URL", "http://localhost:9200"),
		ArchiveIndex:    getEnvWithDefault("ARCHIVE_INDEX", "kolovegas_settlements"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks if all required configuration is present and sane
func (c *Config) validate() error {
	if c.SeedBalance < 0 {
		return fmt.Errorf("SEED_BALANCE cannot be negative")
	}
	if c.StorageType != "memory" && c.StorageType != "sqlite" {
		return fmt.Errorf("STORAGE_TYPE must be \"memory\" or \"sqlite\", got %q", c.StorageType)
	}
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be \"development\" or \"production\", got %q", c.Environment)
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}
