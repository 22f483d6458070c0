package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Matching   MatchingConfig
	Processing ProcessingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type MatchingConfig struct {
	// Threshold is the minimum fuzzy similarity accepted as a match.
	Threshold float64
	// AutoCreate controls whether unmatched receipt items create catalog
	// products.
	AutoCreate bool
}

type ProcessingConfig struct {
	// SeedPath points at the CSV of curated catalog products loaded at
	// startup. Empty disables seeding.
	SeedPath string
	// ArchiveDir is where original receipt documents are kept. Empty disables
	// archiving.
	ArchiveDir string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*Config, error) {
	// A missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "kassenblick-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Matching: MatchingConfig{
			Threshold:  getEnvAsFloat("MATCH_THRESHOLD", 0.8),
			AutoCreate: getEnvAsBool("MATCH_AUTO_CREATE", true),
		},
		Processing: ProcessingConfig{
			SeedPath:   getEnv("CATALOG_SEED_PATH", ""),
			ArchiveDir: getEnv("RECEIPT_ARCHIVE_DIR", ""),
		},
	}

	if cfg.Matching.Threshold < 0 || cfg.Matching.Threshold > 1 {
		return nil, errors.New("MATCH_THRESHOLD must be within [0, 1]")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
