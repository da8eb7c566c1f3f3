package config

import (
	"os"
	"strconv"
)

// Config holds all runtime settings, loaded from environment variables
// with sensible defaults.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// LLM settings. An empty key disables the LLM path entirely.
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMMode    bool

	// Mercari search credential (optional).
	MercariAPIKey string

	// Browser binary override for the sold-listings scraper.
	ChromeBin string

	// Pacing and concurrency knobs.
	ScanConcurrency int
	BatchPauseMs    int
	MarketPaceMs    int
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "root:password@tcp(localhost:3306)/flipfinder?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMModel:   getEnv("LLM_MODEL", ""),
		LLMMode:    getEnvBool("LLM_MODE", true),

		MercariAPIKey: getEnv("MERCARI_API_KEY", ""),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		ScanConcurrency: getEnvInt("SCAN_CONCURRENCY", 3),
		BatchPauseMs:    getEnvInt("BATCH_PAUSE_MS", 500),
		MarketPaceMs:    getEnvInt("MARKET_PACE_MS", 2000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
