package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Pipeline
	PipelineAPIKey    string
	ValuationCurrency string
	FetchConcurrency  int
	ValuationSchedule string

	// Market data
	Provider            string
	ProviderBaseURL     string
	ProviderTimeout     time.Duration
	JSONPathURLTemplate string
	JSONPathPrice       string
	JSONPathCurrency    string
	JSONPathTimestamp   string
	FXBaseURL           string
	FXPairs             []string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "valora"),
		DBPassword: getEnv("DB_PASSWORD", "valora"),
		DBName:     getEnv("DB_NAME", "valora"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "valora.db"),

		// Pipeline
		PipelineAPIKey:    getEnv("PIPELINE_API_KEY", ""),
		ValuationCurrency: strings.ToUpper(getEnv("VALUATION_CURRENCY", "USD")),
		ValuationSchedule: getEnv("VALUATION_SCHEDULE", ""),

		// Market data
		Provider:            strings.ToLower(getEnv("PROVIDER", "yahoo")),
		ProviderBaseURL:     getEnv("PROVIDER_BASE_URL", ""),
		JSONPathURLTemplate: getEnv("JSONPATH_URL_TEMPLATE", ""),
		JSONPathPrice:       getEnv("JSONPATH_PRICE", "$.price"),
		JSONPathCurrency:    getEnv("JSONPATH_CURRENCY", "$.currency"),
		JSONPathTimestamp:   getEnv("JSONPATH_TIMESTAMP", ""),
		FXBaseURL:           getEnv("FX_BASE_URL", ""),
		FXPairs:             splitList(getEnv("FX_PAIRS", "")),
	}

	concStr := getEnv("FETCH_CONCURRENCY", "4")
	conc, err := strconv.Atoi(concStr)
	if err != nil || conc < 1 {
		log.Printf("Warning: invalid FETCH_CONCURRENCY value '%s', falling back to 4\n", concStr)
		conc = 4
	}
	config.FetchConcurrency = conc

	timeoutStr := getEnv("PROVIDER_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		log.Printf("Warning: invalid PROVIDER_TIMEOUT value '%s', falling back to 10s\n", timeoutStr)
		timeout = 10 * time.Second
	}
	config.ProviderTimeout = timeout

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// PipelineEnabled reports whether the pipeline routes can be served.
func (c *Config) PipelineEnabled() bool {
	return c.PipelineAPIKey != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
