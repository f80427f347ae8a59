// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and validates them before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Table source kinds.
const (
	SourceSheets = "sheets"
	SourceObject = "object"
	SourceSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Table source configuration
	Table TableConfig

	// LLM Configuration (free-text relay and LINE channel)
	LLMProviders       []string // Provider order, e.g. ["gemini", "groq"]
	GeminiAPIKey       string
	GroqAPIKey         string
	GeminiIntentModels []string
	GroqIntentModels   []string

	// Relay Configuration
	RelayAllowOrigins []string
	RelayRateBurst    float64 // Maximum burst per client IP
	RelayRateRefill   float64 // Tokens refilled per second per client IP

	// LINE Bot Configuration (optional channel)
	LineChannelToken  string
	LineChannelSecret string

	// Metrics Authentication
	MetricsUsername string
	MetricsPassword string // empty = no auth

	// Observability
	SentryDSN           string
	SentryEnvironment   string
	SentrySampleRate    float64
	BetterStackToken    string
	BetterStackEndpoint string
}

// TableConfig selects and configures the tabular data source.
type TableConfig struct {
	Source          string // sheets, object or sqlite
	FetchTimeout    time.Duration
	FetchMaxRetries int

	// Google Sheets
	SheetsCredentials     string // JSON blob or path to a service-account file; empty = ADC
	SheetsRange           string
	SheetIDUGCourses      string
	SheetIDCourseLecturer string
	SheetIDLecturerInfo   string

	// Object storage (R2 / S3)
	ObjectEndpoint    string
	ObjectAccessKeyID string
	ObjectSecretKey   string
	ObjectBucket      string
	ObjectPrefix      string

	// SQLite
	SQLitePath string
	// SQLiteSnapshotKey, when set, names a zstd-compressed database in the
	// object bucket that is downloaded to SQLitePath at startup.
	SQLiteSnapshotKey string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		Table: TableConfig{
			Source:          strings.ToLower(getEnv(EnvTableSource, SourceSheets)),
			FetchTimeout:    getDurationEnv(EnvFetchTimeout, TableFetch),
			FetchMaxRetries: getIntEnv(EnvFetchMaxRetries, 2),

			SheetsCredentials:     getEnv(EnvSheetsCredentials, ""),
			SheetsRange:           getEnv(EnvSheetsRange, "Sheet1"),
			SheetIDUGCourses:      getEnv(EnvSheetIDUGCourses, ""),
			SheetIDCourseLecturer: getEnv(EnvSheetIDCourseLecturers, ""),
			SheetIDLecturerInfo:   getEnv(EnvSheetIDLecturerInfo, ""),

			ObjectEndpoint:    getEnv(EnvObjectEndpoint, ""),
			ObjectAccessKeyID: getEnv(EnvObjectAccessKeyID, ""),
			ObjectSecretKey:   getEnv(EnvObjectSecretAccessKey, ""),
			ObjectBucket:      getEnv(EnvObjectBucket, ""),
			ObjectPrefix:      getEnv(EnvObjectPrefix, "tables/"),

			SQLitePath:        getEnv(EnvSQLitePath, "./data/tables.db"),
			SQLiteSnapshotKey: getEnv(EnvSQLiteSnapshotKey, ""),
		},

		LLMProviders:       getListEnv(EnvLLMProviders, []string{"gemini", "groq"}),
		GeminiAPIKey:       getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:         getEnv(EnvGroqAPIKey, ""),
		GeminiIntentModels: getListEnv(EnvGeminiIntentModels, nil),
		GroqIntentModels:   getListEnv(EnvGroqIntentModels, nil),

		RelayAllowOrigins: getListEnv(EnvRelayAllowOrigins, []string{"*"}),
		RelayRateBurst:    getFloatEnv(EnvRelayRateBurst, 10),
		RelayRateRefill:   getFloatEnv(EnvRelayRateRefill, 0.5), // 1 request per 2s sustained

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		SentryDSN:           getEnv(EnvSentryDSN, ""),
		SentryEnvironment:   getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:    getFloatEnv(EnvSentrySampleRate, 1.0),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if err := c.Table.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("table config: %w", err))
	}
	for _, p := range c.LLMProviders {
		if p != "gemini" && p != "groq" {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", EnvLLMProviders, p))
		}
	}
	if c.RelayRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvRelayRateBurst, c.RelayRateBurst))
	}
	if c.RelayRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvRelayRateRefill, c.RelayRateRefill))
	}
	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	return errors.Join(errs...)
}

// Validate checks the settings required by the selected source.
func (t *TableConfig) Validate() error {
	var errs []error

	switch t.Source {
	case SourceSheets:
		if t.SheetsRange == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvSheetsRange))
		}
		for key, id := range map[string]string{
			EnvSheetIDUGCourses:       t.SheetIDUGCourses,
			EnvSheetIDCourseLecturers: t.SheetIDCourseLecturer,
			EnvSheetIDLecturerInfo:    t.SheetIDLecturerInfo,
		} {
			if id == "" {
				errs = append(errs, fmt.Errorf("%s is required for the sheets source", key))
			}
		}
	case SourceObject:
		if !t.HasObjectStore() {
			errs = append(errs, fmt.Errorf("%s, %s, %s and %s are required for the object source",
				EnvObjectEndpoint, EnvObjectAccessKeyID, EnvObjectSecretAccessKey, EnvObjectBucket))
		}
	case SourceSQLite:
		if t.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite source", EnvSQLitePath))
		}
		if t.SQLiteSnapshotKey != "" && !t.HasObjectStore() {
			errs = append(errs, fmt.Errorf("%s requires the object storage settings", EnvSQLiteSnapshotKey))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be one of %s, %s, %s; got %q",
			EnvTableSource, SourceSheets, SourceObject, SourceSQLite, t.Source))
	}

	if t.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvFetchTimeout, t.FetchTimeout))
	}
	if t.FetchMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvFetchMaxRetries, t.FetchMaxRetries))
	}

	return errors.Join(errs...)
}

// HasObjectStore reports whether every object storage setting is present.
func (t *TableConfig) HasObjectStore() bool {
	return t.ObjectEndpoint != "" && t.ObjectAccessKeyID != "" && t.ObjectSecretKey != "" && t.ObjectBucket != ""
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return (c.GeminiAPIKey != "" && slices.Contains(c.LLMProviders, "gemini")) ||
		(c.GroqAPIKey != "" && slices.Contains(c.LLMProviders, "groq"))
}

// HasLINE returns true if the LINE channel credentials are configured.
func (c *Config) HasLINE() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blank items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
