package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	CORS       CORSConfig
	Insightly  InsightlyConfig
	Monday     MondayConfig
	Sync       SyncConfig
	Dispatcher DispatcherConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
	Debug   bool
	Port    string
	Host    string
	// DashboardURL prefixes the links stored on tasks and activity items.
	DashboardURL string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	SecretKey          string
	TokenExpiryMinutes int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// InsightlyConfig holds the Insightly lead client configuration
type InsightlyConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
	// WebURL is the browser-facing base used to build lead links.
	WebURL  string
	Timeout time.Duration
}

// MondayConfig holds the monday.com board client configuration
type MondayConfig struct {
	Enabled  bool
	APIToken string
	BaseURL  string
	BoardID  string
	GroupID  string
	Account  string
	Timeout  time.Duration
}

// SyncConfig holds the failed-sync sweeper policy. A zero interval disables it.
type SyncConfig struct {
	SweepInterval  time.Duration
	SweepBatchSize int
}

// DispatcherConfig holds lifecycle outbox delivery settings
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:         getEnv("APP_NAME", "Inquiry Orchestrator"),
			Version:      getEnv("APP_VERSION", "1.0.0"),
			Debug:        getEnvAsBool("DEBUG", false),
			Port:         getEnv("PORT", "8000"),
			Host:         getEnv("HOST", "0.0.0.0"),
			DashboardURL: strings.TrimRight(getEnv("DASHBOARD_URL", "http://localhost:8000/dashboard"), "/"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "sqlite:///./inquiries.db"),
		},
		Auth: AuthConfig{
			SecretKey:          getEnv("SECRET_KEY", ""),
			TokenExpiryMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_HOSTS", []string{"*"}),
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
			AllowedHeaders: []string{"*"},
			MaxAge:         86400,
		},
		Insightly: InsightlyConfig{
			Enabled: getEnvAsBool("INSIGHTLY_ENABLED", false),
			APIKey:  getEnv("INSIGHTLY_API_KEY", ""),
			BaseURL: getEnv("INSIGHTLY_API_URL", "https://api.na1.insightly.com/v3.1"),
			WebURL:  getEnv("INSIGHTLY_WEB_URL", "https://crm.na1.insightly.com"),
			Timeout: getEnvAsDuration("INSIGHTLY_TIMEOUT", 15*time.Second),
		},
		Monday: MondayConfig{
			Enabled:  getEnvAsBool("MONDAY_ENABLED", false),
			APIToken: getEnv("MONDAY_API_TOKEN", ""),
			BaseURL:  getEnv("MONDAY_API_URL", "https://api.monday.com/v2"),
			BoardID:  getEnv("MONDAY_BOARD_ID", ""),
			GroupID:  getEnv("MONDAY_GROUP_ID", ""),
			Account:  getEnv("MONDAY_ACCOUNT", ""),
			Timeout:  getEnvAsDuration("MONDAY_TIMEOUT", 15*time.Second),
		},
		Sync: SyncConfig{
			SweepInterval:  getEnvAsDuration("SYNC_SWEEP_INTERVAL", 0),
			SweepBatchSize: getEnvAsInt("SYNC_SWEEP_BATCH_SIZE", 25),
		},
		Dispatcher: DispatcherConfig{
			PollInterval: getEnvAsDuration("DISPATCH_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getEnvAsInt("DISPATCH_BATCH_SIZE", 20),
			MaxAttempts:  getEnvAsInt("DISPATCH_MAX_ATTEMPTS", 10),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.Auth.TokenExpiryMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be greater than 0")
	}
	if cfg.Insightly.Enabled && cfg.Insightly.APIKey == "" {
		return fmt.Errorf("INSIGHTLY_API_KEY must be set when INSIGHTLY_ENABLED is true")
	}
	if cfg.Monday.Enabled && (cfg.Monday.APIToken == "" || cfg.Monday.BoardID == "") {
		return fmt.Errorf("MONDAY_API_TOKEN and MONDAY_BOARD_ID must be set when MONDAY_ENABLED is true")
	}
	if cfg.Dispatcher.BatchSize <= 0 {
		return fmt.Errorf("DISPATCH_BATCH_SIZE must be greater than 0")
	}
	if cfg.Sync.SweepInterval < 0 {
		return fmt.Errorf("SYNC_SWEEP_INTERVAL must not be negative")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://") ||
		strings.Contains(c.URL, "host=")
}

// GetSQLitePath extracts SQLite database path from URL
func (c *DatabaseConfig) GetSQLitePath() string {
	return strings.TrimPrefix(c.URL, "sqlite:///")
}
