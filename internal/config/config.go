package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	AppEnv    string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Sync      SyncConfig
	ERP       ERPConfig
	Storage   StorageConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// SyncConfig tunes the sync engine and its janitors
type SyncConfig struct {
	// RecentWindowDays bounds the "recent" pull scope.
	RecentWindowDays int
	// LedgerRetentionDays is how long push outcomes stay replayable.
	LedgerRetentionDays int
	// PurgeAfterDays removes soft-deleted rows older than the window.
	// 0 keeps tombstones forever.
	PurgeAfterDays int
	// PushPerMinute caps push requests per user at the gateway.
	PushPerMinute int
}

// ERPConfig holds the Odoo price-book bridge configuration. The bridge is
// disabled when URL is empty.
type ERPConfig struct {
	URL             string
	Database        string
	Username        string
	Password        string
	IntervalMinutes int
}

// StorageConfig holds S3 attachment storage configuration. Attachments are
// disabled when Bucket is empty.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	appEnv := getEnv("APP_ENV", "development")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if appEnv == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		jwtSecret = "fieldgo-dev-secret"
		log.Println("⚠️  JWT_SECRET not set, using the development fallback")
	}

	return &Config{
		AppEnv:    appEnv,
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "fieldgo"),
		},
		Sync: SyncConfig{
			RecentWindowDays:    getEnvInt("SYNC_RECENT_WINDOW_DAYS", 90),
			LedgerRetentionDays: getEnvInt("SYNC_LEDGER_RETENTION_DAYS", 30),
			PurgeAfterDays:      getEnvInt("SYNC_PURGE_AFTER_DAYS", 0),
			PushPerMinute:       getEnvInt("SYNC_PUSH_PER_MINUTE", 120),
		},
		ERP: ERPConfig{
			URL:             os.Getenv("ODOO_URL"),
			Database:        os.Getenv("ODOO_DB"),
			Username:        os.Getenv("ODOO_USERNAME"),
			Password:        os.Getenv("ODOO_PASSWORD"),
			IntervalMinutes: getEnvInt("ODOO_SYNC_INTERVAL_MINUTES", 30),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
