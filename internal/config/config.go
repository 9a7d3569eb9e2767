package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Import configuration
	Import ImportConfig

	// Auth configuration
	Auth AuthConfig

	// Schema configuration
	Schema SchemaConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// ImportConfig holds ingestion settings.
//
// Delimiter is deployment configuration, not auto-detected: the
// cooperative's spreadsheet exports use a fixed separator and sniffing
// would corrupt legitimately comma-containing fields.
type ImportConfig struct {
	ChunkSize     int
	Delimiter     string
	MaxUploadSize int64 // in bytes
	UploadDir     string
}

// AuthConfig holds session settings. The master pair grants SuperAdmin
// access without a backing profile row and must stay outside the
// profile tables.
type AuthConfig struct {
	MasterIdentifier string
	MasterSecret     string
	TokenSecret      string
	SessionTTL       time.Duration
}

// SchemaConfig holds the schema fallback asset location
type SchemaConfig struct {
	FallbackPath string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "coop_records"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Import: ImportConfig{
			ChunkSize:     getIntEnv("IMPORT_CHUNK_SIZE", 50),
			Delimiter:     getEnv("IMPORT_DELIMITER", ";"),
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", 100*1024*1024), // 100MB
			UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
		},
		Auth: AuthConfig{
			MasterIdentifier: getEnv("MASTER_IDENTIFIER", "gerencia@cooperativa.local"),
			MasterSecret:     getEnv("MASTER_SECRET", ""),
			TokenSecret:      getEnv("TOKEN_SECRET", ""),
			SessionTTL:       getDurationEnv("SESSION_TTL", 12*time.Hour),
		},
		Schema: SchemaConfig{
			FallbackPath: getEnv("SCHEMA_FALLBACK_PATH", "./configs/schema_fallback.yaml"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.MasterSecret == "" {
		return fmt.Errorf("MASTER_SECRET is required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("TOKEN_SECRET is required")
	}
	if c.Import.ChunkSize <= 0 {
		return fmt.Errorf("IMPORT_CHUNK_SIZE must be positive")
	}
	if len(c.Import.Delimiter) != 1 {
		return fmt.Errorf("IMPORT_DELIMITER must be a single character")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
