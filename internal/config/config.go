package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported values for DATA_BACKEND.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	DataBackend      string
	DataDir          string
	TransactionsFile string
	CredentialsFile  string
	SQLitePath       string
	LegacyOwner      string

	// Database (postgres backend)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// AI providers
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	// Analytics
	AntThreshold decimal.Decimal

	// Automated import pipeline
	PipelineAPIKey string

	// Messaging
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dataDir := getEnv("DATA_DIR", "data")

	config := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DataBackend:      getEnv("DATA_BACKEND", BackendFile),
		DataDir:          dataDir,
		TransactionsFile: getEnv("TRANSACTIONS_FILE", filepath.Join(dataDir, "transactions.csv")),
		CredentialsFile:  getEnv("CREDENTIALS_FILE", filepath.Join(dataDir, "users.json")),
		SQLitePath:       getEnv("SQLITE_PATH", filepath.Join(dataDir, "misa.db")),
		LegacyOwner:      getEnv("LEGACY_LEDGER_OWNER", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "misa"),
		DBPassword: getEnv("DB_PASSWORD", "misa"),
		DBName:     getEnv("DB_NAME", "misa"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JWTExpirationDur: getDuration("JWT_EXPIRES_IN", 24*time.Hour),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AITimeout:    getDuration("AI_TIMEOUT", 10*time.Second),

		AntThreshold: getDecimal("ANT_THRESHOLD", decimal.NewFromInt(100)),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "misa"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "misa.ledger"),
	}

	switch config.DataBackend {
	case BackendFile, BackendSQLite, BackendPostgres:
	default:
		log.Printf("Warning: unknown DATA_BACKEND '%s', falling back to %s\n", config.DataBackend, BackendFile)
		config.DataBackend = BackendFile
	}

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

// PostgresDSN returns the keyword/value connection string used by gorm.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// PostgresURL returns the connection URL used by golang-migrate.
func (c *Config) PostgresURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
