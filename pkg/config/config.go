package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Messaging
	NATS NATSConfig

	// Collection stage
	Collector CollectorConfig

	// Quality gate
	Gate GateConfig

	// HTTP API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NATSConfig holds NATS configuration for run summary events
type NATSConfig struct {
	URL     string
	Enabled bool
	Subject string
}

// CollectorConfig selects where raw collection records are read from
type CollectorConfig struct {
	Source  string // db, http
	BaseURL string
	RPS     float64 // HTTP source 초당 요청 수
	Burst   int
	Timeout time.Duration
}

// GateConfig holds quality gate job settings
type GateConfig struct {
	ThresholdsFile      string
	Workers             int
	Schedule            string // cron spec
	ReportRetentionDays int
	RetentionSchedule   string
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	RateLimit float64 // 쓰기 엔드포인트 초당 요청 수, 0이면 무제한
	RateBurst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "10m"),
		},

		// Messaging
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
			Subject: getEnv("NATS_SUBJECT", "homescan.quality.runs"),
		},

		// Collection stage
		Collector: CollectorConfig{
			Source:  getEnv("COLLECTOR_SOURCE", "db"),
			BaseURL: getEnv("COLLECTOR_BASE_URL", "http://localhost:8090"),
			RPS:     getEnvAsFloat("COLLECTOR_RPS", 5),
			Burst:   getEnvAsInt("COLLECTOR_BURST", 1),
			Timeout: getEnvAsDuration("COLLECTOR_TIMEOUT", "30s"),
		},

		// Quality gate
		Gate: GateConfig{
			ThresholdsFile:      getEnv("GATE_THRESHOLDS_FILE", ""),
			Workers:             getEnvAsInt("GATE_WORKERS", 8),
			Schedule:            getEnv("GATE_SCHEDULE", "0 */10 * * * *"),
			ReportRetentionDays: getEnvAsInt("REPORT_RETENTION_DAYS", 30),
			RetentionSchedule:   getEnv("RETENTION_SCHEDULE", "0 30 4 * * *"),
		},

		// HTTP API
		API: APIConfig{
			RateLimit: getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst: getEnvAsInt("API_RATE_BURST", 40),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable.
// DATABASE_URL is checked by database.New, since validate/gate run without Postgres.
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Collector.Source != "db" && c.Collector.Source != "http" {
		return fmt.Errorf("COLLECTOR_SOURCE must be one of: db, http")
	}

	if c.Gate.Workers <= 0 {
		return fmt.Errorf("GATE_WORKERS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
