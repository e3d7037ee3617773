package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: snapshot history)
	Database DatabaseConfig

	// Redis (optional: latest snapshot mirror)
	Redis RedisConfig

	// Kafka (optional: snapshot events)
	Kafka KafkaConfig

	// Upstream feed
	TWSE TWSEConfig

	// Artifact and snapshot policy
	Artifact ArtifactConfig
	Snapshot SnapshotConfig

	// Scheduler
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   LogFileConfig
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

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether any broker was configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// TWSEConfig holds the exchange feed configuration
type TWSEConfig struct {
	BaseURL   string
	Format    string // json, html
	Type      string // MI_INDEX type, e.g. ALLBUTOTC
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// ArtifactConfig holds the persisted artifact location
type ArtifactConfig struct {
	Path string
}

// SnapshotConfig holds the ranking policy
type SnapshotConfig struct {
	TopN                 int
	MarketClose          string // HH:MM in Timezone
	ChangeFormula        string // A, B, C
	IncludeZeroInGainers bool
	OnAbsentChangeAmount string // zero_fill, drop
	Timezone             string
	PolicyFile           string // optional YAML overlay
}

// ScheduleConfig holds cron expressions (with seconds)
type ScheduleConfig struct {
	Intraday  string
	PostClose string
}

// LogFileConfig holds rotating log file configuration
type LogFileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
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
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Kafka
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "market-movers"),
		},

		// Upstream feed
		TWSE: TWSEConfig{
			BaseURL:   getEnv("TWSE_BASE_URL", "https://www.twse.com.tw"),
			Format:    getEnv("TWSE_FORMAT", "json"),
			Type:      getEnv("TWSE_TYPE", "ALLBUTOTC"),
			Timeout:   getEnvAsDuration("TWSE_TIMEOUT", "30s"),
			RateLimit: getEnvAsFloat("TWSE_RATE_LIMIT", 0.5),
		},

		Artifact: ArtifactConfig{
			Path: getEnv("ARTIFACT_PATH", "data.json"),
		},

		Snapshot: SnapshotConfig{
			TopN:                 getEnvAsInt("SNAPSHOT_TOP_N", 10),
			MarketClose:          getEnv("SNAPSHOT_MARKET_CLOSE", "14:30"),
			ChangeFormula:        getEnv("SNAPSHOT_CHANGE_FORMULA", "A"),
			IncludeZeroInGainers: getEnvAsBool("SNAPSHOT_INCLUDE_ZERO_IN_GAINERS", false),
			OnAbsentChangeAmount: getEnv("SNAPSHOT_ON_ABSENT_CHANGE_AMOUNT", "zero_fill"),
			Timezone:             getEnv("SNAPSHOT_TIMEZONE", "Asia/Taipei"),
			PolicyFile:           getEnv("SNAPSHOT_POLICY_FILE", ""),
		},

		Schedule: ScheduleConfig{
			Intraday:  getEnv("SNAPSHOT_SCHEDULE", "0 */10 9-13 * * MON-FRI"),
			PostClose: getEnv("SNAPSHOT_SCHEDULE_CLOSE", "0 35 14 * * MON-FRI"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile: LogFileConfig{
			Path:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 10),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),
		},
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFrom loads an explicit env file before reading the environment.
// Variables already set in the process environment win.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return Load()
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.TWSE.Format != "json" && c.TWSE.Format != "html" {
		return fmt.Errorf("TWSE_FORMAT must be json or html")
	}

	if c.Artifact.Path == "" {
		return fmt.Errorf("ARTIFACT_PATH is required")
	}

	if _, _, err := ParseClock(c.Snapshot.MarketClose); err != nil {
		return fmt.Errorf("SNAPSHOT_MARKET_CLOSE: %w", err)
	}

	return nil
}

// ParseClock parses "HH:MM" into hour and minute
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q (want HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
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

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
