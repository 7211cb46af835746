package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for uploaded vendor documents.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig points the reminder ledger at Redis. An empty URL keeps the
// ledger in process memory.
type RedisConfig struct {
	URL string
	// LedgerGrace is how long a fired reminder is remembered after the certificate expires.
	LedgerGrace time.Duration
}

// NATSConfig configures the notification bus. An empty URL logs events instead.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// ExtractionConfig bounds text extraction for a single upload.
type ExtractionConfig struct {
	Timeout       time.Duration
	MaxUploadSize int64
}

// ReminderConfig schedules the daily expiry reminder sweep.
type ReminderConfig struct {
	Enabled bool
	Cron    string
}

// BreakerConfig controls retries and circuit breaking around extraction and publishing.
type BreakerConfig struct {
	Enabled          bool
	RetryMaxAttempts int
	RetryBackoff     time.Duration
	MinRequests      int
	FailureRatio     float64
	OpenTimeout      time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	LogLevel   string
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Extraction ExtractionConfig
	Reminder   ReminderConfig
	Breaker    BreakerConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "vendor-documents"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			LedgerGrace: getEnvDuration("REMINDER_LEDGER_GRACE", 7*24*time.Hour),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "coiapi.events"),
			Name:          getEnv("NATS_CLIENT_NAME", "coiapi"),
		},
		Extraction: ExtractionConfig{
			Timeout:       getEnvDuration("EXTRACTION_TIMEOUT", 20*time.Second),
			MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 20)) << 20,
		},
		Reminder: ReminderConfig{
			Enabled: getEnvBool("REMINDER_ENABLED", true),
			Cron:    getEnv("REMINDER_CRON", "0 7 * * *"),
		},
		Breaker: BreakerConfig{
			Enabled:          getEnvBool("BREAKER_ENABLED", true),
			RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 2),
			RetryBackoff:     getEnvDuration("RETRY_BACKOFF", 100*time.Millisecond),
			MinRequests:      getEnvInt("BREAKER_MIN_REQUESTS", 10),
			FailureRatio:     getEnvFloat("BREAKER_FAILURE_RATIO", 0.5),
			OpenTimeout:      getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("20s", "168h").
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
