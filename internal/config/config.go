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

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// SignedURLTTL bounds how long a presigned download link stays valid.
	SignedURLTTL time.Duration
}

// RedisConfig is only used when RateLimitConfig.Backend is "redis".
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

// Signup gate modes.
const (
	SignupGateAllowlist  = "allowlist"
	SignupGateAccessCode = "access_code"
	SignupGateBoth       = "both"
)

// AuthConfig holds token signing and account onboarding settings.
type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	SignupGate string
	AccessCode string
	// ResetURL is the page a password reset link points to; the token is appended as ?token=.
	ResetURL string
}

// RateLimitConfig selects the counter backend and the failure policy.
type RateLimitConfig struct {
	Backend  string
	FailOpen bool
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MinBytes    int64
	MaxBytes    int64
	MaxAttempts int
	Window      time.Duration
}

// ReconcileConfig drives the background cleanup job.
type ReconcileConfig struct {
	Enabled   bool
	Schedule  string
	BatchSize int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	ProxyHeader string
	Timezone    string
	LogLevel    string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Redis       RedisConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Upload      UploadConfig
	Reconcile   ReconcileConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		ProxyHeader: getEnv("PROXY_HEADER", ""),
		Timezone:    getEnv("TZ", "UTC"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
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
			Endpoint:     getEnv("MINIO_ENDPOINT", ""),
			AccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:    getEnv("MINIO_SECRET_KEY", ""),
			Bucket:       getEnv("MINIO_BUCKET", ""),
			UseSSL:       getEnvBool("MINIO_USE_SSL", false),
			SignedURLTTL: getEnvDuration("MINIO_SIGNED_URL_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			Issuer:     getEnv("JWT_ISSUER", "docshare"),
			SessionTTL: getEnvDuration("JWT_SESSION_TTL", 12*time.Hour),
			ResetTTL:   getEnvDuration("JWT_RESET_TTL", 30*time.Minute),
			SignupGate: strings.ToLower(getEnv("SIGNUP_GATE", SignupGateAllowlist)),
			AccessCode: getEnv("SIGNUP_ACCESS_CODE", ""),
			ResetURL:   getEnv("PASSWORD_RESET_URL", "http://localhost:8080/reset-password"),
		},
		RateLimit: RateLimitConfig{
			Backend:  strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "postgres")),
			FailOpen: getEnvBool("RATE_LIMIT_FAIL_OPEN", true),
		},
		Upload: UploadConfig{
			MinBytes:    int64(getEnvInt("UPLOAD_MIN_BYTES", 1024)),
			MaxBytes:    int64(getEnvInt("UPLOAD_MAX_BYTES", 50*1024*1024)),
			MaxAttempts: getEnvInt("UPLOAD_MAX_ATTEMPTS", 10),
			Window:      getEnvDuration("UPLOAD_WINDOW", 15*time.Minute),
		},
		Reconcile: ReconcileConfig{
			Enabled:   getEnvBool("RECONCILE_ENABLED", true),
			Schedule:  getEnv("RECONCILE_SCHEDULE", "*/10 * * * *"),
			BatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 100),
		},
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
