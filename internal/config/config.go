package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenDur   time.Duration

	// Device (paired box) HTTP client.
	DeviceHealthTimeout time.Duration
	DeviceSyncTimeout   time.Duration

	// Alert engine.
	DoseTickInterval      time.Duration
	LowStockTickInterval  time.Duration
	LowStockThresholdDays float64
	AlertRetention        time.Duration
	LowStockDedup         string // "unread-only" | "any-existing"

	// Outbound alert delivery (both optional).
	SNSRegion    string
	SNSTopicARN  string
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	AlertEmailTo string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Boxes    string
	Alerts   string
	Users    string
	Sessions string
	Meta     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Boxes:    getEnv("DYNAMO_TABLE_BOXES", "medicine_boxes"),
			Alerts:   getEnv("DYNAMO_TABLE_ALERTS", "alerts"),
			Users:    getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions: getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Meta:     getEnv("DYNAMO_TABLE_META", "app_meta"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenDur:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		DeviceHealthTimeout: getEnvDuration("DEVICE_HEALTH_TIMEOUT", 5*time.Second),
		DeviceSyncTimeout:   getEnvDuration("DEVICE_SYNC_TIMEOUT", 10*time.Second),

		DoseTickInterval:      getEnvDuration("DOSE_TICK_INTERVAL", time.Minute),
		LowStockTickInterval:  getEnvDuration("LOW_STOCK_TICK_INTERVAL", 30*time.Second),
		LowStockThresholdDays: getEnvFloat("LOW_STOCK_THRESHOLD_DAYS", 3),
		AlertRetention:        getEnvDuration("ALERT_RETENTION", 24*time.Hour),
		LowStockDedup:         getEnv("LOW_STOCK_DEDUP", "unread-only"),

		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:  getEnv("SNS_TOPIC_ARN", ""),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		AlertEmailTo: getEnv("ALERT_EMAIL_TO", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
