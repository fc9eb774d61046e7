package config

import (
	"log/slog"
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

	DatabaseURL   string // marketplace Postgres holding the source tables
	ChangeChannel string // LISTEN channel fed by the pg_notify triggers

	JWTPrivateKeyPath string // only needed to mint tokens (tests, local tooling)
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SNSRegion         string
	AlertPhoneNumbers []string // empty disables SMS alerts
	AlertMinPriority  string

	ReadStateDir string // per-viewer read-state files
	PolicyFile   string // optional YAML overrides for category policies

	Feed           FeedConfig
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications string
}

// FeedConfig holds the aggregation and windowing knobs.
type FeedConfig struct {
	InitialWindow   int           `env:"FEED_INITIAL_WINDOW" validate:"min=1"`
	WindowIncrement int           `env:"FEED_WINDOW_INCREMENT" validate:"min=1"`
	SourceLimit     int           `env:"FEED_SOURCE_LIMIT" validate:"min=1,max=1000"`
	LoadMoreDelay   time.Duration `env:"FEED_LOAD_MORE_DELAY" validate:"min=0"`
	FetchTimeout    time.Duration `env:"FEED_FETCH_TIMEOUT" validate:"min=0"`
	RefreshDebounce time.Duration `env:"FEED_REFRESH_DEBOUNCE" validate:"gt=0"`
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Notifications: getEnv("DYNAMO_TABLE_ADMIN_NOTIFICATIONS", "admin_notifications"),
		},
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ChangeChannel:     getEnv("CHANGE_CHANNEL", "activity_changes"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		AlertPhoneNumbers: splitList(getEnv("ALERT_PHONE_NUMBERS", "")),
		AlertMinPriority:  getEnv("ALERT_MIN_PRIORITY", "urgent"),
		ReadStateDir:      getEnv("READ_STATE_DIR", "./data/read-state"),
		PolicyFile:        getEnv("ACTIVITY_POLICY_FILE", ""),
		Feed: FeedConfig{
			InitialWindow:   getEnvInt("FEED_INITIAL_WINDOW", 20),
			WindowIncrement: getEnvInt("FEED_WINDOW_INCREMENT", 20),
			SourceLimit:     getEnvInt("FEED_SOURCE_LIMIT", 100),
			LoadMoreDelay:   getEnvDuration("FEED_LOAD_MORE_DELAY", 300*time.Millisecond),
			FetchTimeout:    getEnvDuration("FEED_FETCH_TIMEOUT", 10*time.Second),
			RefreshDebounce: getEnvDuration("FEED_REFRESH_DEBOUNCE", 500*time.Millisecond),
		},
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
		slog.Warn("invalid integer env value, using fallback", "key", key, "value", v, "fallback", fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("invalid duration env value, using fallback", "key", key, "value", v, "fallback", fallback.String())
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
