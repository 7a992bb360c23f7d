package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Persistence  PersistenceConfig
	Reports      ReportsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsChannel string
	StatsTTL      time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SessionCookie         string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom       string
	ComplianceInbox string
	WebhookURL      string
}

// PersistenceConfig bounds how long and how often store calls are attempted.
type PersistenceConfig struct {
	AttemptTimeout time.Duration
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
}

// ReportsConfig tunes report intake and listing.
type ReportsConfig struct {
	DefaultPageSize      int
	MaxPageSize          int
	SummaryPreviewLength int
	MaxDetailsLength     int
	MaxSummaryLength     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "compliance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "compliance:events"),
			StatsTTL:      getEnvAsDuration("REDIS_STATS_TTL", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SessionCookie:         getEnv("AUTH_SESSION_COOKIE", "portal_session"),
		},
		Notification: NotificationConfig{
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			ComplianceInbox: getEnv("NOTIFY_COMPLIANCE_INBOX", ""),
			WebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Persistence: PersistenceConfig{
			AttemptTimeout: getEnvAsDuration("PERSISTENCE_ATTEMPT_TIMEOUT", 3*time.Second),
			MaxAttempts:    getEnvAsInt("PERSISTENCE_MAX_ATTEMPTS", 3),
			BaseBackoff:    getEnvAsDuration("PERSISTENCE_BASE_BACKOFF", 100*time.Millisecond),
			MaxBackoff:     getEnvAsDuration("PERSISTENCE_MAX_BACKOFF", 2*time.Second),
		},
		Reports: DefaultReportsConfig(),
	}
	cfg.Reports.DefaultPageSize = getEnvAsInt("REPORTS_DEFAULT_PAGE_SIZE", cfg.Reports.DefaultPageSize)
	cfg.Reports.MaxPageSize = getEnvAsInt("REPORTS_MAX_PAGE_SIZE", cfg.Reports.MaxPageSize)
	cfg.Reports.SummaryPreviewLength = getEnvAsInt("REPORTS_SUMMARY_PREVIEW_LENGTH", cfg.Reports.SummaryPreviewLength)

	return cfg, nil
}

// DefaultReportsConfig returns the report settings used when nothing is configured.
func DefaultReportsConfig() ReportsConfig {
	return ReportsConfig{
		DefaultPageSize:      20,
		MaxPageSize:          100,
		SummaryPreviewLength: 120,
		MaxDetailsLength:     20000,
		MaxSummaryLength:     280,
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether APP_ENV names a production deployment.
func (a AppConfig) IsProduction() bool {
	switch strings.ToLower(a.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
