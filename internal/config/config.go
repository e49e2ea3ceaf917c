package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/campuscare/triage-service/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Triage       TriageConfig
	Notification NotificationConfig
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
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters for the identity provider.
type AuthConfig struct {
	JWTSecret string
}

// StorageConfig describes the ordered attachment tiers.
type StorageConfig struct {
	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioUseSSL       bool
	PublicBucket      string
	RestrictedBucket  string
	LocalDir          string
	MaxUploadBytes    int64
	AllowedMimePrefix []string
}

// TriageConfig carries routing and crisis-detection policy knobs.
type TriageConfig struct {
	CrisisKeywords      []string
	CrisisCategorySlug  string
	DefaultAssigneeRole domain.Role
	CategoryCacheTTLSec int
}

// NotificationConfig locates the external dispatcher's intake queue.
type NotificationConfig struct {
	IntentQueueKey string
}

// Default crisis phrases; operators override via TRIAGE_CRISIS_KEYWORDS.
var defaultCrisisKeywords = []string{
	"suicide",
	"kill myself",
	"end my life",
	"want to die",
	"self harm",
	"hurt myself",
	"no reason to live",
	"end it all",
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Storage: StorageConfig{
			MinioEndpoint:     getEnv("STORAGE_MINIO_ENDPOINT", "127.0.0.1:9000"),
			MinioAccessKey:    os.Getenv("STORAGE_MINIO_ACCESS_KEY"),
			MinioSecretKey:    os.Getenv("STORAGE_MINIO_SECRET_KEY"),
			MinioUseSSL:       getEnvAsBool("STORAGE_MINIO_USE_SSL", false),
			PublicBucket:      getEnv("STORAGE_PUBLIC_BUCKET", "helpdesk-public"),
			RestrictedBucket:  getEnv("STORAGE_RESTRICTED_BUCKET", "helpdesk-restricted"),
			LocalDir:          getEnv("STORAGE_LOCAL_DIR", "/var/lib/helpdesk/attachments"),
			MaxUploadBytes:    int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),
			AllowedMimePrefix: getEnvAsList("STORAGE_ALLOWED_MIME_PREFIXES", []string{"image/", "application/pdf", "text/"}),
		},
		Triage: TriageConfig{
			CrisisKeywords:      getEnvAsList("TRIAGE_CRISIS_KEYWORDS", defaultCrisisKeywords),
			CrisisCategorySlug:  getEnv("TRIAGE_CRISIS_CATEGORY_SLUG", "crisis"),
			DefaultAssigneeRole: domain.Role(getEnv("TRIAGE_DEFAULT_ASSIGNEE_ROLE", string(domain.RoleCounselor))),
			CategoryCacheTTLSec: getEnvAsInt("TRIAGE_CATEGORY_CACHE_TTL_SECONDS", 60),
		},
		Notification: NotificationConfig{
			IntentQueueKey: getEnv("NOTIFY_INTENT_QUEUE_KEY", "helpdesk:notification-intents"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CategoryCacheTTL returns the catalog cache lifetime.
func (t TriageConfig) CategoryCacheTTL() time.Duration {
	if t.CategoryCacheTTLSec <= 0 {
		return 0
	}
	return time.Duration(t.CategoryCacheTTLSec) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
