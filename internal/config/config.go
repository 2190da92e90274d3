package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret"

// Ledger backends.
const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendRedis    = "redis"
	LedgerBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Ledger       LedgerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	ClientURL             string
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
	// Format is "json" or "console".
	Format string
}

// AuthConfig defines credential and session parameters.
type AuthConfig struct {
	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	VerifyTokenTTL    time.Duration
	ResetTokenTTL     time.Duration
	BcryptCost        int
	RefreshCookieName string
	CookieSecure      bool
}

// LedgerConfig selects where token records live.
type LedgerConfig struct {
	Backend       string
	RedisPrefix   string
	SweepInterval time.Duration
}

// NotificationConfig holds outbound e-mail settings.
type NotificationConfig struct {
	EmailFrom  string
	SenderName string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	accessTTL, err := getEnvAsDuration("AUTH_ACCESS_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getEnvAsDuration("AUTH_REFRESH_TOKEN_TTL", 15*24*time.Hour)
	if err != nil {
		return nil, err
	}
	verifyTTL, err := getEnvAsDuration("AUTH_VERIFY_TOKEN_TTL", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	resetTTL, err := getEnvAsDuration("AUTH_RESET_TOKEN_TTL", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := getEnvAsDuration("LEDGER_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	dsn := os.Getenv("POSTGRES_DSN")
	defaultBackend := LedgerBackendMemory
	if dsn != "" {
		defaultBackend = LedgerBackendPostgres
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "healthhub-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			ClientURL:             strings.TrimRight(getEnv("APP_CLIENT_URL", "http://localhost:5173"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
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
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTL:    accessTTL,
			RefreshTokenTTL:   refreshTTL,
			VerifyTokenTTL:    verifyTTL,
			ResetTokenTTL:     resetTTL,
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 10),
			RefreshCookieName: getEnv("AUTH_REFRESH_COOKIE_NAME", "refreshToken"),
			CookieSecure:      getEnvAsBool("AUTH_COOKIE_SECURE", true),
		},
		Ledger: LedgerConfig{
			Backend:       strings.ToLower(getEnv("LEDGER_BACKEND", defaultBackend)),
			RedisPrefix:   getEnv("LEDGER_REDIS_PREFIX", "hh"),
			SweepInterval: sweepInterval,
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@healthhub.local"),
			SenderName: getEnv("NOTIFY_SENDER_NAME", "HealthHub Communications"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	if c.App.Env == "production" && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret) {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	switch c.Ledger.Backend {
	case LedgerBackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("LEDGER_BACKEND=postgres requires POSTGRES_DSN")
		}
	case LedgerBackendRedis, LedgerBackendMemory:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 || c.Auth.VerifyTokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
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

// ParseDuration extends time.ParseDuration with day (d) and week (w) units,
// e.g. "15d" or "2w".
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n := len(raw); n > 1 {
		unit := map[byte]time.Duration{'d': 24 * time.Hour, 'w': 7 * 24 * time.Hour}[raw[n-1]]
		if unit > 0 {
			value, err := strconv.Atoi(raw[:n-1])
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q", raw)
			}
			return time.Duration(value) * unit, nil
		}
	}
	return time.ParseDuration(raw)
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

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
