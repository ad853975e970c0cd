package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Trade store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL          string
	ServerAddr           string
	MigrationsDir        string
	LogLevel             string
	SessionTTL           time.Duration
	SessionCookieName    string
	SessionCookieSecure  bool
	SessionSweepInterval time.Duration
	AuthIssuerKey        string
	NATSURL              string
	NATSSubjectPrefix    string
	AutoLockOnAccept     bool
	TradeStore           string
	CatalogSeedFile      string
}

// Load reads configuration from environment. Values in a .env file in the
// working directory are loaded first and never override the real environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "barterhub")
		pass := getenv("POSTGRES_PASSWORD", "barterhub_pass")
		db := getenv("POSTGRES_DB", "barterhub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	store := strings.ToLower(getenv("TRADE_STORE", StorePostgres))
	if store != StorePostgres && store != StoreMemory {
		return nil, fmt.Errorf("TRADE_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, store)
	}

	return &Config{
		DatabaseURL:          dsn,
		ServerAddr:           getenv("SERVER_ADDR", "0.0.0.0:8080"),
		MigrationsDir:        getenv("MIGRATIONS_DIR", "internal/migrations"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		SessionTTL:           parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		SessionCookieName:    getenv("SESSION_COOKIE_NAME", "barterhub_session"),
		SessionCookieSecure:  parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false),
		SessionSweepInterval: parseDuration(getenv("SESSION_SWEEP_INTERVAL", "10m"), 10*time.Minute),
		AuthIssuerKey:        os.Getenv("AUTH_ISSUER_KEY"),
		NATSURL:              os.Getenv("NATS_URL"),
		NATSSubjectPrefix:    getenv("NATS_SUBJECT_PREFIX", "barterhub"),
		AutoLockOnAccept:     parseBool(getenv("TRADE_AUTO_LOCK_ON_ACCEPT", "true"), true),
		TradeStore:           store,
		CatalogSeedFile:      os.Getenv("CATALOG_SEED_FILE"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
