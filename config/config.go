// Package config reads server and tool settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv   string
	Port     string
	LogLevel slog.Level

	StoreDriver      string
	TableName        string
	AWSRegion        string
	DynamoDBEndpoint string
	DatabaseURL      string
	SQLitePath       string
	StoreTimeout     time.Duration

	AdminKey       string
	AllowedOrigins []string

	DedupWindow    time.Duration
	PublicCacheTTL time.Duration

	RedisURL      string
	ValkeyURL     string
	RedisAddr     string
	RedisUsername string
	RedisPassword string

	SentryDSN       string
	ArchiveSchedule string

	VoteRateLimit float64
	VoteRateBurst int
}

func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// RedisConfigured reports whether any cache endpoint was given.
func (c Config) RedisConfigured() bool {
	return c.RedisURL != "" || c.ValkeyURL != "" || c.RedisAddr != ""
}

// LoadDotenv reads .env outside production. A missing file is fine.
func LoadDotenv() {
	if !strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		_ = godotenv.Load()
	}
}

// Load builds a Config from the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which reports the value of a
// variable and whether it was set.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}
	cfg := Config{
		AppEnv:           r.str("APP_ENV", "development"),
		Port:             r.first([]string{"PORT", "API_PORT"}, "8888"),
		StoreDriver:      strings.ToLower(r.str("STORE_DRIVER", DriverMemory)),
		TableName:        r.str("TABLE_NAME", "scrumble-data"),
		AWSRegion:        r.str("AWS_REGION", "us-east-2"),
		DynamoDBEndpoint: r.str("DYNAMODB_ENDPOINT", ""),
		SQLitePath:       r.str("SQLITE_PATH", "scrumble.db"),
		StoreTimeout:     r.duration("STORE_TIMEOUT", 5*time.Second),
		AdminKey:         r.str("ADMIN_KEY", ""),
		AllowedOrigins:   splitCSV(r.str("ALLOWED_ORIGINS", "*")),
		DedupWindow:      r.duration("VOTE_DEDUP_WINDOW", 24*time.Hour),
		PublicCacheTTL:   r.duration("PUBLIC_CACHE_TTL", 30*time.Second),
		RedisURL:         r.str("REDIS_URL", ""),
		ValkeyURL:        r.str("VALKEY_URL", ""),
		RedisAddr:        r.str("REDIS_ADDR", ""),
		RedisUsername:    r.str("REDIS_USERNAME", ""),
		RedisPassword:    r.str("REDIS_PASSWORD", ""),
		SentryDSN:        r.str("SENTRY_DSN", ""),
		ArchiveSchedule:  r.str("ARCHIVE_SCHEDULE", ""),
		VoteRateLimit:    r.number("VOTE_RATE_LIMIT", 5),
		VoteRateBurst:    r.integer("VOTE_RATE_BURST", 20),
	}
	cfg.LogLevel = r.level("LOG_LEVEL", slog.LevelInfo)
	cfg.DatabaseURL = databaseURL(r, cfg.Production())

	if r.err != nil {
		return Config{}, r.err
	}
	switch cfg.StoreDriver {
	case DriverMemory, DriverDynamoDB, DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver)
	}
	if cfg.StoreDriver == DriverPostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("STORE_DRIVER=postgres needs DATABASE_URL or DB_HOST")
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL, forcing sslmode=require in production,
// and otherwise assembles a DSN from the DB_* pieces.
func databaseURL(r reader, production bool) string {
	if dsn := r.str("DATABASE_URL", ""); dsn != "" {
		if production && !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		return dsn
	}
	host := r.str("DB_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, r.str("DB_USER", ""), r.str("DB_PASSWORD", ""), r.str("DB_NAME", ""), r.str("DB_PORT", "5432"),
	)
}

type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) first(keys []string, def string) string {
	for _, key := range keys {
		if v := r.str(key, ""); v != "" {
			return v
		}
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) number(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return f
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.fail(key, err)
		return def
	}
	return lvl
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
