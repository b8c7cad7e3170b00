package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"salesdash/internal/core"
	"salesdash/internal/sources"
	"salesdash/internal/targets"
)

// Clock modes
const (
	ClockLive  = "live"
	ClockFixed = "fixed"
)

// User store backends
const (
	UserStoreCSV    = "csv"
	UserStoreSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration
	LogLevel        string

	// Reporting clock
	ClockMode    string
	ClockFixedAt string

	// Sources, as <kind>:<address> locations
	RecentSource     string
	HistoricalSource string
	TargetSource     string

	// Target column roles
	TargetTypeColumn     string
	TargetZoneColumn     string
	TargetFileTypeColumn string

	// Users
	UserStore    string
	UserCSVPath  string
	SQLiteDBPath string

	// AMQP refresh bus, disabled when AMQPURL is empty. AMQPExchange is a
	// fanout; AMQPQueue prefixes each instance's exclusive queue.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cache
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	// Rate limiting of the login and password endpoints
	AuthRatePerMinute int
	AuthBurst         int

	// Google Sheets service account
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

func Load() *Config {
	defaults := targets.DefaultSchema()
	return &Config{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		ClockMode:    getEnv("CLOCK", ClockLive),
		ClockFixedAt: getEnv("CLOCK_FIXED_AT", ""),

		RecentSource:     getEnv("RECENT_SOURCE", "xlsx:data/Current_Base.xlsx"),
		HistoricalSource: getEnv("HISTORICAL_SOURCE", "xlsx:data/Historical_Base.xlsx"),
		TargetSource:     getEnv("TARGET_SOURCE", "xlsx:data/Target.xlsx"),

		TargetTypeColumn:     getEnv("TARGET_TYPE_COLUMN", defaults.TypeColumn),
		TargetZoneColumn:     getEnv("TARGET_ZONE_COLUMN", defaults.ZoneColumn),
		TargetFileTypeColumn: getEnv("TARGET_FILE_TYPE_COLUMN", defaults.FileTypeColumn),

		UserStore:    getEnv("USER_STORE", UserStoreCSV),
		UserCSVPath:  getEnv("USER_CSV_PATH", "data/users.csv"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/salesdash.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "salesdash.refresh"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_refresh"),

		CacheTTL:             getEnvDuration("CACHE_TTL", 15*time.Minute),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),

		AuthRatePerMinute: getEnvInt("AUTH_RATE_PER_MINUTE", 10),
		AuthBurst:         getEnvInt("AUTH_BURST", 5),

		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		add("invalid port '%s': must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		add("invalid port %d: must be between 1 and 65535", port)
	}

	switch c.ClockMode {
	case ClockLive:
	case ClockFixed:
		if _, err := parseFixedAt(c.ClockFixedAt); err != nil {
			add("invalid CLOCK_FIXED_AT '%s': %v", c.ClockFixedAt, err)
		}
	default:
		add("invalid clock '%s': must be one of [%s %s]", c.ClockMode, ClockLive, ClockFixed)
	}

	usesSheets := false
	for _, src := range []struct{ name, value string }{
		{"RECENT_SOURCE", c.RecentSource},
		{"HISTORICAL_SOURCE", c.HistoricalSource},
		{"TARGET_SOURCE", c.TargetSource},
	} {
		loc, err := sources.ParseLocation(src.value)
		if err != nil {
			add("%s: %v", src.name, err)
			continue
		}
		if loc.Kind == sources.KindMemory {
			add("%s: memory sources are not available to the server", src.name)
		}
		usesSheets = usesSheets || loc.Kind == sources.KindSheets
	}

	if strings.TrimSpace(c.TargetTypeColumn) == "" {
		add("TARGET_TYPE_COLUMN cannot be empty")
	}

	switch c.UserStore {
	case UserStoreCSV:
		if c.UserCSVPath == "" {
			add("user CSV path cannot be empty when using csv user store")
		}
	case UserStoreSQLite:
		if c.SQLiteDBPath == "" {
			add("SQLite database path cannot be empty when using sqlite user store")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					add("cannot create SQLite database directory '%s': %v", dir, err)
				}
			}
		}
	default:
		add("invalid user store '%s': must be one of [%s %s]", c.UserStore, UserStoreCSV, UserStoreSQLite)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			add("invalid AMQP URL '%s': %v", c.AMQPURL, err)
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			add("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme)
		}
		if c.AMQPExchange == "" {
			add("AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			add("AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if usesSheets && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			add("Google service account file does not exist: %s", c.GoogleServiceAccountFile)
		}
	}

	if c.CacheTTL < 0 {
		add("invalid cache TTL %v: must not be negative", c.CacheTTL)
	}
	if c.CacheCleanupInterval < time.Second {
		add("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval)
	}
	if c.AuthRatePerMinute < 1 {
		add("invalid auth rate %d: must be at least 1 per minute", c.AuthRatePerMinute)
	}
	if c.AuthBurst < 1 {
		add("invalid auth burst %d: must be at least 1", c.AuthBurst)
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Clock returns the reporting clock selected by CLOCK.
func (c *Config) Clock() (core.Clock, error) {
	if c.ClockMode != ClockFixed {
		return core.LiveClock(), nil
	}
	t, err := parseFixedAt(c.ClockFixedAt)
	if err != nil {
		return nil, fmt.Errorf("CLOCK_FIXED_AT: %w", err)
	}
	return core.FixedClock(t), nil
}

// TargetSchema returns the configured target column roles.
func (c *Config) TargetSchema() targets.Schema {
	return targets.Schema{
		TypeColumn:     c.TargetTypeColumn,
		ZoneColumn:     c.TargetZoneColumn,
		FileTypeColumn: c.TargetFileTypeColumn,
	}
}

// parseFixedAt accepts a date or an RFC 3339 timestamp.
func parseFixedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("required when CLOCK=fixed")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
