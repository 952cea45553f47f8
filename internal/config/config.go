package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Database Configuration
	Database DatabaseConfig

	// Session Configuration
	Session SessionConfig

	// Redis Configuration
	Redis RedisConfig

	// Background work configuration
	Worker WorkerConfig

	// Logging Configuration
	Logging LoggingConfig
}

// HTTPConfig holds listener and CORS configuration
type HTTPConfig struct {
	Port               string
	CORSOrigins        []string // empty reflects the request origin
	TrustedProxies     []string // IPs or CIDRs allowed to set X-Forwarded-For, empty trusts none
	LoginRatePerSecond int
	LoginBurst         int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string
	SeedFile string // optional YAML catalog seed
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieSecure bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// WorkerConfig holds background task configuration
type WorkerConfig struct {
	CartPruneSchedule string        // cron expression
	PendingOrderTTL   time.Duration // delay before an unpaid order expires
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function. Secrets have no
// defaults and are reported as errors when missing.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	secret := getenv("SESSION_SECRET")
	if secret == "" {
		return nil, ErrMissingSessionSecret
	}

	sessionTTL, err := durationOr(getenv("SESSION_TTL"), 60*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	pendingOrderTTL, err := durationOr(getenv("PENDING_ORDER_TTL"), 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid PENDING_ORDER_TTL: %w", err)
	}

	loginRate, err := intOr(getenv("LOGIN_RATE_PER_SECOND"), 5)
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_PER_SECOND: %w", err)
	}

	loginBurst, err := intOr(getenv("LOGIN_BURST"), 10)
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_BURST: %w", err)
	}

	trustedProxies := splitList(getenv("TRUSTED_PROXIES"))
	for _, proxy := range trustedProxies {
		if !validProxy(proxy) {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
		}
	}

	cookieSecure, err := boolOr(getenv("COOKIE_SECURE"), false)
	if err != nil {
		return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}

	return &Config{
		HTTP: HTTPConfig{
			Port:               stringOr(getenv("PORT"), "5000"),
			CORSOrigins:        splitList(getenv("CORS_ORIGINS")),
			TrustedProxies:     trustedProxies,
			LoginRatePerSecond: loginRate,
			LoginBurst:         loginBurst,
		},
		Database: DatabaseConfig{
			URL:      dbURL,
			SeedFile: getenv("SEED_FILE"),
		},
		Session: SessionConfig{
			Secret:       secret,
			TTL:          sessionTTL,
			CookieSecure: cookieSecure,
		},
		Redis: RedisConfig{
			Address: stringOr(getenv("REDIS_ADDRESS"), "localhost:6379"),
		},
		Worker: WorkerConfig{
			CartPruneSchedule: stringOr(getenv("CART_PRUNE_SCHEDULE"), "0 3 * * *"),
			PendingOrderTTL:   pendingOrderTTL,
		},
		Logging: LoggingConfig{
			Level:  stringOr(getenv("LOG_LEVEL"), "info"),
			Format: stringOr(getenv("LOG_FORMAT"), "json"),
		},
	}, nil
}

func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func intOr(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func boolOr(value string, fallback bool) (bool, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func validProxy(value string) bool {
	if strings.Contains(value, "/") {
		_, _, err := net.ParseCIDR(value)
		return err == nil
	}
	return net.ParseIP(value) != nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
