package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/pkg/jwtx"
	"github.com/aussiebroadwan/medrec/pkg/ratelimit"
)

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendValkey = "valkey"
)

type Config struct {
	SecretKey      string        // Required: HMAC secret for access tokens, at least 32 bytes
	Algorithm      string        // Optional: HS256, HS384 or HS512 (default: HS256)
	Issuer         string        // Optional: issuer claim (default: medrec)
	AccessTokenTTL time.Duration // Optional: ACCESS_TOKEN_EXPIRE_MINUTES (default: 30m)

	DatabaseFile string // Optional: path to SQLite database file (default: ./medrec.db)
	PepperFile   string // Optional: path to the password pepper file (default: ./pepper)
	TrustProxy   bool   // Optional: honour X-Forwarded-For / X-Real-IP (default: false)

	RateLimitBackend string // Optional: memory or valkey (default: memory)
	ValkeyAddr       string // Required for the valkey backend
	ValkeyPassword   string
	ValkeyDB         int
	UploadTier       ratelimit.Tier
	AuthTier         ratelimit.Tier
	GeneralTier      ratelimit.Tier

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Rate bucket sweep interval (default: 5m)
}

func LoadConfig() Config {
	return Config{
		SecretKey:      os.Getenv("SECRET_KEY"),
		Algorithm:      getEnvOrDefault("JWT_ALGORITHM", "HS256"),
		Issuer:         getEnvOrDefault("MEDREC_ISSUER", "medrec"),
		AccessTokenTTL: time.Duration(getEnvIntOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,

		DatabaseFile: getEnvOrDefault("MEDREC_DATABASE_FILE", "medrec.db"),
		PepperFile:   getEnvOrDefault("MEDREC_PEPPER_FILE", "pepper"),
		TrustProxy:   getEnvBoolOrDefault("TRUST_PROXY", false),

		RateLimitBackend: getEnvOrDefault("RATELIMIT_BACKEND", BackendMemory),
		ValkeyAddr:       os.Getenv("VALKEY_ADDR"),
		ValkeyPassword:   os.Getenv("VALKEY_PASSWORD"),
		ValkeyDB:         getEnvIntOrDefault("VALKEY_DB", 0),
		UploadTier:       ratelimit.ParseTierFromEnv("UPLOAD", ratelimit.UploadTier),
		AuthTier:         ratelimit.ParseTierFromEnv("AUTH", ratelimit.AuthTier),
		GeneralTier:      ratelimit.ParseTierFromEnv("GENERAL", ratelimit.GeneralTier),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}
}

// Validate reports every problem at once. All of them wrap
// service.ErrConfiguration.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.SecretKey == "":
		errs = append(errs, errors.New("SECRET_KEY is required"))
	case len(c.SecretKey) < jwtx.MinSecretLength:
		errs = append(errs, fmt.Errorf("SECRET_KEY must be at least %d bytes", jwtx.MinSecretLength))
	}

	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}

	switch c.RateLimitBackend {
	case BackendMemory:
	case BackendValkey:
		if c.ValkeyAddr == "" {
			errs = append(errs, errors.New("VALKEY_ADDR is required for the valkey rate limit backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RATELIMIT_BACKEND %q", c.RateLimitBackend))
	}

	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rate limit tiers: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", service.ErrConfiguration, err)
	}
	return nil
}

// Policy builds the rate limit policy from the configured tiers.
func (c Config) Policy() ratelimit.Policy {
	return ratelimit.DefaultPolicy(c.UploadTier, c.AuthTier, c.GeneralTier)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
