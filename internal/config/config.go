// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DemoIntegrityKey is the development default for INTEGRITY_SECRET_KEY. Load rejects it when APP_ENV=production.
const DemoIntegrityKey = "my-secret-key"

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Access policy engines accepted by ACCESS_POLICY_ENGINE.
const (
	PolicyEngineRule = "rule"
	PolicyEngineRego = "rego"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// TrustProxyHeaders makes the client IP come from X-Forwarded-For / X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `mapstructure:"TRUST_PROXY_HEADERS"`

	// StoreBackend selects the key-value backend for identities, sessions, counters and records.
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	// DatabaseURL is the Postgres DSN; required when StoreBackend is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is host:port of the Redis server; required when StoreBackend is redis.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LoginMaxAttempts is the number of failed logins per source allowed inside one window.
	LoginMaxAttempts int `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	// LoginAttemptWindow is the attempt counter window (e.g. "15m").
	LoginAttemptWindow string `mapstructure:"LOGIN_ATTEMPT_WINDOW"`

	// IntegritySecretKey is the HMAC key used to sign and verify balance updates.
	IntegritySecretKey string `mapstructure:"INTEGRITY_SECRET_KEY"`

	// EgressAllowedDomains is a comma-separated allow-list for outbound fetches.
	EgressAllowedDomains string `mapstructure:"EGRESS_ALLOWED_DOMAINS"`
	// EgressFetchTimeout bounds one outbound fetch (e.g. "5s").
	EgressFetchTimeout string `mapstructure:"EGRESS_FETCH_TIMEOUT"`
	// EgressMaxBodyBytes caps how much of a fetched body is read.
	EgressMaxBodyBytes int64 `mapstructure:"EGRESS_MAX_BODY_BYTES"`

	// ConfirmationMarker is the literal a caller must supply to confirm a destructive action.
	ConfirmationMarker string `mapstructure:"CONFIRMATION_MARKER"`
	// AccessPolicyEngine selects the AccessGuard implementation: "rule" or "rego".
	AccessPolicyEngine string `mapstructure:"ACCESS_POLICY_ENGINE"`

	// SessionPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Empty means an ephemeral key per process.
	SessionPrivateKey string `mapstructure:"SESSION_PRIVATE_KEY"`
	// SessionPublicKey is the PEM-encoded public key or path to file; used with SESSION_PRIVATE_KEY.
	SessionPublicKey string `mapstructure:"SESSION_PUBLIC_KEY"`
	// SessionIssuer is the iss claim of session tokens.
	SessionIssuer string `mapstructure:"SESSION_ISSUER"`
	// SessionAudience is the aud claim of session tokens.
	SessionAudience string `mapstructure:"SESSION_AUDIENCE"`
	// SessionTTL is the session lifetime (e.g. "1h").
	SessionTTL string `mapstructure:"SESSION_TTL"`

	// OTLPEndpoint is the OTLP gRPC collector; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is text or json.
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_ATTEMPT_WINDOW", "15m")
	v.SetDefault("INTEGRITY_SECRET_KEY", DemoIntegrityKey)
	v.SetDefault("EGRESS_ALLOWED_DOMAINS", "example.com,api.example.com")
	v.SetDefault("EGRESS_FETCH_TIMEOUT", "5s")
	v.SetDefault("EGRESS_MAX_BODY_BYTES", 64*1024)
	v.SetDefault("CONFIRMATION_MARKER", "yes")
	v.SetDefault("ACCESS_POLICY_ENGINE", PolicyEngineRule)
	v.SetDefault("SESSION_PRIVATE_KEY", "")
	v.SetDefault("SESSION_PUBLIC_KEY", "")
	v.SetDefault("SESSION_ISSUER", "owasp-demo")
	v.SetDefault("SESSION_AUDIENCE", "owasp-demo-api")
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. Load calls it; tests that build a Config by hand may too.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when STORE_BACKEND=redis")
		}
	default:
		return errors.New("config: STORE_BACKEND must be memory, postgres or redis")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.New("config: LOGIN_MAX_ATTEMPTS must be positive")
	}

	if strings.TrimSpace(c.IntegritySecretKey) == "" {
		return errors.New("config: INTEGRITY_SECRET_KEY must be set")
	}
	if c.Env == "production" && c.IntegritySecretKey == DemoIntegrityKey {
		return errors.New("config: INTEGRITY_SECRET_KEY must not be the demo default when APP_ENV=production")
	}

	if strings.TrimSpace(c.ConfirmationMarker) == "" {
		return errors.New("config: CONFIRMATION_MARKER must be set")
	}

	switch c.AccessPolicyEngine {
	case "":
		c.AccessPolicyEngine = PolicyEngineRule
	case PolicyEngineRule, PolicyEngineRego:
	default:
		return errors.New("config: ACCESS_POLICY_ENGINE must be rule or rego")
	}

	if (c.SessionPrivateKey == "") != (c.SessionPublicKey == "") {
		return errors.New("config: SESSION_PRIVATE_KEY and SESSION_PUBLIC_KEY must be set together")
	}
	return nil
}

// AttemptWindow parses LoginAttemptWindow. Returns 15m if unset or invalid.
func (c *Config) AttemptWindow() time.Duration {
	return parseDuration(c.LoginAttemptWindow, 15*time.Minute)
}

// FetchTimeout parses EgressFetchTimeout. Returns 5s if unset or invalid.
func (c *Config) FetchTimeout() time.Duration {
	return parseDuration(c.EgressFetchTimeout, 5*time.Second)
}

// SessionLifetime parses SessionTTL. Returns 1h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	return parseDuration(c.SessionTTL, time.Hour)
}

// AllowedDomains returns the egress allow-list from the comma-separated config, lower-cased.
func (c *Config) AllowedDomains() []string {
	if c == nil {
		return nil
	}
	return splitList(c.EgressAllowedDomains)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
