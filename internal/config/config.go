// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// SessionDomain is the domain statements are built for and checked against.
	SessionDomain string
	// SessionChainID is the EIP-155 chain id placed in statements.
	SessionChainID uint64
	// SessionDefaultLifetime is used when a request does not set a lifetime.
	SessionDefaultLifetime time.Duration
	// SessionMaxLifetime caps the window of any statement.
	SessionMaxLifetime time.Duration
	// SessionRefreshMargin is the minimum remaining lifetime for a session to be reused.
	SessionRefreshMargin time.Duration

	// SigningMaxRetries bounds retries of an unavailable signer.
	SigningMaxRetries int
	// SigningRetryBackoff is the wait before the first retry.
	SigningRetryBackoff time.Duration

	// EnvelopeLifetime bounds how long a signed request envelope is accepted.
	EnvelopeLifetime time.Duration

	// QuotaEnforcementEnabled turns on delegation use and rate quotas.
	QuotaEnforcementEnabled bool
	// TrustedIssuers is a comma-separated list of delegation issuers accepted
	// by the verifier. Empty accepts any issuer with a valid signature.
	TrustedIssuers string

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// KMSKeyURI is the URI of the key that wraps condition data keys.
	KMSKeyURI string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Session authority
		SessionDomain:          env.GetString("SESSION_DOMAIN", "localhost"),
		SessionChainID:         uint64(env.GetInt("SESSION_CHAIN_ID", 1)),
		SessionDefaultLifetime: env.GetDuration("SESSION_DEFAULT_LIFETIME_SECONDS", 86400, time.Second),
		SessionMaxLifetime:     env.GetDuration("SESSION_MAX_LIFETIME_SECONDS", 604800, time.Second),
		SessionRefreshMargin:   env.GetDuration("SESSION_REFRESH_MARGIN_SECONDS", 300, time.Second),

		// Signing
		SigningMaxRetries:   env.GetInt("SIGNING_MAX_RETRIES", 3),
		SigningRetryBackoff: env.GetDuration("SIGNING_RETRY_BACKOFF_MS", 500, time.Millisecond),

		// Envelopes
		EnvelopeLifetime: env.GetDuration("ENVELOPE_LIFETIME_SECONDS", 60, time.Second),

		// Delegation
		QuotaEnforcementEnabled: env.GetBool("QUOTA_ENFORCEMENT_ENABLED", true),
		TrustedIssuers:          env.GetString("DELEGATION_TRUSTED_ISSUERS", ""),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "sessionsig"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// KMS configuration
		KMSKeyURI: env.GetString("KMS_KEY_URI", ""),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// TrustedIssuerList splits TrustedIssuers, dropping empty entries.
func (c *Config) TrustedIssuerList() []string {
	var issuers []string
	for issuer := range strings.SplitSeq(c.TrustedIssuers, ",") {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			issuers = append(issuers, issuer)
		}
	}
	return issuers
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
