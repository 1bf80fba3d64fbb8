// Package config provides centralized configuration management for the lab
// report service. Settings come from environment variables with defaults and
// are validated on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Session  SessionConfig
	Columns  ColumnConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the Postgres connection used for the state store.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DATABASE_URL and DB_URL are both accepted.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"5"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds lab export upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted export size in bytes (default: 20MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the number of ingestions allowed to run at once (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an ingestion waits for a free slot (default: 10s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`
}

// SessionConfig controls persistence of the analyst session.
type SessionConfig struct {
	// StateKey is the fixed name the session blob is stored under.
	StateKey string `env:"SESSION_STATE_KEY" default:"laborauswertung"`

	// AutosaveInterval is the period of the background save (default: 60s)
	AutosaveInterval time.Duration `env:"SESSION_AUTOSAVE_INTERVAL" default:"60s"`

	// SaveTimeout bounds a single save or restore round-trip (default: 10s)
	SaveTimeout time.Duration `env:"SESSION_SAVE_TIMEOUT" default:"10s"`

	// DiagnosticsCacheTTL is how long a computed ion-balance table is kept.
	DiagnosticsCacheTTL time.Duration `env:"SESSION_DIAGNOSTICS_CACHE_TTL" default:"15m"`
}

// ColumnConfig names the fixed semantic columns of the lab export.
type ColumnConfig struct {
	IonQuotient      string `env:"COLUMN_ION_QUOTIENT" default:"Ionenbilanz Quotient"`
	ELFQuotient      string `env:"COLUMN_ELF_QUOTIENT" default:"ELF Quotient"`
	TheoreticalLF    string `env:"COLUMN_THEORETICAL_LF" default:"LF theoretisch"`
	Corg             string `env:"COLUMN_CORG" default:"Corg berechnet"`
	LFPrimary        string `env:"COLUMN_LF_PRIMARY" default:"LFLFLFM3.1"`
	LFFallback       string `env:"COLUMN_LF_FALLBACK" default:"LFLFLFM1.3"`
	AlkalinityPrefix string `env:"COLUMN_ALKALINITY_PREFIX" default:"alkalinität-gran"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects API requests without a valid X-API-Key header.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
