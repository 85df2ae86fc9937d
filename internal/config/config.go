// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Columns  ColumnsConfig
	Resolver ResolverConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Clean    CleanConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatasetConfig describes the source file served by the dashboard.
type DatasetConfig struct {
	// Path is the delimited text file to clean
	Path string `env:"DATASET_PATH" default:"Global GDP Explorer 2025 (World Bank  UN Data).csv"`

	// Delimiter is the single field separator character (default: ,)
	Delimiter string `env:"DATASET_DELIMITER" default:","`

	// MaxFileSize is the maximum number of bytes read from a source (default: 32MB)
	MaxFileSize int64 `env:"DATASET_MAX_FILE_SIZE" default:"33554432"`
}

// ColumnsConfig holds the header names of the designated columns.
type ColumnsConfig struct {
	Country      string `env:"COLUMN_COUNTRY" default:"Country"`
	GDPNominal   string `env:"COLUMN_GDP_NOMINAL" default:"GDP (nominal, 2023)"`
	GDPAbbrev    string `env:"COLUMN_GDP_ABBREV" default:"GDP (abbrev.)"`
	GDPGrowth    string `env:"COLUMN_GDP_GROWTH" default:"GDP Growth"`
	Population   string `env:"COLUMN_POPULATION" default:"Population 2023"`
	GDPPerCapita string `env:"COLUMN_GDP_PER_CAPITA" default:"GDP per capita"`
	Share        string `env:"COLUMN_SHARE" default:"Share of World GDP"`
}

// ResolverConfig holds country name resolution settings.
type ResolverConfig struct {
	// FuzzyThreshold is the minimum similarity for a fuzzy match (default: 0.8)
	FuzzyThreshold float64 `env:"RESOLVER_FUZZY_THRESHOLD" default:"0.8"`

	// Reference selects the reference table: embedded, csv, postgres or sqlite (default: embedded)
	Reference string `env:"REFERENCE_SOURCE" default:"embedded"`

	// ReferencePath is the CSV file or SQLite database for the csv and sqlite sources
	ReferencePath string `env:"REFERENCE_PATH"`

	// ReferenceTable is the table queried by the postgres and sqlite sources (default: countries)
	ReferenceTable string `env:"REFERENCE_TABLE" default:"countries"`
}

// DatabaseConfig holds database connection settings.
// The database is only used when REFERENCE_SOURCE is postgres.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// ConnectTimeout bounds loading the reference table at startup (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// CacheConfig holds dataset memoization settings.
type CacheConfig struct {
	// Size is the maximum number of cleaned datasets kept (default: 16)
	Size int `env:"CACHE_SIZE" default:"16"`

	// TTL expires cached datasets; 0 keeps them until evicted (default: 0s)
	TTL time.Duration `env:"CACHE_TTL" default:"0s"`

	// JanitorInterval is how often expired datasets are purged (default: 5m)
	JanitorInterval time.Duration `env:"CACHE_JANITOR_INTERVAL" default:"5m"`
}

// CleanConfig holds settings for cleaning uploaded files.
type CleanConfig struct {
	// MaxConcurrent is the maximum number of parallel cleans (default: 4)
	MaxConcurrent int `env:"CLEAN_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a cleaning slot (default: 10s)
	MaxWaitTime time.Duration `env:"CLEAN_MAX_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CleanLimit is requests per minute for the clean endpoint (default: 10)
	CleanLimit int `env:"RATE_LIMIT_CLEAN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the clean endpoint with an API key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
