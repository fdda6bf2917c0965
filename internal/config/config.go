// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"path/filepath"
	"strconv"
	"time"
)

// Sink drivers understood by SinkConfig.Driver.
const (
	SinkNone     = "none"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Pipeline PipelineConfig
	Sink     SinkConfig
	Database DatabaseConfig
	Server   ServerConfig
	Upload   UploadConfig
	Security SecurityConfig
	Watch    WatchConfig
	Logging  LoggingConfig
}

// PipelineConfig holds the reconciliation pipeline settings.
type PipelineConfig struct {
	// DataDir is the working directory holding sources and outputs (default: ./db)
	DataDir string `env:"DATA_DIR" default:"./db"`

	// ReferenceFile is the field-list CSV inside DataDir (default: fields.csv)
	ReferenceFile string `env:"REFERENCE_FILE" default:"fields.csv"`

	// MergedFile is the concatenated, pre-validation dataset (default: input.csv)
	MergedFile string `env:"MERGED_FILE" default:"input.csv"`

	// ResultFile is the final valid dataset (default: result.csv)
	ResultFile string `env:"RESULT_FILE" default:"result.csv"`

	// DeletedFile is the invalid + demoted dataset (default: deleted.csv)
	DeletedFile string `env:"DELETED_FILE" default:"deleted.csv"`

	// ReportFile is the YAML run report (default: report.yaml)
	ReportFile string `env:"REPORT_FILE" default:"report.yaml"`

	// RowCap is the maximum number of data rows read per source (default: 1000)
	RowCap int `env:"PIPELINE_ROW_CAP" default:"1000"`

	// Dedupe enables duplicate resolution on every run (default: true)
	Dedupe bool `env:"PIPELINE_DEDUPE" default:"true"`

	// AnnotateReasons appends a reasons column to the deleted output (default: false)
	AnnotateReasons bool `env:"PIPELINE_ANNOTATE_REASONS" default:"false"`

	// MaxWaitTime is how long a run waits for a running pipeline to finish (default: 30s)
	MaxWaitTime time.Duration `env:"PIPELINE_MAX_WAIT_TIME" default:"30s"`

	// ScheduleInterval runs the pipeline periodically when serving (default: 0, disabled)
	ScheduleInterval time.Duration `env:"PIPELINE_SCHEDULE_INTERVAL" default:"0s"`
}

// SinkConfig selects where the three output datasets are published.
type SinkConfig struct {
	// Driver is one of none, postgres, sqlite (default: none)
	Driver string `env:"SINK_DRIVER" default:"none"`

	// SQLitePath is the database file for the sqlite driver (default: ./db/inventory.db)
	SQLitePath string `env:"SQLITE_PATH" default:"./db/inventory.db"`

	// TablePrefix prefixes every published table name (default: inventory)
	TablePrefix string `env:"SINK_TABLE_PREFIX" default:"inventory"`

	// Timeout bounds a full publication of all datasets (default: 2m)
	Timeout time.Duration `env:"SINK_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds PostgreSQL connection settings for the postgres sink.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required when SINK_DRIVER=postgres)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// UploadConfig holds source upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed size of one upload request in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects mutating endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// WatchConfig holds settings for the directory watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before a run starts (default: 2s)
	Debounce time.Duration `env:"WATCH_DEBOUNCE" default:"2s"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Path joins name onto the data directory unless name is already absolute.
func (c *PipelineConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
