// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"time"

	"github.com/mployhr/recruitdash/internal/domain/model"
)

// Store backends understood by the document store factory.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AppID namespaces the documents: artifacts/{app_id}/public/data/...
	AppID string `koanf:"app_id"`

	// APIKey is the credential for the document store. Required.
	APIKey string `koanf:"api_key"`

	// AuthToken is an optional custom identity token. Empty means anonymous sign-in.
	AuthToken string `koanf:"auth_token"`

	// StoreBackend is one of memory, sqlite, postgres.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresURL is the connection string used by the postgres backend.
	PostgresURL string `koanf:"postgres_url"`

	// NATSURL enables cross-instance change replication when set.
	NATSURL string `koanf:"nats_url"`

	// WriteQueueSize bounds pending fire-and-forget writes.
	WriteQueueSize int `koanf:"write_queue_size"`

	// StreamBuffer is the per-subscription snapshot buffer.
	StreamBuffer int `koanf:"stream_buffer"`

	// Team lists the member names seeded into new documents.
	Team []string `koanf:"team"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	team := make([]string, len(model.DefaultTeam))
	copy(team, model.DefaultTeam)
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		AppID:             "default-app-id",
		StoreBackend:      BackendMemory,
		SQLitePath:        "recruitdash.db",
		WriteQueueSize:    256,
		StreamBuffer:      8,
		Team:              team,
		ShutdownTimeoutMS: 30_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
