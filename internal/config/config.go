// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the farm-sync
// client. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, and an optional JSON
// file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings: tenant context, schema version
	// and the build version string.
	App App `envPrefix:"APP_"`

	// Storage holds local persistence settings (the SQLite database the
	// queue, identifier map and change history survive restarts in).
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds the remote record store endpoint settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds the engine tuning knobs: batch size, retry policy,
	// backoff bounds and history caps.
	Sync Sync `envPrefix:"SYNC_"`

	// Metrics holds settings of the local observability endpoint.
	Metrics Metrics `envPrefix:"METRICS_"`

	// Workers holds background job intervals.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged with the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level context attached to every enqueued operation.
type App struct {
	// TenantID is the tenant (farm account) every queued operation is
	// enriched with.
	// Env: APP_TENANT_ID
	TenantID string `env:"TENANT_ID"`

	// SchemaVersion is the monotonic payload schema version stamped onto
	// enqueued operations.
	// Env: APP_SCHEMA_VERSION
	SchemaVersion int `env:"SCHEMA_VERSION"`

	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage holds connection settings for the local database backend.
type Storage struct {
	// DB holds the local SQLite connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite file path used to open the local database
	// (e.g. "farm-sync.db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds network settings of the remote record store endpoint.
type Adapter struct {
	// HTTPAddress is the base URL of the remote record store API.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the per-request timeout for outbound calls
	// (e.g. "15s").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Token is the bearer token identifying the current session. The user
	// identifier is extracted from its "sub" claim.
	// Env: ADAPTER_TOKEN
	Token string `env:"TOKEN"`
}

// Sync holds the tuning knobs of the synchronization engine.
type Sync struct {
	// BatchSize is the maximum number of operations submitted to the
	// remote store in one network round-trip.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// MaxRetries is how many failed submissions an operation survives
	// before it is marked failed permanently.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// BaseDelay is the first retry delay of the exponential backoff.
	// Env: SYNC_BASE_DELAY
	BaseDelay time.Duration `env:"BASE_DELAY"`

	// MaxDelay caps the retry delay regardless of attempt count.
	// Env: SYNC_MAX_DELAY
	MaxDelay time.Duration `env:"MAX_DELAY"`

	// HistoryLimit caps the change-history ring buffer.
	// Env: SYNC_HISTORY_LIMIT
	HistoryLimit int `env:"HISTORY_LIMIT"`

	// HistoryMaxAge prunes change-history entries older than this.
	// Env: SYNC_HISTORY_MAX_AGE
	HistoryMaxAge time.Duration `env:"HISTORY_MAX_AGE"`

	// TempIDMaxAge prunes identifier-map entries whose embedded timestamp
	// is older than this.
	// Env: SYNC_TEMP_ID_MAX_AGE
	TempIDMaxAge time.Duration `env:"TEMP_ID_MAX_AGE"`
}

// Metrics holds settings of the local read-only observability endpoint.
type Metrics struct {
	// HTTPAddress is the TCP address the metrics endpoint listens on.
	// Should stay on loopback; the endpoint is unauthenticated.
	// Env: METRICS_ADDRESS
	HTTPAddress string `env:"ADDRESS"`
}

// Workers holds configuration for background jobs.
type Workers struct {
	// SyncInterval defines how often the pending queue is processed when
	// connectivity is available.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// ConnectivityInterval defines how often the remote store is probed to
	// detect online/offline transitions.
	// Env: WORKERS_CONNECTIVITY_INTERVAL
	ConnectivityInterval time.Duration `env:"CONNECTIVITY_INTERVAL"`

	// MaintenanceInterval defines how often identifier-map and history
	// pruning runs.
	// Env: WORKERS_MAINTENANCE_INTERVAL
	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all supported sources.
//
// Sources are merged in priority order: environment variables, then
// command-line flags, then the optional JSON file, then built-in defaults.
// A field set by a higher-priority source is never overwritten by a lower
// one.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
