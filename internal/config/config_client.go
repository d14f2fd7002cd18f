package config

import (
	"fmt"
	"time"
)

// ClientApp holds application-level context the engine stamps onto queued
// operations.
type ClientApp struct {
	// TenantID is the tenant (farm account) identifier.
	TenantID string
	// SchemaVersion is the payload schema version.
	SchemaVersion int
}

// ClientAdapter holds network settings used by the remote store adapter.
type ClientAdapter struct {
	// HTTPAddress is the base URL of the remote record store.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
	// Token is the session bearer token.
	Token string
}

// ClientDB contains local database connection settings.
type ClientDB struct {
	// DSN is the SQLite file path.
	DSN string
}

// ClientStorage groups local storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientSync groups engine tuning knobs.
type ClientSync struct {
	BatchSize     int
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	HistoryLimit  int
	HistoryMaxAge time.Duration
	TempIDMaxAge  time.Duration
}

// ClientMetrics groups local observability endpoint settings.
type ClientMetrics struct {
	HTTPAddress string
}

// ClientWorkers contains background job settings.
type ClientWorkers struct {
	SyncInterval         time.Duration
	ConnectivityInterval time.Duration
	MaintenanceInterval  time.Duration
}

// ClientConfig is the engine-facing configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level context.
	App ClientApp
	// Adapter contains remote store endpoint settings.
	Adapter ClientAdapter
	// Storage contains local persistence settings.
	Storage ClientStorage
	// Sync contains engine tuning knobs.
	Sync ClientSync
	// Metrics contains observability endpoint settings.
	Metrics ClientMetrics
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates the engine configuration view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the sync engine runtime, and validates the resulting
// [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			TenantID:      cfg.App.TenantID,
			SchemaVersion: cfg.App.SchemaVersion,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			Token:          cfg.Adapter.Token,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Sync: ClientSync{
			BatchSize:     cfg.Sync.BatchSize,
			MaxRetries:    cfg.Sync.MaxRetries,
			BaseDelay:     cfg.Sync.BaseDelay,
			MaxDelay:      cfg.Sync.MaxDelay,
			HistoryLimit:  cfg.Sync.HistoryLimit,
			HistoryMaxAge: cfg.Sync.HistoryMaxAge,
			TempIDMaxAge:  cfg.Sync.TempIDMaxAge,
		},
		Metrics: ClientMetrics{
			HTTPAddress: cfg.Metrics.HTTPAddress,
		},
		Workers: ClientWorkers{
			SyncInterval:         cfg.Workers.SyncInterval,
			ConnectivityInterval: cfg.Workers.ConnectivityInterval,
			MaintenanceInterval:  cfg.Workers.MaintenanceInterval,
		},
	}

	if err := clientCfg.validate(); err != nil {
		return nil, fmt.Errorf("error validating client config: %w", err)
	}

	return clientCfg, nil
}
