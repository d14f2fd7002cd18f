// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Sync.BatchSize <= 0 || cfg.Sync.MaxRetries <= 0 {
		return ErrInvalidSyncConfigs
	}
	if cfg.Sync.BaseDelay <= 0 || cfg.Sync.MaxDelay < cfg.Sync.BaseDelay {
		return ErrInvalidSyncConfigs
	}
	if cfg.Sync.HistoryLimit <= 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.ConnectivityInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}
	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}
	if cfg.Sync.BatchSize <= 0 {
		return ErrInvalidSyncConfigs
	}
	return nil
}
