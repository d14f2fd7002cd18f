package config

import "time"

// Built-in fallback values applied after all explicit sources. Backoff and
// retry defaults follow the engine contract: 1s base delay doubling up to a
// 30s cap, 5 attempts, batches of 10, a 7-day identifier-map retention.
func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			SchemaVersion: 1,
		},
		Storage: Storage{
			DB: DB{DSN: "farm-sync.db"},
		},
		Adapter: Adapter{
			HTTPAddress:    "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
		},
		Sync: Sync{
			BatchSize:     10,
			MaxRetries:    5,
			BaseDelay:     time.Second,
			MaxDelay:      30 * time.Second,
			HistoryLimit:  500,
			HistoryMaxAge: 30 * 24 * time.Hour,
			TempIDMaxAge:  7 * 24 * time.Hour,
		},
		Metrics: Metrics{
			HTTPAddress: "127.0.0.1:8790",
		},
		Workers: Workers{
			SyncInterval:         time.Minute,
			ConnectivityInterval: 30 * time.Second,
			MaintenanceInterval:  time.Hour,
		},
	}
}
