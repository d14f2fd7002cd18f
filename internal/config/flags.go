package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a remote record store base URL
//	-d local database path (SQLite file)
//	-c/-config json file path with configs
//	-tenant tenant identifier attached to queued operations
//	-token session bearer token
//	-metrics-address local metrics endpoint address
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-batch-size maximum operations per submitted batch
//	-max-retries failed submissions before an operation is failed for good
//	-sync-interval how often the pending queue is processed
func ParseFlags() *StructuredConfig {
	var serverAddress string
	var databaseDSN string
	var jsonConfigPath string
	var tenantID string
	var token string
	var metricsAddress string
	var requestTimeout time.Duration
	var batchSize int
	var maxRetries int
	var syncInterval time.Duration

	flag.StringVar(&serverAddress, "a", "", "Remote record store base URL")
	flag.StringVar(&databaseDSN, "d", "", "Local database path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&tenantID, "tenant", "", "Tenant identifier")
	flag.StringVar(&token, "token", "", "Session bearer token")
	flag.StringVar(&metricsAddress, "metrics-address", "", "Metrics endpoint address")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.IntVar(&batchSize, "batch-size", 0, "Max operations per batch")
	flag.IntVar(&maxRetries, "max-retries", 0, "Max retries before permanent failure")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Queue processing interval")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TenantID: tenantID,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Adapter: Adapter{
			HTTPAddress:    serverAddress,
			RequestTimeout: requestTimeout,
			Token:          token,
		},
		Sync: Sync{
			BatchSize:  batchSize,
			MaxRetries: maxRetries,
		},
		Metrics: Metrics{
			HTTPAddress: metricsAddress,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}
