package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		TenantID      string `json:"tenant_id"`
		SchemaVersion int    `json:"schema_version"`
		Version       string `json:"version"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		Token          string   `json:"token"`
	} `json:"adapter,omitempty"`

	Sync struct {
		BatchSize     int      `json:"batch_size"`
		MaxRetries    int      `json:"max_retries"`
		BaseDelay     Duration `json:"base_delay"`
		MaxDelay      Duration `json:"max_delay"`
		HistoryLimit  int      `json:"history_limit"`
		HistoryMaxAge Duration `json:"history_max_age"`
		TempIDMaxAge  Duration `json:"temp_id_max_age"`
	} `json:"sync,omitempty"`

	Metrics struct {
		HTTPAddress string `json:"address"`
	} `json:"metrics,omitempty"`

	Workers struct {
		SyncInterval         Duration `json:"sync_interval"`
		ConnectivityInterval Duration `json:"connectivity_interval"`
		MaintenanceInterval  Duration `json:"maintenance_interval"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			TenantID:      jsonCfg.App.TenantID,
			SchemaVersion: jsonCfg.App.SchemaVersion,
			Version:       jsonCfg.App.Version,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			Token:          jsonCfg.Adapter.Token,
		},
		Sync: Sync{
			BatchSize:     jsonCfg.Sync.BatchSize,
			MaxRetries:    jsonCfg.Sync.MaxRetries,
			BaseDelay:     time.Duration(jsonCfg.Sync.BaseDelay),
			MaxDelay:      time.Duration(jsonCfg.Sync.MaxDelay),
			HistoryLimit:  jsonCfg.Sync.HistoryLimit,
			HistoryMaxAge: time.Duration(jsonCfg.Sync.HistoryMaxAge),
			TempIDMaxAge:  time.Duration(jsonCfg.Sync.TempIDMaxAge),
		},
		Metrics: Metrics{
			HTTPAddress: jsonCfg.Metrics.HTTPAddress,
		},
		Workers: Workers{
			SyncInterval:         time.Duration(jsonCfg.Workers.SyncInterval),
			ConnectivityInterval: time.Duration(jsonCfg.Workers.ConnectivityInterval),
			MaintenanceInterval:  time.Duration(jsonCfg.Workers.MaintenanceInterval),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
