package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"tenant_id": "finca-7", "schema_version": 2},
		"storage": {"db": {"dsn": "/tmp/farm-sync.db"}},
		"adapter": {"http_address": "http://localhost:9999", "request_timeout": "20s"},
		"sync": {"batch_size": 4, "base_delay": "500ms"},
		"workers": {"sync_interval": "2m"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "finca-7", cfg.App.TenantID)
	assert.Equal(t, 2, cfg.App.SchemaVersion)
	assert.Equal(t, "/tmp/farm-sync.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "http://localhost:9999", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 20*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 4, cfg.Sync.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.BaseDelay)
	assert.Equal(t, 2*time.Minute, cfg.Workers.SyncInterval)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON("/nonexistent/config.json")
	assert.Error(t, err)
}
