// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"strconv"

	"github.com/MKhiriev/farm-sync/internal/adapter"
	"github.com/MKhiriev/farm-sync/internal/config"
	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
)

// ClientServices aggregates the engine components wired for the running
// client. The [Coordinator] is the intended entry point; the other fields are
// exposed for the background workers and the observability endpoint.
type ClientServices struct {
	Coordinator *Coordinator
	Queue       *OperationQueue
	TempIDs     *TempIDScheme
	History     *ChangeHistory
	Conflicts   *ConflictResolver
	Processor   *BatchProcessor
	Metrics     *Metrics
}

// NewClientServices wires the sync engine on top of the local storages and
// the remote store adapter.
func NewClientServices(storages *store.ClientStorages, remote adapter.RemoteStore, session adapter.Session, cfg *config.ClientConfig, log *logger.Logger) *ClientServices {
	clock := NewRealClock()
	scheduler := NewTimerScheduler()

	schemaVersion := ""
	if cfg.App.SchemaVersion > 0 {
		schemaVersion = strconv.Itoa(cfg.App.SchemaVersion)
	}

	tempIDs := NewTempIDScheme(storages.KeyValue, clock, log)
	queue := NewOperationQueue(storages.KeyValue, tempIDs, clock, scheduler, QueueMeta{
		TenantID:      cfg.App.TenantID,
		SchemaVersion: schemaVersion,
	}, log)

	metrics := NewMetrics()
	backoff := NewBackoffCalculator(cfg.Sync.BaseDelay, cfg.Sync.MaxDelay)
	processor := NewBatchProcessor(queue, remote, session, tempIDs, backoff, metrics,
		cfg.Sync.BatchSize, cfg.Sync.MaxRetries, log)

	history := NewChangeHistory(storages.KeyValue, clock, cfg.Sync.HistoryLimit, log)
	conflicts := NewConflictResolver(storages.KeyValue, history, clock, log)

	coordinator := NewCoordinator(queue, processor, tempIDs, history, conflicts,
		remote, session, scheduler, metrics, CoordinatorOptions{
			TempIDMaxAge:  cfg.Sync.TempIDMaxAge,
			HistoryMaxAge: cfg.Sync.HistoryMaxAge,
		}, log)

	return &ClientServices{
		Coordinator: coordinator,
		Queue:       queue,
		TempIDs:     tempIDs,
		History:     history,
		Conflicts:   conflicts,
		Processor:   processor,
		Metrics:     metrics,
	}
}
