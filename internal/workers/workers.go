// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"

	"github.com/MKhiriev/farm-sync/internal/config"
	"github.com/MKhiriev/farm-sync/internal/logger"
)

// Workers owns the background jobs of a running client.
type Workers struct {
	workers []Worker

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkers assembles the standard job set: connectivity probing, periodic
// queue processing and retention maintenance.
func NewWorkers(engine Engine, cfg config.ClientWorkers, logger *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			newConnectivityJob(engine, cfg.ConnectivityInterval, logger),
			newSyncJob(engine, cfg.SyncInterval, logger),
			newMaintenanceJob(engine, cfg.MaintenanceInterval, logger),
		},
	}
}

// Run launches every worker in its own goroutine and returns immediately.
func (w *Workers) Run(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for _, worker := range w.workers {
		w.wg.Add(1)
		go func(worker Worker) {
			defer w.wg.Done()
			worker.Run(ctx)
		}(worker)
	}
}

// Stop cancels the workers and blocks until all of them return.
func (w *Workers) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
