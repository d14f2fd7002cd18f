// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/farm-sync/internal/logger"
)

const (
	defaultSyncInterval         = time.Minute
	defaultConnectivityInterval = 15 * time.Second
	defaultMaintenanceInterval  = time.Hour
)

// syncJob periodically drains the pending queue while the engine is online.
// Missed windows cost nothing: the engine skips the cycle when offline or when
// a cycle is already in flight.
type syncJob struct {
	engine   Engine
	interval time.Duration
	logger   *logger.Logger
}

func newSyncJob(engine Engine, interval time.Duration, logger *logger.Logger) *syncJob {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &syncJob{engine: engine, interval: interval, logger: logger}
}

func (j *syncJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info().Str("func", "syncJob.Run").Dur("interval", j.interval).Msg("sync job started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Str("func", "syncJob.Run").Msg("sync job stopped")
			return
		case <-ticker.C:
			if !j.engine.Online() {
				continue
			}
			if _, err := j.engine.Sync(ctx); err != nil {
				j.logger.Warn().Err(err).Str("func", "syncJob.Run").Msg("periodic sync cycle failed")
			}
		}
	}
}

// connectivityJob probes the remote store and flips the engine's online flag.
// The offline-to-online transition triggers an immediate drain inside the
// engine.
type connectivityJob struct {
	engine   Engine
	interval time.Duration
	logger   *logger.Logger
}

func newConnectivityJob(engine Engine, interval time.Duration, logger *logger.Logger) *connectivityJob {
	if interval <= 0 {
		interval = defaultConnectivityInterval
	}
	return &connectivityJob{engine: engine, interval: interval, logger: logger}
}

func (j *connectivityJob) Run(ctx context.Context) {
	// Probe once at startup so the engine does not wait a full interval to
	// discover it is online.
	j.engine.CheckConnectivity(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info().Str("func", "connectivityJob.Run").Dur("interval", j.interval).Msg("connectivity job started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Str("func", "connectivityJob.Run").Msg("connectivity job stopped")
			return
		case <-ticker.C:
			j.engine.CheckConnectivity(ctx)
		}
	}
}

// maintenanceJob runs the retention pass: aged identifier mappings and history
// entries are pruned and redundant queued mutations collapsed.
type maintenanceJob struct {
	engine   Engine
	interval time.Duration
	logger   *logger.Logger
}

func newMaintenanceJob(engine Engine, interval time.Duration, logger *logger.Logger) *maintenanceJob {
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	return &maintenanceJob{engine: engine, interval: interval, logger: logger}
}

func (j *maintenanceJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info().Str("func", "maintenanceJob.Run").Dur("interval", j.interval).Msg("maintenance job started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Str("func", "maintenanceJob.Run").Msg("maintenance job stopped")
			return
		case <-ticker.C:
			j.engine.Maintain(ctx)
		}
	}
}
