// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/farm-sync/internal/adapter"
	"github.com/MKhiriev/farm-sync/models"
)

// Metrics accumulates engine counters. Counters only grow; gauges are
// overwritten each processing cycle. All methods are safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	totalQueued    int64
	totalCompleted int64
	totalFailed    int64
	totalRetried   int64

	errorBreakdown map[string]int64
	orphaned       int

	cycles            int64
	lastCycleAt       time.Time
	lastCycleDuration time.Duration

	online bool
}

func NewMetrics() *Metrics {
	return &Metrics{errorBreakdown: make(map[string]int64)}
}

func (m *Metrics) OperationQueued() {
	m.mu.Lock()
	m.totalQueued++
	m.mu.Unlock()
}

func (m *Metrics) OperationCompleted() {
	m.mu.Lock()
	m.totalCompleted++
	m.mu.Unlock()
}

func (m *Metrics) OperationFailed() {
	m.mu.Lock()
	m.totalFailed++
	m.mu.Unlock()
}

func (m *Metrics) OperationRetried() {
	m.mu.Lock()
	m.totalRetried++
	m.mu.Unlock()
}

// RecordError tallies err under its transport class.
func (m *Metrics) RecordError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.errorBreakdown[errorClass(err)]++
	m.mu.Unlock()
}

// SetOrphaned overwrites the orphaned-operations gauge for the cycle.
func (m *Metrics) SetOrphaned(n int) {
	m.mu.Lock()
	m.orphaned = n
	m.mu.Unlock()
}

func (m *Metrics) SetOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
}

func (m *Metrics) CycleFinished(at time.Time, took time.Duration) {
	m.mu.Lock()
	m.cycles++
	m.lastCycleAt = at
	m.lastCycleDuration = took
	m.mu.Unlock()
}

// Snapshot combines the accumulated counters with a point-in-time queue
// census.
func (m *Metrics) Snapshot(stats QueueStats) models.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	breakdown := make(map[string]int64, len(m.errorBreakdown))
	for class, n := range m.errorBreakdown {
		breakdown[class] = n
	}
	pendingByKind := make(map[string]int, len(stats.ByKind))
	for kind, n := range stats.ByKind {
		pendingByKind[string(kind)] = n
	}

	return models.MetricsSnapshot{
		TotalQueued:        m.totalQueued,
		TotalCompleted:     m.totalCompleted,
		TotalFailed:        m.totalFailed,
		TotalRetried:       m.totalRetried,
		QueueSize:          stats.Total,
		PendingByKind:      pendingByKind,
		OrphanedOperations: m.orphaned,
		ErrorBreakdown:     breakdown,
		Cycles:             m.cycles,
		LastCycleAt:        m.lastCycleAt,
		LastCycleDuration:  m.lastCycleDuration,
		Online:             m.online,
	}
}

// errorClass buckets an error for the breakdown map. Classification feeds
// observability only; retry decisions do not depend on it.
func errorClass(err error) string {
	switch {
	case errors.Is(err, adapter.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, adapter.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, adapter.ErrRejected):
		return "rejected"
	case errors.Is(err, adapter.ErrBadResponse):
		return "bad_response"
	default:
		return "other"
	}
}
