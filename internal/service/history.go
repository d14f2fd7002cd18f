// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/models"
)

const historyStorageKey = "change_history"

const defaultHistoryLimit = 200

// ChangeHistory is an append-only, size-bounded log of local mutations. It
// exists for conflict resolution (what did this device change recently) and
// for support diagnostics. Oldest entries fall off when the limit is exceeded
// or when they age out during maintenance.
type ChangeHistory struct {
	kv     store.KeyValue
	clock  Clock
	limit  int
	logger *logger.Logger

	mu      sync.RWMutex
	records []models.ChangeRecord
}

// NewChangeHistory constructs the tracker and loads persisted records. A non-
// positive limit falls back to the default.
func NewChangeHistory(kv store.KeyValue, clock Clock, limit int, logger *logger.Logger) *ChangeHistory {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	h := &ChangeHistory{kv: kv, clock: clock, limit: limit, logger: logger}
	h.load()
	return h
}

func (h *ChangeHistory) load() {
	raw, err := h.kv.Load(context.Background(), historyStorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			h.logger.Warn().Err(err).Msg("cannot load change history, starting empty")
		}
		return
	}
	if err := json.Unmarshal(raw, &h.records); err != nil {
		h.logger.Warn().Err(err).Msg("cannot decode change history, starting empty")
		h.records = nil
	}
}

func (h *ChangeHistory) persist(ctx context.Context) {
	raw, err := json.Marshal(h.records)
	if err != nil {
		h.logger.Err(err).Msg("cannot encode change history")
		return
	}
	if err := h.kv.Save(ctx, historyStorageKey, raw); err != nil {
		h.logger.Warn().Err(err).Msg("cannot persist change history")
	}
}

// RecordChange appends one mutation snapshot, evicting the oldest entries past
// the limit. A zero timestamp is stamped with the current time.
func (h *ChangeHistory) RecordChange(ctx context.Context, record models.ChangeRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = h.clock.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)
	if overflow := len(h.records) - h.limit; overflow > 0 {
		h.records = append(h.records[:0], h.records[overflow:]...)
	}
	h.persist(ctx)
}

// Recent returns up to limit records, newest first.
func (h *ChangeHistory) Recent(limit int) []models.ChangeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filter(limit, func(models.ChangeRecord) bool { return true })
}

// ForEntity returns up to limit records for one record identifier, newest
// first.
func (h *ChangeHistory) ForEntity(entityID string, limit int) []models.ChangeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filter(limit, func(r models.ChangeRecord) bool { return r.EntityID == entityID })
}

// filter must be called with the lock held.
func (h *ChangeHistory) filter(limit int, keep func(models.ChangeRecord) bool) []models.ChangeRecord {
	if limit <= 0 {
		limit = len(h.records)
	}
	out := make([]models.ChangeRecord, 0, limit)
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(h.records[i]) {
			out = append(out, h.records[i])
		}
	}
	return out
}

// PruneOld drops records older than maxAge and returns how many were removed.
func (h *ChangeHistory) PruneOld(ctx context.Context, maxAge time.Duration) int {
	cutoff := h.clock.Now().Add(-maxAge)

	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.records[:0]
	dropped := 0
	for _, r := range h.records {
		if r.Timestamp.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	h.records = kept

	if dropped > 0 {
		h.persist(ctx)
	}
	return dropped
}

// PropagateResolved rewrites a resolved temporary identifier inside stored
// records so history stays queryable by real identifier.
func (h *ChangeHistory) PropagateResolved(ctx context.Context, tempID models.TempID, realID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	touched := false
	for i := range h.records {
		if h.records[i].EntityID == tempID.String() {
			h.records[i].EntityID = realID
			touched = true
		}
	}
	if touched {
		h.persist(ctx)
	}
}

// Size returns the number of stored records.
func (h *ChangeHistory) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Flush persists the log; called on shutdown.
func (h *ChangeHistory) Flush(ctx context.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.persist(ctx)
}
