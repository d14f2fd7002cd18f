// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dario.cat/mergo"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/models"
)

const conflictLogStorageKey = "conflict_log"

const (
	// conflictHistoryDepth bounds how far back the resolver looks for local
	// changes to the conflicted record.
	conflictHistoryDepth = 10

	// conflictUpdateDepth bounds how many of the newest update records are
	// mined for locally changed fields during an auto-merge.
	conflictUpdateDepth = 5

	conflictLogLimit = 50
)

// criticalFields are never overlaid onto the remote copy: identity and
// provenance always follow the authoritative record.
var criticalFields = map[string]bool{
	fieldID:            true,
	fieldTenantID:      true,
	fieldSchemaVersion: true,
	fieldUserID:        true,
	"collection":       true,
	"created_at":       true,
}

// ConflictResolver reconciles a locally modified record with a diverged
// remote copy.
//
// The preferred strategy is an auto-merge: the remote copy is taken as base
// and the fields this device actively changed (per [ChangeHistory]) are laid
// over it. A field whose type disagrees with the remote copy keeps the remote
// value; the rest of the overlay still applies. The merge degrades to
// latest-wins when no local changes are on record. When the two copies are
// not even the same shape, the remote copy wins and the conflict is logged
// under the manual strategy for user review.
//
// Every resolution is appended to a persisted, size-bounded log.
type ConflictResolver struct {
	history *ChangeHistory
	kv      store.KeyValue
	clock   Clock
	logger  *logger.Logger

	mu  sync.Mutex
	log []models.ConflictRecord
}

func NewConflictResolver(kv store.KeyValue, history *ChangeHistory, clock Clock, logger *logger.Logger) *ConflictResolver {
	r := &ConflictResolver{history: history, kv: kv, clock: clock, logger: logger}
	r.load()
	return r
}

func (r *ConflictResolver) load() {
	raw, err := r.kv.Load(context.Background(), conflictLogStorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			r.logger.Warn().Err(err).Msg("cannot load conflict log, starting empty")
		}
		return
	}
	if err := json.Unmarshal(raw, &r.log); err != nil {
		r.logger.Warn().Err(err).Msg("cannot decode conflict log, starting empty")
		r.log = nil
	}
}

func (r *ConflictResolver) persist(ctx context.Context) {
	raw, err := json.Marshal(r.log)
	if err != nil {
		r.logger.Err(err).Msg("cannot encode conflict log")
		return
	}
	if err := r.kv.Save(ctx, conflictLogStorageKey, raw); err != nil {
		r.logger.Warn().Err(err).Msg("cannot persist conflict log")
	}
}

// Resolve reconciles the two copies and returns the logged conflict record;
// its Resolution field holds the value the caller should keep.
func (r *ConflictResolver) Resolve(ctx context.Context, collection, entityID string, local, remote models.Value) models.ConflictRecord {
	recent := r.history.ForEntity(entityID, conflictHistoryDepth)

	resolution, strategy := r.resolve(local, remote, recent)

	record := models.ConflictRecord{
		EntityID:   entityID,
		Collection: collection,
		LocalData:  local,
		RemoteData: remote,
		History:    recent,
		Resolution: resolution,
		Strategy:   strategy,
		ResolvedAt: r.clock.Now(),
	}

	r.mu.Lock()
	r.log = append(r.log, record)
	if overflow := len(r.log) - conflictLogLimit; overflow > 0 {
		r.log = append(r.log[:0], r.log[overflow:]...)
	}
	r.persist(ctx)
	r.mu.Unlock()

	r.logger.Info().
		Str("func", "ConflictResolver.Resolve").
		Str("collection", collection).
		Str("entity_id", entityID).
		Str("strategy", string(strategy)).
		Msg("conflict resolved")
	return record
}

func (r *ConflictResolver) resolve(local, remote models.Value, recent []models.ChangeRecord) (models.Value, models.ConflictStrategy) {
	if local.Kind() != models.KindMap || remote.Kind() != models.KindMap {
		return remote, models.StrategyManual
	}

	overlay := localOverlay(remote, recent)
	if len(overlay) == 0 {
		return latestWins(local, remote), models.StrategyLatestWins
	}

	base, ok := remote.Interface().(map[string]any)
	if !ok {
		return latestWins(local, remote), models.StrategyLatestWins
	}
	if err := mergo.Merge(&base, overlay, mergo.WithOverride); err != nil {
		r.logger.Warn().Err(err).Msg("auto-merge failed, falling back to latest-wins")
		return latestWins(local, remote), models.StrategyLatestWins
	}

	merged, err := models.FromAny(base)
	if err != nil {
		r.logger.Warn().Err(err).Msg("cannot rebuild merged record, falling back to latest-wins")
		return latestWins(local, remote), models.StrategyLatestWins
	}
	return merged, models.StrategyAutoMerge
}

// localOverlay collects the fields this device actively changed across its
// newest update records, most recent value first, skipping identity fields.
// A field counts as changed only when its old and new snapshots differ, and
// a field whose type disagrees with the remote copy is left to the remote
// value.
func localOverlay(remote models.Value, recent []models.ChangeRecord) map[string]any {
	overlay := make(map[string]any)
	updates := 0
	for _, change := range recent {
		if change.Operation != models.OpUpdate || change.NewData.Kind() != models.KindMap {
			continue
		}
		if updates++; updates > conflictUpdateDepth {
			break
		}
		for name, value := range change.NewData.MapVal() {
			if criticalFields[name] {
				continue
			}
			if _, seen := overlay[name]; seen {
				continue // a newer change already claimed this field
			}
			if !fieldChanged(change.OldData, name, value) {
				continue
			}
			if remoteField, ok := remote.Field(name); ok && remoteField.Kind() != value.Kind() {
				continue
			}
			overlay[name] = value.Interface()
		}
	}
	return overlay
}

// fieldChanged reports whether the update actually altered the field. With no
// usable old snapshot a change cannot be ruled out and counts as real.
func fieldChanged(old models.Value, name string, value models.Value) bool {
	if old.Kind() != models.KindMap {
		return true
	}
	before, ok := old.Field(name)
	if !ok {
		return true
	}
	return !before.Equal(value)
}

// latestWins keeps whichever copy carries the later modification timestamp.
// Unreadable timestamps and ties favour the remote copy, the authoritative
// source.
func latestWins(local, remote models.Value) models.Value {
	localTime, localOK := modifiedAt(local)
	remoteTime, remoteOK := modifiedAt(remote)

	if localOK && (!remoteOK || localTime.After(remoteTime)) {
		return local
	}
	return remote
}

func modifiedAt(v models.Value) (time.Time, bool) {
	for _, name := range []string{"updated_at", "created_at"} {
		field, ok := v.Field(name)
		if !ok {
			continue
		}
		switch field.Kind() {
		case models.KindString:
			if t, err := time.Parse(time.RFC3339Nano, field.StringVal()); err == nil {
				return t, true
			}
		case models.KindNumber:
			return time.UnixMilli(int64(field.NumberVal())), true
		}
	}
	return time.Time{}, false
}

// Log returns up to limit resolved conflicts, newest first.
func (r *ConflictResolver) Log(limit int) []models.ConflictRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.log) {
		limit = len(r.log)
	}
	out := make([]models.ConflictRecord, 0, limit)
	for i := len(r.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.log[i])
	}
	return out
}
