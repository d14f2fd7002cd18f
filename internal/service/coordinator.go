// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/farm-sync/internal/adapter"
	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/models"
)

// CoordinatorOptions carries the retention knobs the maintenance pass uses.
type CoordinatorOptions struct {
	TempIDMaxAge  time.Duration
	HistoryMaxAge time.Duration
}

// Coordinator is the façade the application talks to. It owns the adapter
// registry, the online flag and the fan-out of processing-cycle outcomes to
// the per-collection caches; everything else is delegated to the queue, the
// processor, the temp-id scheme, the history tracker and the conflict
// resolver.
type Coordinator struct {
	queue     *OperationQueue
	processor *BatchProcessor
	tempIDs   *TempIDScheme
	history   *ChangeHistory
	conflicts *ConflictResolver
	remote    adapter.RemoteStore
	session   adapter.Session
	scheduler Scheduler
	metrics   *Metrics
	opts      CoordinatorOptions
	logger    *logger.Logger

	mu       sync.RWMutex
	adapters map[string]CacheAdapter

	online atomic.Bool
}

func NewCoordinator(
	queue *OperationQueue,
	processor *BatchProcessor,
	tempIDs *TempIDScheme,
	history *ChangeHistory,
	conflicts *ConflictResolver,
	remote adapter.RemoteStore,
	session adapter.Session,
	scheduler Scheduler,
	metrics *Metrics,
	opts CoordinatorOptions,
	logger *logger.Logger,
) *Coordinator {
	return &Coordinator{
		queue:     queue,
		processor: processor,
		tempIDs:   tempIDs,
		history:   history,
		conflicts: conflicts,
		remote:    remote,
		session:   session,
		scheduler: scheduler,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
		adapters:  make(map[string]CacheAdapter),
	}
}

// RegisterAdapter adds a per-collection cache to the fan-out registry. Each
// collection may register exactly one adapter, before or after hydration.
func (c *Coordinator) RegisterAdapter(a CacheAdapter) error {
	if a == nil || a.Collection() == "" {
		return ErrInvalidAdapter
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.adapters[a.Collection()]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterAlreadyRegistered, a.Collection())
	}
	c.adapters[a.Collection()] = a
	return nil
}

// ReferenceSchema returns the reference-field declarations of every
// registered cache, keyed by collection. This is the engine's authoritative
// view of which payload fields hold identifiers; there is no runtime
// introspection of cache internals.
func (c *Coordinator) ReferenceSchema() map[string]map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	schema := make(map[string]map[string]string, len(c.adapters))
	for collection, a := range c.adapters {
		fields := a.ReferenceFields()
		out := make(map[string]string, len(fields))
		for field, target := range fields {
			out[field] = target
		}
		schema[collection] = out
	}
	return schema
}

func (c *Coordinator) adapterFor(collection string) (CacheAdapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.adapters[collection]
	return a, ok
}

// Hydrate initialises every registered cache from local storage. Errors are
// joined so one broken cache does not hide another.
func (c *Coordinator) Hydrate(ctx context.Context) error {
	c.mu.RLock()
	adapters := make([]CacheAdapter, 0, len(c.adapters))
	for _, a := range c.adapters {
		adapters = append(adapters, a)
	}
	c.mu.RUnlock()

	var errs []error
	for _, a := range adapters {
		if err := a.InitFromLocalStorage(ctx); err != nil {
			errs = append(errs, fmt.Errorf("hydrate %s: %w", a.Collection(), err))
		}
	}
	return errors.Join(errs...)
}

// QueueOperation records a local mutation: it lands in the durable queue and
// the change history immediately, and a processing cycle is kicked off when
// the engine considers itself online. The returned operation carries the
// issued temporary identifier for creates.
//
// previous is the record's snapshot before the mutation, as held by the
// calling cache; conflict resolution uses it to tell actively changed fields
// from carried-over ones. Pass [models.Null] when no prior copy exists.
func (c *Coordinator) QueueOperation(ctx context.Context, kind models.OperationKind, collection, targetID string, payload, previous models.Value) (models.Operation, error) {
	op, err := c.queue.Enqueue(ctx, EnqueueRequest{
		Kind:       kind,
		Collection: collection,
		TargetID:   targetID,
		Payload:    payload,
		UserID:     c.session.CurrentUserID(),
	})
	if err != nil {
		return models.Operation{}, err
	}
	c.metrics.OperationQueued()

	c.history.RecordChange(ctx, models.ChangeRecord{
		EntityID:   op.TargetID,
		Collection: op.Collection,
		Operation:  op.Kind,
		OldData:    previous,
		NewData:    op.Payload,
		Timestamp:  op.CreatedAt,
		UserID:     op.UserID,
		Context:    "local",
	})

	if c.online.Load() {
		c.scheduler.After(0, func() {
			if _, err := c.Sync(context.Background()); err != nil {
				c.logger.Warn().Err(err).Msg("queued-operation sync cycle failed")
			}
		})
	}
	return op, nil
}

// Sync runs one processing cycle and fans its outcomes out to the registered
// caches. Safe to call at any time: overlapping calls and empty queues yield
// an empty manifest.
func (c *Coordinator) Sync(ctx context.Context) (models.SyncManifest, error) {
	manifest, err := c.processor.ProcessPending(ctx)
	if err != nil {
		return manifest, err
	}
	if !manifest.Empty() {
		c.fanOut(ctx, manifest)
	}
	return manifest, nil
}

// fanOut pushes confirmed outcomes into the caches. Adapter failures are
// logged and skipped: callbacks are idempotent and a later cycle may repair
// the cache, while the queue has already moved on.
func (c *Coordinator) fanOut(ctx context.Context, manifest models.SyncManifest) {
	for _, item := range manifest.CreatedItems {
		c.history.PropagateResolved(ctx, item.TempID, item.RealID)
		a, ok := c.adapterFor(item.Collection)
		if !ok {
			continue
		}
		if err := a.ApplySyncedCreate(ctx, item.TempID, item.Record); err != nil {
			c.logger.Warn().Err(err).
				Str("collection", item.Collection).
				Str("temp_id", item.TempID.String()).
				Msg("cache rejected synced create")
		}
	}
	for _, item := range manifest.UpdatedItems {
		a, ok := c.adapterFor(item.Collection)
		if !ok {
			continue
		}
		if err := a.ApplySyncedUpdate(ctx, item.ID, item.Patch); err != nil {
			c.logger.Warn().Err(err).
				Str("collection", item.Collection).
				Str("id", item.ID).
				Msg("cache rejected synced update")
		}
	}
	for _, item := range manifest.DeletedItems {
		a, ok := c.adapterFor(item.Collection)
		if !ok {
			continue
		}
		if err := a.ApplySyncedDelete(ctx, item.ID); err != nil {
			c.logger.Warn().Err(err).
				Str("collection", item.Collection).
				Str("id", item.ID).
				Msg("cache rejected synced delete")
		}
	}
}

// SetOnline flips the connectivity flag. The offline-to-online transition
// immediately runs a processing cycle to drain what accumulated while
// disconnected.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) {
	wasOnline := c.online.Swap(online)
	c.metrics.SetOnline(online)
	if online == wasOnline {
		return
	}

	c.logger.Info().Bool("online", online).Msg("connectivity changed")
	if online {
		if _, err := c.Sync(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("reconnect sync cycle failed")
		}
	}
}

// Online reports the current connectivity flag.
func (c *Coordinator) Online() bool { return c.online.Load() }

// CheckConnectivity probes the remote store and updates the online flag from
// the outcome. Returns the probed state.
func (c *Coordinator) CheckConnectivity(ctx context.Context) bool {
	err := c.remote.Ping(ctx)
	c.SetOnline(ctx, err == nil)
	return err == nil
}

// ResolveConflict reconciles a local and a remote copy of one record and
// returns the logged resolution.
func (c *Coordinator) ResolveConflict(ctx context.Context, collection, entityID string, local, remote models.Value) models.ConflictRecord {
	return c.conflicts.Resolve(ctx, collection, entityID, local, remote)
}

// ResolveID maps a possibly temporary identifier to its real identifier.
func (c *Coordinator) ResolveID(id string) (string, bool) {
	return c.tempIDs.Resolve(id)
}

// RecentChanges returns up to limit change-history entries, newest first.
func (c *Coordinator) RecentChanges(limit int) []models.ChangeRecord {
	return c.history.Recent(limit)
}

// Conflicts returns up to limit resolved conflicts, newest first.
func (c *Coordinator) Conflicts(limit int) []models.ConflictRecord {
	return c.conflicts.Log(limit)
}

// Metrics returns a point-in-time snapshot of the engine.
func (c *Coordinator) Metrics() models.MetricsSnapshot {
	return c.metrics.Snapshot(c.queue.Stats())
}

// Maintain runs the retention pass: aged temp-id mappings and history entries
// are pruned and redundant queued mutations collapsed.
func (c *Coordinator) Maintain(ctx context.Context) {
	prunedIDs := c.tempIDs.Prune(ctx, c.opts.TempIDMaxAge)
	prunedHistory := c.history.PruneOld(ctx, c.opts.HistoryMaxAge)
	deduplicated := c.queue.Deduplicate(ctx)

	c.logger.Debug().
		Str("func", "Coordinator.Maintain").
		Int("pruned_temp_ids", prunedIDs).
		Int("pruned_history", prunedHistory).
		Int("deduplicated", deduplicated).
		Msg("maintenance pass finished")
}

// Flush persists all engine state and stops pending retry timers; called on
// shutdown.
func (c *Coordinator) Flush(ctx context.Context) {
	c.queue.Flush(ctx)
	c.tempIDs.Flush(ctx)
	c.history.Flush(ctx)
	c.queue.Close()
}
