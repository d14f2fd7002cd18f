// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/internal/utils"
	"github.com/MKhiriev/farm-sync/models"
)

const queueStorageKey = "sync_queue"

// payload fields stamped onto every enqueued mutation
const (
	fieldID            = "id"
	fieldTenantID      = "tenant_id"
	fieldSchemaVersion = "schema_version"
	fieldUserID        = "user_id"
)

// QueueMeta is stamped onto every enqueued payload so replayed mutations carry
// the tenant and schema context they were produced under.
type QueueMeta struct {
	TenantID      string
	SchemaVersion string
}

// EnqueueRequest describes a local mutation to append to the queue. For
// creates TargetID is ignored; the queue issues a temporary identifier.
type EnqueueRequest struct {
	Kind       models.OperationKind
	Collection string
	TargetID   string
	Payload    models.Value
	UserID     string
}

// OperationQueue is the durable FIFO of local mutations awaiting replay. Every
// mutation persists the full queue to local storage, so a crash between
// processing cycles loses nothing. Operations left in the retrying state by a
// previous run are reset to pending on load because their timers died with the
// process.
type OperationQueue struct {
	kv        store.KeyValue
	tempIDs   *TempIDScheme
	clock     Clock
	scheduler Scheduler
	rewriter  *ReferenceRewriter
	uuid      *utils.UUIDGenerator
	meta      QueueMeta
	logger    *logger.Logger

	mu      sync.Mutex
	ops     []models.Operation
	cancels map[string]func()
}

func NewOperationQueue(kv store.KeyValue, tempIDs *TempIDScheme, clock Clock, scheduler Scheduler, meta QueueMeta, logger *logger.Logger) *OperationQueue {
	q := &OperationQueue{
		kv:        kv,
		tempIDs:   tempIDs,
		clock:     clock,
		scheduler: scheduler,
		rewriter:  NewReferenceRewriter(),
		uuid:      utils.NewUUIDGenerator(),
		meta:      meta,
		logger:    logger,
		cancels:   make(map[string]func()),
	}
	q.load()
	return q
}

func (q *OperationQueue) load() {
	raw, err := q.kv.Load(context.Background(), queueStorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			q.logger.Warn().Err(err).Msg("cannot load operation queue, starting empty")
		}
		return
	}

	var stored []models.Operation
	if err := json.Unmarshal(raw, &stored); err != nil {
		q.logger.Warn().Err(err).Msg("cannot decode operation queue, starting empty")
		return
	}

	for i := range stored {
		if stored[i].Status == models.StatusRetrying {
			stored[i].Status = models.StatusPending
		}
	}
	q.ops = stored
}

// persist writes the queue under the mutex. Failures are logged and the queue
// keeps serving from memory.
func (q *OperationQueue) persist(ctx context.Context) {
	raw, err := json.Marshal(q.ops)
	if err != nil {
		q.logger.Err(err).Msg("cannot encode operation queue")
		return
	}
	if err := q.kv.Save(ctx, queueStorageKey, raw); err != nil {
		q.logger.Warn().Err(err).Msg("cannot persist operation queue")
	}
}

// Enqueue validates, enriches and appends a mutation, returning the stored
// operation. Creates get a fresh temporary identifier injected into the
// payload's id field so the optimistic local copy and the queue agree on the
// placeholder.
func (q *OperationQueue) Enqueue(ctx context.Context, req EnqueueRequest) (models.Operation, error) {
	if !req.Kind.Valid() {
		return models.Operation{}, fmt.Errorf("%w: kind %q", ErrInvalidOperation, req.Kind)
	}
	if req.Collection == "" {
		return models.Operation{}, fmt.Errorf("%w: empty collection", ErrInvalidOperation)
	}
	if req.Kind != models.OpCreate && req.TargetID == "" {
		return models.Operation{}, fmt.Errorf("%w: %s without target id", ErrInvalidOperation, req.Kind)
	}

	op := models.Operation{
		OpID:       q.uuid.Generate(),
		Kind:       req.Kind,
		Collection: req.Collection,
		TargetID:   req.TargetID,
		Payload:    q.enrich(req.Payload, req.UserID),
		Status:     models.StatusPending,
		Priority:   req.Kind.Priority(),
		CreatedAt:  q.clock.Now(),
		UserID:     req.UserID,
	}

	if req.Kind == models.OpCreate {
		tempID := q.tempIDs.Generate()
		op.TempID = tempID
		op.TargetID = tempID.String()
		if op.Payload.Kind() == models.KindMap {
			op.Payload = op.Payload.WithField(fieldID, models.String(tempID.String()))
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = append(q.ops, op)
	q.persist(ctx)

	q.logger.Debug().
		Str("func", "OperationQueue.Enqueue").
		Str("op_id", op.OpID).
		Str("kind", string(op.Kind)).
		Str("collection", op.Collection).
		Str("target_id", op.TargetID).
		Msg("operation enqueued")
	return op, nil
}

func (q *OperationQueue) enrich(payload models.Value, userID string) models.Value {
	if payload.Kind() != models.KindMap {
		return payload
	}
	if q.meta.TenantID != "" {
		payload = payload.WithField(fieldTenantID, models.String(q.meta.TenantID))
	}
	if q.meta.SchemaVersion != "" {
		payload = payload.WithField(fieldSchemaVersion, models.String(q.meta.SchemaVersion))
	}
	if userID != "" {
		payload = payload.WithField(fieldUserID, models.String(userID))
	}
	return payload
}

// Drain returns the operations eligible for replay by the given session,
// ordered by enqueue time. Ties fall back to kind priority, then to the
// time-ordered operation identifier. The queue itself is not modified; status
// transitions happen per operation as batch results arrive.
func (q *OperationQueue) Drain(currentUserID string) []models.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	eligible := make([]models.Operation, 0, len(q.ops))
	for _, op := range q.ops {
		if op.Eligible(currentUserID) {
			eligible = append(eligible, op)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].OpID < eligible[j].OpID
	})
	return eligible
}

// Get returns the stored operation by queue identifier.
func (q *OperationQueue) Get(opID string) (models.Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.index(opID); i >= 0 {
		return q.ops[i], true
	}
	return models.Operation{}, false
}

// index must be called with the mutex held.
func (q *OperationQueue) index(opID string) int {
	for i := range q.ops {
		if q.ops[i].OpID == opID {
			return i
		}
	}
	return -1
}

// MarkCompleted transitions the operation to its successful terminal state.
func (q *OperationQueue) MarkCompleted(ctx context.Context, opID string) error {
	return q.setStatus(ctx, opID, models.StatusCompleted)
}

// MarkFailed transitions the operation to its exhausted terminal state. The
// operation stays in the queue until [OperationQueue.PurgeTerminal] so metrics
// and history can observe it.
func (q *OperationQueue) MarkFailed(ctx context.Context, opID string) error {
	return q.setStatus(ctx, opID, models.StatusFailed)
}

func (q *OperationQueue) setStatus(ctx context.Context, opID string, status models.OperationStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.index(opID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, opID)
	}

	q.ops[i].Status = status
	if cancel, ok := q.cancels[opID]; ok {
		cancel()
		delete(q.cancels, opID)
	}
	q.persist(ctx)
	return nil
}

// MarkRetrying parks the operation until delay elapses, then returns it to
// pending. Both transitions persist so a crash mid-delay resurfaces the
// operation as pending on restart.
func (q *OperationQueue) MarkRetrying(ctx context.Context, opID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.index(opID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, opID)
	}

	q.ops[i].Status = models.StatusRetrying
	q.persist(ctx)

	q.cancels[opID] = q.scheduler.After(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.cancels, opID)
		j := q.index(opID)
		if j < 0 || q.ops[j].Status != models.StatusRetrying {
			return
		}
		q.ops[j].Status = models.StatusPending
		q.persist(context.Background())
	})

	q.logger.Debug().
		Str("func", "OperationQueue.MarkRetrying").
		Str("op_id", opID).
		Dur("delay", delay).
		Msg("operation parked for retry")
	return nil
}

// IncrementRetry bumps the attempt counter and returns the new count.
func (q *OperationQueue) IncrementRetry(ctx context.Context, opID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.index(opID)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOperation, opID)
	}

	q.ops[i].RetryCount++
	q.persist(ctx)
	return q.ops[i].RetryCount, nil
}

// PurgeTerminal removes completed and failed operations, returning how many
// were dropped.
func (q *OperationQueue) PurgeTerminal(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.ops[:0]
	dropped := 0
	for _, op := range q.ops {
		if op.Status.Terminal() {
			dropped++
			continue
		}
		kept = append(kept, op)
	}
	q.ops = kept

	if dropped > 0 {
		q.persist(ctx)
	}
	return dropped
}

// Deduplicate collapses redundant pending mutations: for each
// (kind, collection, target) only the latest-enqueued pending operation
// survives. Retrying and terminal operations are never touched. Returns the
// number of superseded operations removed.
func (q *OperationQueue) Deduplicate(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	type dedupKey struct {
		kind       models.OperationKind
		collection string
		target     string
	}

	latest := make(map[dedupKey]int, len(q.ops))
	for i, op := range q.ops {
		if op.Status != models.StatusPending {
			continue
		}
		key := dedupKey{kind: op.Kind, collection: op.Collection, target: op.TargetID}
		if prev, ok := latest[key]; !ok || q.ops[i].CreatedAt.After(q.ops[prev].CreatedAt) ||
			(q.ops[i].CreatedAt.Equal(q.ops[prev].CreatedAt) && q.ops[i].OpID > q.ops[prev].OpID) {
			latest[key] = i
		}
	}

	superseded := make(map[int]bool)
	for i, op := range q.ops {
		if op.Status != models.StatusPending {
			continue
		}
		key := dedupKey{kind: op.Kind, collection: op.Collection, target: op.TargetID}
		if latest[key] != i {
			superseded[i] = true
		}
	}
	if len(superseded) == 0 {
		return 0
	}

	kept := q.ops[:0]
	for i, op := range q.ops {
		if superseded[i] {
			continue
		}
		kept = append(kept, op)
	}
	q.ops = kept
	q.persist(ctx)

	q.logger.Debug().
		Str("func", "OperationQueue.Deduplicate").
		Int("removed", len(superseded)).
		Msg("superseded operations removed")
	return len(superseded)
}

// PropagateResolved rewrites the given temporary identifier to its real
// identifier inside every non-terminal queued operation, both in payload
// references and in the target itself. Returns the number of operations
// touched.
func (q *OperationQueue) PropagateResolved(ctx context.Context, tempID models.TempID, realID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	touched := 0
	for i := range q.ops {
		if q.ops[i].Status.Terminal() {
			continue
		}

		changed := false
		if q.ops[i].TargetID == tempID.String() && q.ops[i].Kind != models.OpCreate {
			q.ops[i].TargetID = realID
			changed = true
		}
		rewritten := q.rewriter.RewriteOne(q.ops[i].Payload, tempID, realID)
		if !rewritten.Equal(q.ops[i].Payload) {
			q.ops[i].Payload = rewritten
			changed = true
		}
		if changed {
			touched++
		}
	}

	if touched > 0 {
		q.persist(ctx)
	}
	return touched
}

// QueueStats is a point-in-time census of the queue for metrics.
type QueueStats struct {
	Total    int
	Pending  int
	Retrying int
	ByKind   map[models.OperationKind]int
}

// Stats counts non-terminal operations by status and kind.
func (q *OperationQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := QueueStats{ByKind: make(map[models.OperationKind]int)}
	for _, op := range q.ops {
		if op.Status.Terminal() {
			continue
		}
		stats.Total++
		stats.ByKind[op.Kind]++
		switch op.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusRetrying:
			stats.Retrying++
		}
	}
	return stats
}

// Flush persists the queue; called on shutdown.
func (q *OperationQueue) Flush(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.persist(ctx)
}

// Close cancels all pending retry timers.
func (q *OperationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for opID, cancel := range q.cancels {
		cancel()
		delete(q.cancels, opID)
	}
}
