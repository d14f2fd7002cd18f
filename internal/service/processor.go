// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/MKhiriev/farm-sync/internal/adapter"
	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/models"
)

// BatchProcessor replays the queued mutations against the remote store. A
// processing cycle runs in two passes. The first pass submits creates so the
// store assigns real identifiers; each resolution is recorded and propagated
// into the still-queued operations immediately. The second pass re-drains the
// queue and submits updates and deletes, skipping any operation whose target
// is a still-unresolved temporary identifier. Skipped operations stay pending
// and surface in metrics as orphaned until the create they depend on resolves
// or fails.
//
// Cycles never overlap. A call that finds a cycle already in flight returns an
// empty manifest without touching the queue.
type BatchProcessor struct {
	queue    *OperationQueue
	remote   adapter.RemoteStore
	session  adapter.Session
	tempIDs  *TempIDScheme
	rewriter *ReferenceRewriter
	backoff  *BackoffCalculator
	metrics  *Metrics
	logger   *logger.Logger

	batchSize  int
	maxRetries int

	running atomic.Bool
}

func NewBatchProcessor(
	queue *OperationQueue,
	remote adapter.RemoteStore,
	session adapter.Session,
	tempIDs *TempIDScheme,
	backoff *BackoffCalculator,
	metrics *Metrics,
	batchSize int,
	maxRetries int,
	logger *logger.Logger,
) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &BatchProcessor{
		queue:      queue,
		remote:     remote,
		session:    session,
		tempIDs:    tempIDs,
		rewriter:   NewReferenceRewriter(),
		backoff:    backoff,
		metrics:    metrics,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// ProcessPending runs one full processing cycle and returns a manifest of the
// mutations confirmed by the remote store. Transport failures mark their batch
// for retry and do not abort the remaining batches; the returned error is nil
// unless the cycle could not run at all.
func (p *BatchProcessor) ProcessPending(ctx context.Context) (models.SyncManifest, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Debug().Str("func", "BatchProcessor.ProcessPending").Msg("cycle already in flight, skipping")
		return models.SyncManifest{}, nil
	}
	defer p.running.Store(false)

	started := p.queue.clock.Now()
	userID := p.session.CurrentUserID()

	var manifest models.SyncManifest

	creates := filterKind(p.queue.Drain(userID), true)
	p.processCreates(ctx, creates, &manifest)

	// Re-drain: the create pass may have resolved identifiers that unblock
	// updates and deletes enqueued before it ran.
	rest := filterKind(p.queue.Drain(userID), false)
	orphaned := p.processMutations(ctx, rest, &manifest)

	p.metrics.SetOrphaned(orphaned)
	p.queue.PurgeTerminal(ctx)

	finished := p.queue.clock.Now()
	p.metrics.CycleFinished(finished, finished.Sub(started))

	p.logger.Info().
		Str("func", "BatchProcessor.ProcessPending").
		Int("created", len(manifest.CreatedItems)).
		Int("updated", len(manifest.UpdatedItems)).
		Int("deleted", len(manifest.DeletedItems)).
		Int("orphaned", orphaned).
		Msg("processing cycle finished")
	return manifest, nil
}

func filterKind(ops []models.Operation, creates bool) []models.Operation {
	out := make([]models.Operation, 0, len(ops))
	for _, op := range ops {
		if (op.Kind == models.OpCreate) == creates {
			out = append(out, op)
		}
	}
	return out
}

func (p *BatchProcessor) processCreates(ctx context.Context, ops []models.Operation, manifest *models.SyncManifest) {
	for _, batch := range chunk(ops, p.batchSize) {
		wire := make([]models.BatchOperation, len(batch))
		for i, op := range batch {
			// The store assigns the real identifier; the placeholder never
			// goes over the wire inside the record body.
			payload := p.rewriter.Rewrite(op.Payload.WithoutField(fieldID), p.tempIDs)
			wire[i] = models.BatchOperation{
				Collection: op.Collection,
				Action:     models.ActionCreate,
				Payload:    payload,
			}
		}

		results, err := p.remote.SubmitBatch(ctx, wire)
		if err != nil {
			p.failBatch(ctx, batch, err)
			continue
		}

		for i, res := range results {
			op := batch[i]
			if !res.OK {
				p.applyRetryPolicy(ctx, op, fmt.Errorf("%w: %s", adapter.ErrRejected, res.Error))
				continue
			}

			p.tempIDs.Record(ctx, op.TempID, res.ID)
			p.queue.PropagateResolved(ctx, op.TempID, res.ID)
			if err := p.queue.MarkCompleted(ctx, op.OpID); err != nil {
				p.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("cannot complete create")
			}
			p.metrics.OperationCompleted()

			manifest.CreatedItems = append(manifest.CreatedItems, models.CreatedItem{
				Collection: op.Collection,
				TempID:     op.TempID,
				RealID:     res.ID,
				Record:     res.Record,
			})
		}
	}
}

// processMutations submits updates and deletes, returning how many were
// deferred because their target never resolved.
func (p *BatchProcessor) processMutations(ctx context.Context, ops []models.Operation, manifest *models.SyncManifest) int {
	ready := make([]models.Operation, 0, len(ops))
	orphaned := 0
	for _, op := range ops {
		target, ok := p.tempIDs.Resolve(op.TargetID)
		if !ok {
			orphaned++
			p.logger.Debug().
				Str("op_id", op.OpID).
				Str("target_id", op.TargetID).
				Msg("target unresolved, deferring operation")
			continue
		}
		op.TargetID = target
		op.Payload = p.rewriter.Rewrite(op.Payload, p.tempIDs)
		ready = append(ready, op)
	}

	for _, batch := range chunk(ready, p.batchSize) {
		wire := make([]models.BatchOperation, len(batch))
		for i, op := range batch {
			wire[i] = models.BatchOperation{
				Collection: op.Collection,
				Action:     wireAction(op.Kind),
				ID:         op.TargetID,
				Payload:    op.Payload,
			}
		}

		results, err := p.remote.SubmitBatch(ctx, wire)
		if err != nil {
			p.failBatch(ctx, batch, err)
			continue
		}

		for i, res := range results {
			op := batch[i]
			if !res.OK {
				p.applyRetryPolicy(ctx, op, fmt.Errorf("%w: %s", adapter.ErrRejected, res.Error))
				continue
			}

			if err := p.queue.MarkCompleted(ctx, op.OpID); err != nil {
				p.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("cannot complete operation")
			}
			p.metrics.OperationCompleted()

			switch op.Kind {
			case models.OpUpdate:
				patch := op.Payload
				if res.Record.Kind() == models.KindMap {
					patch = res.Record
				}
				manifest.UpdatedItems = append(manifest.UpdatedItems, models.UpdatedItem{
					Collection: op.Collection,
					ID:         op.TargetID,
					Patch:      patch,
				})
			case models.OpDelete:
				manifest.DeletedItems = append(manifest.DeletedItems, models.DeletedItem{
					Collection: op.Collection,
					ID:         op.TargetID,
				})
			}
		}
	}
	return orphaned
}

// failBatch applies the retry policy to every operation of a batch whose
// submission failed as a whole.
func (p *BatchProcessor) failBatch(ctx context.Context, batch []models.Operation, cause error) {
	p.logger.Warn().
		Err(cause).
		Str("func", "BatchProcessor.failBatch").
		Int("batch_size", len(batch)).
		Msg("batch submission failed")
	for _, op := range batch {
		p.applyRetryPolicy(ctx, op, cause)
	}
}

// applyRetryPolicy bumps the attempt counter and either parks the operation
// with exponential backoff or, once attempts are exhausted, fails it for good.
func (p *BatchProcessor) applyRetryPolicy(ctx context.Context, op models.Operation, cause error) {
	p.metrics.RecordError(cause)

	n, err := p.queue.IncrementRetry(ctx, op.OpID)
	if err != nil {
		p.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("cannot increment retry count")
		return
	}

	if n >= p.maxRetries {
		if err := p.queue.MarkFailed(ctx, op.OpID); err != nil {
			p.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("cannot fail operation")
			return
		}
		p.metrics.OperationFailed()
		p.logger.Error().
			Err(cause).
			Str("op_id", op.OpID).
			Str("collection", op.Collection).
			Str("target_id", op.TargetID).
			Int("attempts", n).
			Msg("operation exhausted its retries")
		return
	}

	delay := p.backoff.Delay(n - 1)
	if err := p.queue.MarkRetrying(ctx, op.OpID, delay); err != nil {
		p.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("cannot park operation for retry")
		return
	}
	p.metrics.OperationRetried()
}

func wireAction(kind models.OperationKind) models.BatchAction {
	switch kind {
	case models.OpCreate:
		return models.ActionCreate
	case models.OpUpdate:
		return models.ActionUpdate
	default:
		return models.ActionDelete
	}
}

func chunk(ops []models.Operation, size int) [][]models.Operation {
	if len(ops) == 0 {
		return nil
	}
	out := make([][]models.Operation, 0, (len(ops)+size-1)/size)
	for start := 0; start < len(ops); start += size {
		end := start + size
		if end > len(ops) {
			end = len(ops)
		}
		out = append(out, ops[start:end])
	}
	return out
}
