// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service implements the offline synchronization engine: the pending-
// operation queue, batched replay against the remote record store, temporary-
// identifier resolution, retry backoff, change-history tracking and conflict
// resolution, all fronted by the [Coordinator] façade.
package service

import (
	"context"
	"time"

	"github.com/MKhiriev/farm-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// CacheAdapter is implemented by the per-collection in-memory data caches of
// the application. The coordinator notifies adapters after every processing
// cycle so cached records reflect resolved identifiers. Callbacks must be
// idempotent: an adapter may be invoked with already-applied state.
type CacheAdapter interface {
	// Collection names the record set this adapter caches.
	Collection() string

	// ReferenceFields declares which payload fields of this collection hold
	// identifier references, and which collection each points to. The
	// registry replaces any runtime introspection of cache internals.
	ReferenceFields() map[string]string

	// InitFromLocalStorage hydrates the cache on cold start.
	InitFromLocalStorage(ctx context.Context) error

	// ApplySyncedCreate replaces the optimistic local copy stored under
	// tempID with the authoritative record the remote store returned.
	ApplySyncedCreate(ctx context.Context, tempID models.TempID, record models.Value) error

	// ApplySyncedUpdate applies a confirmed patch to the cached record.
	ApplySyncedUpdate(ctx context.Context, id string, patch models.Value) error

	// ApplySyncedDelete drops the cached record.
	ApplySyncedDelete(ctx context.Context, id string) error
}

// Clock abstracts wall-clock time so queue ordering and pruning can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a [Clock] backed by time.Now.
func NewRealClock() Clock { return realClock{} }

// Scheduler defers a callback. Deferred retry transitions go through it
// instead of raw timers so tests can fire them manually.
type Scheduler interface {
	// After runs fn once d has elapsed. The returned cancel func stops the
	// pending run; calling it after fn ran is a no-op.
	After(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// NewTimerScheduler returns a [Scheduler] backed by time.AfterFunc.
func NewTimerScheduler() Scheduler { return timerScheduler{} }

// Resolver maps temporary identifiers to real ones. Implemented by
// [TempIDScheme]; the reference rewriter depends only on this narrow view.
type Resolver interface {
	// Resolve returns id unchanged for real identifiers. For temporary
	// identifiers it returns the mapped real identifier, or ok=false when
	// no mapping exists yet. It never fabricates a mapping.
	Resolve(id string) (resolved string, ok bool)
}
