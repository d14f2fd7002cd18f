package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/models"
)

type queueFixture struct {
	queue     *OperationQueue
	kv        store.KeyValue
	clock     *fakeClock
	scheduler *fakeScheduler
	scheme    *TempIDScheme
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()

	kv := store.NewMemoryKeyValue()
	clock := newFakeClock()
	scheduler := newFakeScheduler()
	scheme := NewTempIDScheme(kv, clock, logger.Nop())
	meta := QueueMeta{TenantID: "finca-7", SchemaVersion: "12"}

	return &queueFixture{
		queue:     NewOperationQueue(kv, scheme, clock, scheduler, meta, logger.Nop()),
		kv:        kv,
		clock:     clock,
		scheduler: scheduler,
		scheme:    scheme,
	}
}

func (f *queueFixture) enqueue(t *testing.T, kind models.OperationKind, collection, target string, payload models.Value) models.Operation {
	t.Helper()

	op, err := f.queue.Enqueue(context.Background(), EnqueueRequest{
		Kind:       kind,
		Collection: collection,
		TargetID:   target,
		Payload:    payload,
		UserID:     "user-1",
	})
	require.NoError(t, err)
	return op
}

func TestOperationQueue_EnqueueCreateIssuesTempID(t *testing.T) {
	f := newQueueFixture(t)

	op := f.enqueue(t, models.OpCreate, "actividades", "", models.Map(map[string]models.Value{
		"nombre": models.String("riego"),
	}))

	assert.True(t, models.IsTempID(op.TargetID))
	assert.Equal(t, op.TempID.String(), op.TargetID)
	assert.Equal(t, models.StatusPending, op.Status)

	id, ok := op.Payload.Field("id")
	require.True(t, ok, "temp id must be injected into the payload")
	assert.Equal(t, op.TempID.String(), id.StringVal())
}

func TestOperationQueue_EnqueueEnrichesPayload(t *testing.T) {
	f := newQueueFixture(t)

	op := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(map[string]models.Value{
		"nombre": models.String("lote norte"),
	}))

	tenant, _ := op.Payload.Field("tenant_id")
	schema, _ := op.Payload.Field("schema_version")
	user, _ := op.Payload.Field("user_id")
	assert.Equal(t, "finca-7", tenant.StringVal())
	assert.Equal(t, "12", schema.StringVal())
	assert.Equal(t, "user-1", user.StringVal())
}

func TestOperationQueue_EnqueueRejectsInvalid(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, EnqueueRequest{Kind: "upsert", Collection: "zonas"})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = f.queue.Enqueue(ctx, EnqueueRequest{Kind: models.OpCreate, Collection: ""})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = f.queue.Enqueue(ctx, EnqueueRequest{Kind: models.OpDelete, Collection: "zonas"})
	assert.ErrorIs(t, err, ErrInvalidOperation, "delete needs a target")
}

func TestOperationQueue_DrainOrdersByEnqueueTime(t *testing.T) {
	f := newQueueFixture(t)

	first := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	f.clock.Advance(time.Second)
	second := f.enqueue(t, models.OpCreate, "actividades", "", models.Map(nil))
	f.clock.Advance(time.Second)
	third := f.enqueue(t, models.OpDelete, "zonas", "zona-2", models.Map(nil))

	drained := f.queue.Drain("user-1")
	require.Len(t, drained, 3)
	assert.Equal(t, first.OpID, drained[0].OpID)
	assert.Equal(t, second.OpID, drained[1].OpID)
	assert.Equal(t, third.OpID, drained[2].OpID)
}

func TestOperationQueue_DrainSkipsOtherUsersAndTerminal(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	mine := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	done := f.enqueue(t, models.OpUpdate, "zonas", "zona-2", models.Map(nil))
	require.NoError(t, f.queue.MarkCompleted(ctx, done.OpID))

	other, err := f.queue.Enqueue(ctx, EnqueueRequest{
		Kind: models.OpUpdate, Collection: "zonas", TargetID: "zona-3",
		Payload: models.Map(nil), UserID: "user-2",
	})
	require.NoError(t, err)

	drained := f.queue.Drain("user-1")
	require.Len(t, drained, 1)
	assert.Equal(t, mine.OpID, drained[0].OpID)
	assert.NotEqual(t, other.OpID, drained[0].OpID)
}

func TestOperationQueue_SessionlessDrainCoversOwnerlessOnly(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	owned := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	f.clock.Advance(time.Second)

	ownerless, err := f.queue.Enqueue(ctx, EnqueueRequest{
		Kind: models.OpUpdate, Collection: "zonas", TargetID: "zona-2",
		Payload: models.Map(nil),
	})
	require.NoError(t, err)

	drained := f.queue.Drain("")
	require.Len(t, drained, 1, "owned operations wait for their session")
	assert.Equal(t, ownerless.OpID, drained[0].OpID)

	drained = f.queue.Drain("user-1")
	require.Len(t, drained, 2, "a session drains its own and ownerless operations")
	assert.Equal(t, owned.OpID, drained[0].OpID)
}

func TestOperationQueue_SurvivesRestart(t *testing.T) {
	f := newQueueFixture(t)

	op := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	require.NoError(t, f.queue.MarkRetrying(context.Background(), op.OpID, time.Minute))

	reloaded := NewOperationQueue(f.kv, f.scheme, f.clock, newFakeScheduler(), QueueMeta{}, logger.Nop())

	drained := reloaded.Drain("user-1")
	require.Len(t, drained, 1)
	assert.Equal(t, op.OpID, drained[0].OpID)
	assert.Equal(t, models.StatusPending, drained[0].Status, "retrying resets to pending on load")
}

func TestOperationQueue_RetryingParkedUntilTimerFires(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	op := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	require.NoError(t, f.queue.MarkRetrying(ctx, op.OpID, 5*time.Second))

	assert.Empty(t, f.queue.Drain("user-1"), "retrying operations stay parked")
	assert.Equal(t, []time.Duration{5 * time.Second}, f.scheduler.PendingDelays())

	f.scheduler.FireAll()

	drained := f.queue.Drain("user-1")
	require.Len(t, drained, 1)
	assert.Equal(t, models.StatusPending, drained[0].Status)
}

func TestOperationQueue_TerminalCancelsRetryTimer(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	op := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	require.NoError(t, f.queue.MarkRetrying(ctx, op.OpID, 5*time.Second))
	require.NoError(t, f.queue.MarkFailed(ctx, op.OpID))

	f.scheduler.FireAll()

	got, ok := f.queue.Get(op.OpID)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, got.Status, "late timer must not resurrect a terminal operation")
}

func TestOperationQueue_IncrementRetry(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	op := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))

	n, err := f.queue.IncrementRetry(ctx, op.OpID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.queue.IncrementRetry(ctx, op.OpID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.queue.IncrementRetry(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestOperationQueue_PurgeTerminal(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	keep := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	done := f.enqueue(t, models.OpUpdate, "zonas", "zona-2", models.Map(nil))
	dead := f.enqueue(t, models.OpUpdate, "zonas", "zona-3", models.Map(nil))
	require.NoError(t, f.queue.MarkCompleted(ctx, done.OpID))
	require.NoError(t, f.queue.MarkFailed(ctx, dead.OpID))

	assert.Equal(t, 2, f.queue.PurgeTerminal(ctx))

	drained := f.queue.Drain("user-1")
	require.Len(t, drained, 1)
	assert.Equal(t, keep.OpID, drained[0].OpID)
}

func TestOperationQueue_DeduplicateKeepsLatest(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(map[string]models.Value{
		"nombre": models.String("stale"),
	}))
	f.clock.Advance(time.Second)
	latest := f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(map[string]models.Value{
		"nombre": models.String("fresh"),
	}))
	f.enqueue(t, models.OpUpdate, "zonas", "zona-2", models.Map(nil))

	assert.Equal(t, 1, f.queue.Deduplicate(ctx))

	drained := f.queue.Drain("user-1")
	require.Len(t, drained, 2)
	for _, op := range drained {
		if op.TargetID == "zona-1" {
			assert.Equal(t, latest.OpID, op.OpID)
			nombre, _ := op.Payload.Field("nombre")
			assert.Equal(t, "fresh", nombre.StringVal())
		}
	}
}

func TestOperationQueue_PropagateResolved(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	create := f.enqueue(t, models.OpCreate, "siembras", "", models.Map(map[string]models.Value{
		"cultivo": models.String("maiz"),
	}))
	update := f.enqueue(t, models.OpUpdate, "siembras", create.TempID.String(), models.Map(map[string]models.Value{
		"estado": models.String("activa"),
	}))
	activity := f.enqueue(t, models.OpCreate, "actividades", "", models.Map(map[string]models.Value{
		"siembra": models.String(create.TempID.String()),
	}))

	touched := f.queue.PropagateResolved(ctx, create.TempID, "siembra-9")
	assert.Equal(t, 2, touched)

	got, _ := f.queue.Get(update.OpID)
	assert.Equal(t, "siembra-9", got.TargetID)

	got, _ = f.queue.Get(activity.OpID)
	ref, _ := got.Payload.Field("siembra")
	assert.Equal(t, "siembra-9", ref.StringVal())
	assert.True(t, models.IsTempID(got.TargetID), "the create's own target stays temporary")
}

func TestOperationQueue_Stats(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	f.enqueue(t, models.OpCreate, "zonas", "", models.Map(nil))
	f.enqueue(t, models.OpUpdate, "zonas", "zona-1", models.Map(nil))
	parked := f.enqueue(t, models.OpUpdate, "zonas", "zona-2", models.Map(nil))
	done := f.enqueue(t, models.OpDelete, "zonas", "zona-3", models.Map(nil))
	require.NoError(t, f.queue.MarkRetrying(ctx, parked.OpID, time.Minute))
	require.NoError(t, f.queue.MarkCompleted(ctx, done.OpID))

	stats := f.queue.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Retrying)
	assert.Equal(t, 1, stats.ByKind[models.OpCreate])
	assert.Equal(t, 2, stats.ByKind[models.OpUpdate])
	assert.Zero(t, stats.ByKind[models.OpDelete])
}
