package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/models"
)

type conflictFixture struct {
	resolver *ConflictResolver
	history  *ChangeHistory
	kv       store.KeyValue
	clock    *fakeClock
}

func newConflictFixture(t *testing.T) *conflictFixture {
	t.Helper()

	kv := store.NewMemoryKeyValue()
	clock := newFakeClock()
	history := NewChangeHistory(kv, clock, 10, logger.Nop())
	return &conflictFixture{
		resolver: NewConflictResolver(kv, history, clock, logger.Nop()),
		history:  history,
		kv:       kv,
		clock:    clock,
	}
}

func TestConflictResolver_AutoMergeOverlaysLocalChanges(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	f.history.RecordChange(ctx, updateRecord("zona-1", map[string]models.Value{
		"nombre": models.String("lote norte"),
	}))

	local := models.Map(map[string]models.Value{
		"id":     models.String("zona-1"),
		"nombre": models.String("lote norte"),
		"area":   models.Number(10),
	})
	remote := models.Map(map[string]models.Value{
		"id":     models.String("zona-1"),
		"nombre": models.String("lote viejo"),
		"area":   models.Number(12),
	})

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)

	assert.Equal(t, models.StrategyAutoMerge, record.Strategy)
	nombre, _ := record.Resolution.Field("nombre")
	assert.Equal(t, "lote norte", nombre.StringVal(), "locally changed field wins")
	area, _ := record.Resolution.Field("area")
	assert.Equal(t, float64(12), area.NumberVal(), "untouched field follows remote")
}

func updateRecordDiff(entityID string, oldFields, newFields map[string]models.Value) models.ChangeRecord {
	return models.ChangeRecord{
		EntityID:   entityID,
		Collection: "zonas",
		Operation:  models.OpUpdate,
		OldData:    models.Map(oldFields),
		NewData:    models.Map(newFields),
	}
}

func TestConflictResolver_UnchangedFieldsFollowRemote(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	f.history.RecordChange(ctx, updateRecordDiff("zona-1",
		map[string]models.Value{
			"nombre":   models.String("lote viejo"),
			"cantidad": models.Number(5),
		},
		map[string]models.Value{
			"nombre":   models.String("lote norte"),
			"cantidad": models.Number(5),
		},
	))

	local := models.Map(map[string]models.Value{
		"nombre":   models.String("lote norte"),
		"cantidad": models.Number(5),
	})
	remote := models.Map(map[string]models.Value{
		"nombre":   models.String("lote viejo"),
		"cantidad": models.Number(9),
	})

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)

	require.Equal(t, models.StrategyAutoMerge, record.Strategy)
	nombre, _ := record.Resolution.Field("nombre")
	assert.Equal(t, "lote norte", nombre.StringVal())
	cantidad, _ := record.Resolution.Field("cantidad")
	assert.Equal(t, float64(9), cantidad.NumberVal(), "a field carried over unchanged follows the remote copy")
}

func TestConflictResolver_TypeDisagreementSkipsOnlyThatField(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	f.history.RecordChange(ctx, updateRecord("zona-1", map[string]models.Value{
		"area":   models.String("ten"),
		"nombre": models.String("lote norte"),
	}))

	local := models.Map(map[string]models.Value{
		"area":   models.String("ten"),
		"nombre": models.String("lote norte"),
	})
	remote := models.Map(map[string]models.Value{
		"area":   models.Number(12),
		"nombre": models.String("lote viejo"),
	})

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)

	require.Equal(t, models.StrategyAutoMerge, record.Strategy)
	area, _ := record.Resolution.Field("area")
	assert.Equal(t, float64(12), area.NumberVal(), "mismatched field keeps the remote value")
	nombre, _ := record.Resolution.Field("nombre")
	assert.Equal(t, "lote norte", nombre.StringVal(), "the rest of the overlay still applies")
}

func TestConflictResolver_OverlayExaminesNewestFiveUpdates(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	for i := 0; i < conflictUpdateDepth+1; i++ {
		f.history.RecordChange(ctx, updateRecord("zona-1", map[string]models.Value{
			fmt.Sprintf("campo_%d", i): models.String("local"),
		}))
		f.clock.Advance(time.Second)
	}

	remoteFields := make(map[string]models.Value)
	for i := 0; i < conflictUpdateDepth+1; i++ {
		remoteFields[fmt.Sprintf("campo_%d", i)] = models.String("remote")
	}
	remote := models.Map(remoteFields)

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", models.Map(nil), remote)

	require.Equal(t, models.StrategyAutoMerge, record.Strategy)
	oldest, _ := record.Resolution.Field("campo_0")
	assert.Equal(t, "remote", oldest.StringVal(), "updates beyond the newest five are not mined")
	newest, _ := record.Resolution.Field(fmt.Sprintf("campo_%d", conflictUpdateDepth))
	assert.Equal(t, "local", newest.StringVal())
}

func TestConflictResolver_CriticalFieldsFollowRemote(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	f.history.RecordChange(ctx, updateRecord("zona-1", map[string]models.Value{
		"id":     models.String("zona-hacked"),
		"nombre": models.String("lote norte"),
	}))

	local := models.Map(map[string]models.Value{"id": models.String("zona-hacked")})
	remote := models.Map(map[string]models.Value{"id": models.String("zona-1")})

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)

	require.Equal(t, models.StrategyAutoMerge, record.Strategy)
	id, _ := record.Resolution.Field("id")
	assert.Equal(t, "zona-1", id.StringVal(), "identity never merges from local")
}

func TestConflictResolver_NoLocalHistoryFallsBackToLatestWins(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	local := models.Map(map[string]models.Value{
		"nombre":     models.String("local"),
		"updated_at": models.String("2026-08-02T10:00:00Z"),
	})
	remote := models.Map(map[string]models.Value{
		"nombre":     models.String("remote"),
		"updated_at": models.String("2026-08-01T10:00:00Z"),
	})

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)

	assert.Equal(t, models.StrategyLatestWins, record.Strategy)
	assert.True(t, record.Resolution.Equal(local), "newer copy wins")
}

func TestConflictResolver_TypeDisagreementFallsBackToLatestWins(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	f.history.RecordChange(ctx, updateRecord("zona-1", map[string]models.Value{
		"area": models.String("ten"),
	}))

	local := models.Map(map[string]models.Value{"area": models.String("ten")})
	remote := models.Map(map[string]models.Value{
		"area":       models.Number(12),
		"updated_at": models.String("2026-08-03T10:00:00Z"),
	})

	record := f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)

	assert.Equal(t, models.StrategyLatestWins, record.Strategy)
	assert.True(t, record.Resolution.Equal(remote))
}

func TestConflictResolver_UnreadableTimestampsFavourRemote(t *testing.T) {
	f := newConflictFixture(t)

	local := models.Map(map[string]models.Value{"nombre": models.String("local")})
	remote := models.Map(map[string]models.Value{"nombre": models.String("remote")})

	record := f.resolver.Resolve(context.Background(), "zonas", "zona-1", local, remote)

	assert.Equal(t, models.StrategyLatestWins, record.Strategy)
	assert.True(t, record.Resolution.Equal(remote), "authoritative source wins ties")
}

func TestConflictResolver_ShapeMismatchGoesManual(t *testing.T) {
	f := newConflictFixture(t)

	local := models.List(models.String("a"))
	remote := models.Map(map[string]models.Value{"nombre": models.String("remote")})

	record := f.resolver.Resolve(context.Background(), "zonas", "zona-1", local, remote)

	assert.Equal(t, models.StrategyManual, record.Strategy)
	assert.True(t, record.Resolution.Equal(remote))
}

func TestConflictResolver_LogPersistsAndIsBounded(t *testing.T) {
	f := newConflictFixture(t)
	ctx := context.Background()

	local := models.Map(map[string]models.Value{"n": models.Number(1)})
	remote := models.Map(map[string]models.Value{"n": models.Number(2)})

	for i := 0; i < conflictLogLimit+5; i++ {
		f.resolver.Resolve(ctx, "zonas", "zona-1", local, remote)
		f.clock.Advance(time.Second)
	}

	logged := f.resolver.Log(0)
	assert.Len(t, logged, conflictLogLimit)
	assert.True(t, logged[0].ResolvedAt.After(logged[1].ResolvedAt), "newest first")

	reloaded := NewConflictResolver(f.kv, f.history, f.clock, logger.Nop())
	assert.Len(t, reloaded.Log(0), conflictLogLimit)
}

func TestConflictResolver_NumericTimestampsCompared(t *testing.T) {
	f := newConflictFixture(t)

	local := models.Map(map[string]models.Value{
		"nombre":     models.String("local"),
		"updated_at": models.Number(1_756_700_000_000),
	})
	remote := models.Map(map[string]models.Value{
		"nombre":     models.String("remote"),
		"updated_at": models.Number(1_756_600_000_000),
	})

	record := f.resolver.Resolve(context.Background(), "zonas", "zona-1", local, remote)
	assert.True(t, record.Resolution.Equal(local))
}
