package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/farm-sync/models"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(id string) (string, bool) {
	if !models.IsTempID(id) {
		return id, true
	}
	real, ok := m[id]
	return real, ok
}

func TestReferenceRewriter_RewritesNestedReferences(t *testing.T) {
	r := NewReferenceRewriter()
	resolver := mapResolver{"temp_1756600000000_aaa": "siembra-9"}

	payload := models.Map(map[string]models.Value{
		"siembra": models.String("temp_1756600000000_aaa"),
		"detalle": models.Map(map[string]models.Value{
			"parent": models.String("temp_1756600000000_aaa"),
		}),
		"relacionados": models.List(
			models.String("temp_1756600000000_aaa"),
			models.String("act-1"),
			models.Number(3),
		),
	})

	got := r.Rewrite(payload, resolver)

	siembra, _ := got.Field("siembra")
	assert.Equal(t, "siembra-9", siembra.StringVal())

	detalle, _ := got.Field("detalle")
	parent, _ := detalle.Field("parent")
	assert.Equal(t, "siembra-9", parent.StringVal())

	rel, _ := got.Field("relacionados")
	require.Len(t, rel.ListVal(), 3)
	assert.Equal(t, "siembra-9", rel.ListVal()[0].StringVal())
	assert.Equal(t, "act-1", rel.ListVal()[1].StringVal())
	assert.Equal(t, float64(3), rel.ListVal()[2].NumberVal())
}

func TestReferenceRewriter_LeavesUnresolvedUntouched(t *testing.T) {
	r := NewReferenceRewriter()

	payload := models.Map(map[string]models.Value{
		"zona": models.String("temp_1756600000000_zzz"),
	})

	got := r.Rewrite(payload, mapResolver{})

	zona, _ := got.Field("zona")
	assert.Equal(t, "temp_1756600000000_zzz", zona.StringVal(), "unresolved reference must survive as-is")
}

func TestReferenceRewriter_Idempotent(t *testing.T) {
	r := NewReferenceRewriter()
	resolver := mapResolver{
		"temp_1756600000000_aaa": "zona-1",
		"temp_1756600000001_bbb": "zona-2",
	}

	payload := models.Map(map[string]models.Value{
		"a":     models.String("temp_1756600000000_aaa"),
		"b":     models.String("temp_1756600000001_bbb"),
		"c":     models.String("temp_1756600000002_ccc"), // unresolvable
		"plain": models.String("zona-0"),
		"list":  models.List(models.String("temp_1756600000000_aaa")),
	})

	once := r.Rewrite(payload, resolver)
	twice := r.Rewrite(once, resolver)

	assert.True(t, once.Equal(twice), "rewrite must be idempotent")
}

func TestReferenceRewriter_DoesNotMutateInput(t *testing.T) {
	r := NewReferenceRewriter()
	resolver := mapResolver{"temp_1756600000000_aaa": "zona-1"}

	payload := models.Map(map[string]models.Value{
		"zona": models.String("temp_1756600000000_aaa"),
	})

	_ = r.Rewrite(payload, resolver)

	zona, _ := payload.Field("zona")
	assert.Equal(t, "temp_1756600000000_aaa", zona.StringVal(), "input must not change")
}

func TestReferenceRewriter_KeysNeverRewritten(t *testing.T) {
	r := NewReferenceRewriter()
	resolver := mapResolver{"temp_1756600000000_aaa": "zona-1"}

	payload := models.Map(map[string]models.Value{
		"temp_1756600000000_aaa": models.String("temp_1756600000000_aaa"),
	})

	got := r.Rewrite(payload, resolver)

	_, ok := got.Field("temp_1756600000000_aaa")
	assert.True(t, ok, "keys must stay untouched")
	v, _ := got.Field("temp_1756600000000_aaa")
	assert.Equal(t, "zona-1", v.StringVal())
}

func TestReferenceRewriter_RewriteOneTargetsSingleID(t *testing.T) {
	r := NewReferenceRewriter()

	payload := models.Map(map[string]models.Value{
		"a": models.String("temp_1756600000000_aaa"),
		"b": models.String("temp_1756600000001_bbb"),
	})

	got := r.RewriteOne(payload, models.TempID("temp_1756600000000_aaa"), "zona-1")

	a, _ := got.Field("a")
	b, _ := got.Field("b")
	assert.Equal(t, "zona-1", a.StringVal())
	assert.Equal(t, "temp_1756600000001_bbb", b.StringVal(), "other temp ids untouched")
}

func TestReferenceRewriter_ScalarsPassThrough(t *testing.T) {
	r := NewReferenceRewriter()

	for _, v := range []models.Value{
		models.Null(),
		models.Bool(true),
		models.Number(12.5),
		models.String("zona-1"),
	} {
		assert.True(t, v.Equal(r.Rewrite(v, mapResolver{})), "value %s", v)
	}
}
