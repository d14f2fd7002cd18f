package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_RoundTripJSON(t *testing.T) {
	v := Map(map[string]Value{
		"nombre":   String("Lote 1"),
		"hectares": Number(12.5),
		"active":   Bool(true),
		"parent":   Null(),
		"tags":     List(String("a"), String("b")),
		"geo": Map(map[string]Value{
			"lat": Number(-34.6),
			"lon": Number(-58.4),
		}),
	})

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, v.Equal(back), "round-tripped value differs: %s vs %s", v, back)
}

func TestValue_CloneIsDeep(t *testing.T) {
	inner := map[string]Value{"field": String("before")}
	v := Map(map[string]Value{"nested": Map(inner)})

	clone := v.Clone()
	inner["field"] = String("after")

	nested, ok := clone.Field("nested")
	require.True(t, ok)
	f, ok := nested.Field("field")
	require.True(t, ok)
	assert.Equal(t, "before", f.StringVal())
}

func TestValue_WithFieldDoesNotMutate(t *testing.T) {
	v := Map(map[string]Value{"a": Number(1)})
	v2 := v.WithField("b", Number(2))

	_, ok := v.Field("b")
	assert.False(t, ok)
	b, ok := v2.Field("b")
	require.True(t, ok)
	assert.Equal(t, float64(2), b.NumberVal())
}

func TestValue_WithoutField(t *testing.T) {
	v := Map(map[string]Value{"a": Number(1), "b": Number(2)})
	v2 := v.WithoutField("b")

	_, ok := v2.Field("b")
	assert.False(t, ok)
	_, ok = v.Field("b")
	assert.True(t, ok, "original must keep the field")
}

func TestFromAny_NormalisesNumbers(t *testing.T) {
	v, err := FromAny(map[string]any{"n": int64(7)})
	require.NoError(t, err)

	n, ok := v.Field("n")
	require.True(t, ok)
	assert.Equal(t, KindNumber, n.Kind())
	assert.Equal(t, float64(7), n.NumberVal())
}

func TestFromAny_RejectsUnsupported(t *testing.T) {
	_, err := FromAny(struct{ X int }{1})
	assert.Error(t, err)
}

func TestValue_Equal(t *testing.T) {
	a := List(String("x"), Number(1))
	b := List(String("x"), Number(1))
	c := List(String("x"), Number(2))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Null()))
	assert.True(t, Null().Equal(Value{}), "zero value is null")
}
