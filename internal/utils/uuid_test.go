package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDGenerator_Generate(t *testing.T) {
	g := NewUUIDGenerator()

	a := g.Generate()
	b := g.Generate()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestUUIDGenerator_Suffix(t *testing.T) {
	g := NewUUIDGenerator()

	s := g.Suffix()

	assert.Len(t, s, 12, "last uuid segment only")
	assert.NotContains(t, s, "-")
	assert.NotEqual(t, s, g.Suffix())
}
