package utils

import (
	"strings"

	"github.com/google/uuid"
)

// UUIDGenerator issues identifiers for queue entries and temporary record id
// suffixes.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a v7 uuid; the timestamp prefix keeps identifiers roughly
// sortable by issue time. Falls back to v4 when the clock source fails.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// Suffix returns only the final segment of a fresh uuid: enough entropy for
// a temporary-identifier tail without the full 36 characters.
func (g *UUIDGenerator) Suffix() string {
	id := g.Generate()
	if i := strings.LastIndex(id, "-"); i >= 0 {
		return id[i+1:]
	}
	return id
}
