package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTempID(t *testing.T) {
	id, err := ParseTempID("temp_1756600000000_a1b2c3")
	require.NoError(t, err)

	issued, err := id.IssuedAt()
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1756600000000), issued)
}

func TestParseTempID_Invalid(t *testing.T) {
	for _, raw := range []string{"", "zona42", "temp_", "temp_abc_def", "tmp_123_x"} {
		_, err := ParseTempID(raw)
		assert.ErrorIs(t, err, ErrNotTempID, "input %q", raw)
	}
}

func TestIsTempID(t *testing.T) {
	assert.True(t, IsTempID("temp_1756600000000_a1b2c3"))
	assert.False(t, IsTempID("rec_901"))
}
