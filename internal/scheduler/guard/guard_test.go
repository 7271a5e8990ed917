package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cutoff, err := Cutoff(now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), cutoff)

	_, err = Cutoff(now, 0)
	assert.ErrorIs(t, err, ErrRetentionDisabled)

	_, err = Cutoff(time.Time{}, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestSessionCutoffHasFloor(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cutoff, err := SessionCutoff(now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-MinSessionRetention), cutoff)
}
