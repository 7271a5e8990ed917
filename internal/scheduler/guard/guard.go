// Package guard holds the retention rules the maintenance jobs apply before deleting rows.
package guard

import (
	"errors"
	"time"
)

var (
	ErrRetentionDisabled = errors.New("retention_disabled")
	ErrInvalidClock      = errors.New("invalid_clock")
)

// MinSessionRetention keeps recently expired sessions around long enough to explain a 401.
const MinSessionRetention = time.Hour

// Cutoff returns the instant before which rows may be purged.
func Cutoff(now time.Time, retention time.Duration) (time.Time, error) {
	if now.IsZero() {
		return time.Time{}, ErrInvalidClock
	}
	if retention <= 0 {
		return time.Time{}, ErrRetentionDisabled
	}
	return now.Add(-retention).UTC(), nil
}

// SessionCutoff is Cutoff with the retention raised to MinSessionRetention.
func SessionCutoff(now time.Time, retention time.Duration) (time.Time, error) {
	if retention < MinSessionRetention {
		retention = MinSessionRetention
	}
	return Cutoff(now, retention)
}
