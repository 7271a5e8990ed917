package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(fc *clock.FakeClock) *AuthLimiter {
	return NewAuthLimiter(Params{
		Cfg: config.Config{RateLimit: config.RateLimitConfig{
			LoginRate:   0.5,
			LoginBurst:  2,
			ForgotRate:  0,
			ForgotBurst: 0,
		}},
		Log:   zap.NewNop(),
		Clock: fc,
	})
}

func TestAuthLimiterFallbackWindow(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newTestLimiter(fc)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, ScopeLogin, "10.0.0.1").Allowed)
	assert.True(t, l.Allow(ctx, ScopeLogin, "10.0.0.1").Allowed)

	denied := l.Allow(ctx, ScopeLogin, "10.0.0.1")
	require.False(t, denied.Allowed)
	assert.Equal(t, 4*time.Second, denied.RetryAfter)

	// other clients have their own window
	assert.True(t, l.Allow(ctx, ScopeLogin, "10.0.0.2").Allowed)

	fc.Advance(4 * time.Second)
	assert.True(t, l.Allow(ctx, ScopeLogin, "10.0.0.1").Allowed)
}

func TestAuthLimiterDisabledScope(t *testing.T) {
	l := newTestLimiter(clock.NewFakeClock(time.Now()))
	for i := 0; i < 10; i++ {
		require.True(t, l.Allow(context.Background(), ScopeForgot, "10.0.0.1").Allowed)
	}
}

func TestRedisWindowNilClient(t *testing.T) {
	var w *RedisWindow
	res, err := w.Allow(context.Background(), "k", 1, 1)
	require.Error(t, err)
	assert.False(t, res.Allowed)
	assert.Nil(t, NewRedisWindow(nil, nil))
}

func TestWindowResult(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := windowResult(now, 1, 4*time.Second, 2)
	assert.True(t, ok.Allowed)
	assert.Equal(t, 1, ok.Remaining)
	assert.Equal(t, now.Add(4*time.Second), ok.ResetTime)
	assert.Zero(t, ok.RetryAfter)

	denied := windowResult(now, 3, 1500*time.Millisecond, 2)
	assert.False(t, denied.Allowed)
	assert.Zero(t, denied.Remaining)
	assert.Equal(t, 1500*time.Millisecond, denied.RetryAfter)
}

func TestWindowLength(t *testing.T) {
	assert.Equal(t, 4*time.Second, windowLength(0.5, 2))
	assert.Equal(t, time.Second, windowLength(0, 2))
}
