package ratelimit

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// windowScript counts hits in a fixed window. The first hit starts the window's expiry.
const windowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

var (
	errWindowUnconfigured = errors.New("redis window limiter not configured")
	errWindowKey          = errors.New("rate limit key is empty")
	errWindowLimit        = errors.New("rate limit rate and burst must be positive")
	errWindowReply        = errors.New("unexpected rate limit script reply")
)

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// RedisWindow is the shared counterpart of memoryLimiter: same window length,
// counted in Redis so every replica sees the same budget.
type RedisWindow struct {
	client redis.Scripter
	script *redis.Script
	now    func() time.Time
}

func NewRedisWindow(client redis.Scripter, now func() time.Time) *RedisWindow {
	if client == nil {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &RedisWindow{client: client, script: redis.NewScript(windowScript), now: now}
}

func (r *RedisWindow) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	switch {
	case r == nil || r.client == nil:
		return &RateLimitResult{}, errWindowUnconfigured
	case key == "":
		return &RateLimitResult{}, errWindowKey
	case rate <= 0 || burst <= 0:
		return &RateLimitResult{}, errWindowLimit
	}

	length := windowLength(rate, burst)
	reply, err := r.script.Run(ctx, r.client, []string{key}, length.Milliseconds()).Int64Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	if len(reply) != 2 {
		return &RateLimitResult{}, errWindowReply
	}
	return windowResult(r.now(), int(reply[0]), time.Duration(reply[1])*time.Millisecond, burst), nil
}

// windowResult turns a hit count and the window's remaining lifetime into a decision.
func windowResult(now time.Time, count int, ttl time.Duration, burst int) *RateLimitResult {
	res := &RateLimitResult{
		Allowed:   count <= burst,
		Limit:     burst,
		ResetTime: now.Add(ttl),
	}
	if res.Allowed {
		res.Remaining = burst - count
		return res
	}
	res.RetryAfter = ttl
	return res
}
