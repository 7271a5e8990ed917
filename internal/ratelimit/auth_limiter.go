package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scope string

const (
	ScopeLogin  Scope = "login"
	ScopeForgot Scope = "forgot"
)

const keyAuthScope = "auth:%s:%s"

type limit struct {
	rate  float64
	burst int
}

// AuthLimiter throttles the unauthenticated auth endpoints per client key.
// Both backends count a fixed window of burst hits per burst/rate seconds. Redis is
// used when configured; the in-process window covers the rest, including Redis errors.
type AuthLimiter struct {
	log      *zap.Logger
	shared   *RedisWindow
	fallback *memoryLimiter
	limits   map[Scope]limit
}

type Params struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

func NewAuthLimiter(p Params) *AuthLimiter {
	limitCfg := p.Cfg.RateLimit
	l := &AuthLimiter{
		log:      p.Log.Named("ratelimit"),
		fallback: newMemoryLimiter(p.Clock),
		limits: map[Scope]limit{
			ScopeLogin:  {rate: limitCfg.LoginRate, burst: limitCfg.LoginBurst},
			ScopeForgot: {rate: limitCfg.ForgotRate, burst: limitCfg.ForgotBurst},
		},
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		l.log.Info("redis not configured, using in-process rate limiting")
		return l
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	l.shared = NewRedisWindow(client, p.Clock.Now)
	if p.Lc != nil {
		p.Lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return l
}

// Allow consumes one token for key in scope. Unknown or disabled scopes always allow.
func (l *AuthLimiter) Allow(ctx context.Context, scope Scope, key string) *RateLimitResult {
	if l == nil {
		return &RateLimitResult{Allowed: true}
	}
	lim, ok := l.limits[scope]
	if !ok || lim.rate <= 0 || lim.burst <= 0 {
		return &RateLimitResult{Allowed: true}
	}
	bucketKey := fmt.Sprintf(keyAuthScope, scope, strings.TrimSpace(key))

	if l.shared != nil {
		res, err := l.shared.Allow(ctx, bucketKey, lim.rate, lim.burst)
		if err == nil {
			return res
		}
		l.log.Warn("redis rate limit failed, using fallback", zap.String("scope", string(scope)), zap.Error(err))
	}
	return l.fallback.Allow(bucketKey, lim.rate, lim.burst)
}
