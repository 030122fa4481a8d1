package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrRateLimited marks a gate wait that cannot complete before the caller's
// deadline. The provider was never called.
var ErrRateLimited = eris.New("rate limit wait exceeds deadline")

// RateLimiter gates calls per provider to a minimum interval of
// 60s / calls-per-minute. The reservation made by each waiter is taken under
// the limiter's own lock, so two callers can never pass the gate for the same
// interval. Waiters are served in reservation order.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter from a provider -> calls-per-minute map.
// Providers with a non-positive rate are not gated.
func NewRateLimiter(callsPerMinute map[string]int) *RateLimiter {
	rl := &RateLimiter{limiters: make(map[string]*rate.Limiter, len(callsPerMinute))}
	for name, cpm := range callsPerMinute {
		rl.SetRate(name, cpm)
	}
	return rl
}

// Interval returns the minimum spacing for a calls-per-minute budget.
func Interval(callsPerMinute int) time.Duration {
	if callsPerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(callsPerMinute)
}

// SetRate installs or replaces the gate for provider.
func (rl *RateLimiter) SetRate(provider string, callsPerMinute int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if callsPerMinute <= 0 {
		delete(rl.limiters, provider)
		return
	}
	rl.limiters[provider] = rate.NewLimiter(rate.Every(Interval(callsPerMinute)), 1)
}

// Acquire blocks until provider may be called, or ctx is done. When the wait
// would outlast ctx's deadline it returns ErrRateLimited at once.
func (rl *RateLimiter) Acquire(ctx context.Context, provider string) error {
	rl.mu.RLock()
	lim, ok := rl.limiters[provider]
	rl.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return eris.Wrapf(ctxErr, "ratelimit: wait for %s", provider)
		}
		return eris.Wrapf(ErrRateLimited, "ratelimit: wait for %s: %v", provider, err)
	}
	return nil
}

// Limit returns the configured interval for provider, zero when ungated.
func (rl *RateLimiter) Limit(provider string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	lim, ok := rl.limiters[provider]
	if !ok {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(lim.Limit()))
}
