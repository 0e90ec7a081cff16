// Package ratelimit paces API calls with a token bucket so the interactive
// shell cannot flood the backend (e.g. holding down refresh).
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Waits longer than slowWait are logged, at most once per warnEvery.
const (
	slowWait  = 2 * time.Second
	warnEvery = 10 * time.Second
)

// RateLimiter is a token bucket: up to burst calls at once, then rate calls
// per second. A nil *RateLimiter never blocks.
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64
	burst    float64
	tokens   float64
	last     time.Time
	warnedAt time.Time
	now      func() time.Time
}

// NewRateLimiter returns a limiter that starts with a full bucket.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	return &RateLimiter{
		rate:   rate,
		burst:  burst,
		tokens: burst,
		last:   time.Now(),
		now:    time.Now,
	}
}

// NewAPIRateLimiter returns the limiter for backend calls, or nil when
// pacing is disabled (rate <= 0).
func NewAPIRateLimiter(rate float64, burst int) *RateLimiter {
	if rate <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return NewRateLimiter(rate, float64(burst))
}

// Wait blocks until one call may be made or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}
		rl.warnSlow(delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens reports how many calls could be made right now.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// reserve takes a token and returns 0, or returns how long until one is due.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	d := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
	return max(d, time.Microsecond)
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens = math.Min(rl.burst, rl.tokens+now.Sub(rl.last).Seconds()*rl.rate)
	rl.last = now
}

func (rl *RateLimiter) warnSlow(delay time.Duration) {
	if delay <= slowWait {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now := rl.now(); now.Sub(rl.warnedAt) > warnEvery {
		log.Warn().Dur("wait", delay).Msg("Pacing API calls")
		rl.warnedAt = now
	}
}
