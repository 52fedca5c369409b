package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage        = "send_message"
	ActionTyping             = "typing"
	ActionCreateConversation = "create_conversation"
	ActionConnect            = "ws_connect"
)

// Limit is a per-minute allowance with a burst.
type Limit struct {
	PerMinute int64
	Burst     int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user:action.
type RateLimiter struct {
	limits  map[string]Limit
	buckets map[string]*entry
	mutex   sync.Mutex
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		buckets: make(map[string]*entry),
	}
}

func (rl *RateLimiter) limitFor(action string) Limit {
	if l, ok := rl.limits[action]; ok && l.PerMinute > 0 {
		return l
	}
	return Limit{PerMinute: 20, Burst: 20}
}

// Allow consumes a token for the user action. When none is available it reports
// how long until the next one.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := time.Now()

	rl.mutex.Lock()
	e, ok := rl.buckets[key]
	if !ok {
		l := rl.limitFor(action)
		burst := l.Burst
		if burst <= 0 {
			burst = int(l.PerMinute)
		}
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(l.PerMinute)/60), burst)}
		rl.buckets[key] = e
	}
	e.lastSeen = now
	rl.mutex.Unlock()

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := e.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-idle)
	for key, e := range rl.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
