// Package ratelimit enforces per-identity fixed-window request budgets.
// The window resets in full when it elapses; admission is a non-blocking
// check, never a queue.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	remaining int
	resetAt   time.Time
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// BucketStatus is the introspection view of one identity's budget.
type BucketStatus struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration

	now func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// refresh resets an elapsed window. Caller holds the lock, so the reset is
// atomic with whatever check follows it.
func (l *Limiter) refresh(b *bucket) {
	if !l.now().Before(b.resetAt) {
		b.remaining = l.limit
		b.resetAt = l.now().Add(l.window)
	}
}

func (l *Limiter) get(identity string) *bucket {
	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{remaining: l.limit, resetAt: l.now().Add(l.window)}
		l.buckets[identity] = b
	}
	l.refresh(b)
	return b
}

// Check reports whether identity has budget left, without consuming any.
func (l *Limiter) Check(identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.get(identity)
	if b.remaining > 0 {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, RetryAfter: b.resetAt.Sub(l.now())}
}

// Consume atomically takes one token for identity. Returns false with no
// side effect when the budget is exhausted; the count never goes negative.
func (l *Limiter) Consume(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.get(identity)
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Status returns the current budget of every tracked identity.
func (l *Limiter) Status() map[string]BucketStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]BucketStatus, len(l.buckets))
	for id, b := range l.buckets {
		l.refresh(b)
		out[id] = BucketStatus{Remaining: b.remaining, ResetAt: b.resetAt}
	}
	return out
}
