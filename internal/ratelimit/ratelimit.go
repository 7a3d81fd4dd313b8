// Package ratelimit implements a token bucket limiter used to throttle chat
// lines per connection.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket refilled continuously at capacity tokens per interval.
type Limiter struct {
	mu        sync.Mutex
	tokens    float64
	capacity  float64
	rate      float64
	lastCheck time.Time
	now       func() time.Time
}

// New creates a full bucket holding capacity tokens, refilled over interval.
// Non-positive arguments fall back to a capacity of 1 and an interval of one second.
func New(capacity int, interval time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	rate := float64(capacity) / interval.Seconds()
	if rate <= 0 {
		rate = float64(capacity)
	}

	return &Limiter{
		tokens:    float64(capacity),
		capacity:  float64(capacity),
		rate:      rate,
		lastCheck: time.Now(),
		now:       time.Now,
	}
}

// Allow takes one token and reports whether one was available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.lastCheck).Seconds()
	l.lastCheck = now

	if elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}

	if l.tokens < 1 {
		return false
	}

	l.tokens--
	return true
}
