// Package server implements a token bucket rate limiter for per-connection
// throttling that protects the relay from abuse.
package server

import (
	"sync"
	"time"
)

type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	// refill rate in tokens per second.
	rate float64
	last time.Time
}

func newTokenBucket(burst int, interval time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &tokenBucket{
		tokens:   float64(burst),
		capacity: float64(burst),
		rate:     float64(burst) / interval.Seconds(),
		last:     time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
