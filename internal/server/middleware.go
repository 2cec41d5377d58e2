package server

import (
	"sync"
	"time"
)

// RateLimiter implements per-connection rate limiting with a sliding
// window: one abusive client shouldn't affect others.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time // connectionID -> timestamps of recent requests
	mu          sync.Mutex
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow checks if a connection may send another message right now.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	timestamps := r.requests[connectionID]
	valid := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= r.maxRequests {
		r.requests[connectionID] = valid
		return false
	}

	r.requests[connectionID] = append(valid, now)
	return true
}

// RemoveConnection drops rate-limit state when a websocket disconnects.
func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}
