package internal

import (
	"sync"
	"time"
)

// RateLimiter caps how often a key (a client IP, usually) may perform an
// action: at most limit hits per sliding window. Stale hits age out on the
// next Allow call for that key, the same pruning the per-connection chat
// window in allowMessage does.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter allowing limit hits per window for each key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Allow records one hit for key and reports whether it fits in the window.
// A rejected hit is not recorded, so a client hammering the endpoint is not
// penalized beyond the window it already filled.
func (r *RateLimiter) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	recent := r.hits[key]
	kept := 0
	for _, at := range recent {
		if at.After(cutoff) {
			recent[kept] = at
			kept++
		}
	}
	recent = recent[:kept]
	if kept >= r.limit {
		r.hits[key] = recent
		return false
	}
	r.hits[key] = append(recent, now)
	return true
}
