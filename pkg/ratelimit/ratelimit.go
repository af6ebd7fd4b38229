// Package ratelimit implements an in-memory sliding-window rate limiter
// keyed by client (typically remote IP).
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter tracks request timestamps per key within a sliding window.
type Limiter struct {
	maxRequests int
	window      time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	requests map[string][]time.Time
}

// New creates a Limiter allowing maxRequests per window, per key.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		logger:      slog.Default().With("component", "ratelimit"),
		requests:    make(map[string][]time.Time),
	}
}

// Allow reports whether a request from key is allowed, along with the
// remaining quota and the number of seconds until the window resets.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, resetSeconds int) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.requests[key] = kept

	count := len(l.requests[key])
	remaining = l.maxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}

	if len(l.requests[key]) > 0 {
		oldest := l.requests[key][0]
		for _, ts := range l.requests[key] {
			if ts.Before(oldest) {
				oldest = ts
			}
		}
		resetSeconds = int(oldest.Add(l.window).Sub(now).Seconds())
	} else {
		resetSeconds = int(l.window.Seconds())
	}

	if count >= l.maxRequests {
		l.logger.Warn("rate limit exceeded", "key", key, "count", count, "max", l.maxRequests)
		return false, 0, resetSeconds
	}

	l.requests[key] = append(l.requests[key], now)
	return true, remaining, resetSeconds
}

// Stats reports aggregate rate-limiter state for observability endpoints.
type Stats struct {
	ActiveKeys             int `json:"active_keys"`
	TotalRequestsInWindow   int `json:"total_requests_in_window"`
	MaxRequests             int `json:"max_requests"`
	WindowSeconds           int `json:"window_seconds"`
}

// Stats returns a snapshot of current rate-limiter activity.
func (l *Limiter) Stats() Stats {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{MaxRequests: l.maxRequests, WindowSeconds: int(l.window.Seconds())}
	for _, timestamps := range l.requests {
		valid := 0
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				valid++
			}
		}
		if valid > 0 {
			stats.ActiveKeys++
			stats.TotalRequestsInWindow += valid
		}
	}
	return stats
}

// Clear discards all tracked request history.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = make(map[string][]time.Time)
}
