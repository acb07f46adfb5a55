// Package ratelimit counts requests per caller in fixed windows.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// maxKeys bounds the tracked callers; expired windows are swept beyond it.
const maxKeys = 4096

// Limit is the request budget for one caller. Zero values mean no limit.
type Limit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// Enabled reports whether the limit restricts anything.
func (l Limit) Enabled() bool {
	return l.MaxRequests > 0 && l.Window > 0
}

// CheckResult is the outcome of a rate limit check.
type CheckResult struct {
	Exceeded bool
	Current  int
	Limit    int
	Reason   string
}

// Check compares the current count against the limit.
func Check(count int, limit Limit) CheckResult {
	if !limit.Enabled() {
		return CheckResult{}
	}
	if count >= limit.MaxRequests {
		return CheckResult{
			Exceeded: true,
			Current:  count,
			Limit:    limit.MaxRequests,
			Reason: fmt.Sprintf("rate limit exceeded: %d/%d requests in %s window",
				count, limit.MaxRequests, limit.Window),
		}
	}
	return CheckResult{Current: count, Limit: limit.MaxRequests}
}

type window struct {
	start time.Time
	count int
}

// Limiter tracks one fixed window per key. Safe for concurrent use.
type Limiter struct {
	limit Limit
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a limiter. A disabled limit allows every request.
func New(limit Limit) *Limiter {
	return &Limiter{
		limit:   limit,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records a request for key unless the key's window is exhausted.
// Rejected requests are not counted.
func (l *Limiter) Allow(key string) CheckResult {
	if !l.limit.Enabled() {
		return CheckResult{}
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.limit.Window {
		if w == nil && len(l.windows) >= maxKeys {
			l.sweep(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}

	result := Check(w.count, l.limit)
	if !result.Exceeded {
		w.count++
	}
	return result
}

// sweep drops expired windows. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.limit.Window {
			delete(l.windows, k)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
