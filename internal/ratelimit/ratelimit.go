// Package ratelimit implements the per-client fixed-window limiter that sits
// in front of the HTTP surface.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the limiter's answer for one request.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	used  int
}

// Limiter grants up to points requests per key within each window.
type Limiter struct {
	points   int
	duration time.Duration

	mu      sync.Mutex
	windows map[string]*window

	now func() time.Time
}

// New builds a limiter allowing points requests per duration for each key.
func New(points int, duration time.Duration) *Limiter {
	return &Limiter{
		points:   points,
		duration: duration,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

// Allow records one request for key and reports whether it may proceed.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.duration {
		if len(l.windows) > 4096 {
			l.prune(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.used < l.points {
		w.used++
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed:    false,
		RetryAfter: w.start.Add(l.duration).Sub(now),
	}
}

// prune drops windows that have already expired. Called with the lock held.
func (l *Limiter) prune(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.duration {
			delete(l.windows, key)
		}
	}
}
