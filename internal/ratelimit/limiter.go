// Package ratelimit implements a fixed-window counter keyed by sender and
// event type.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultLimit  = 6
	DefaultWindow = 10 * time.Second
)

type key struct {
	sender string
	event  string
}

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	limit   int
	window  time.Duration
	buckets map[key]*window
	watched map[string]struct{}
}

// New returns a limiter applying limit events per window to each of the
// given event types. Other event types are always allowed.
func New(clock clockwork.Clock, limit int, every time.Duration, events ...string) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if every <= 0 {
		every = DefaultWindow
	}
	watched := make(map[string]struct{}, len(events))
	for _, e := range events {
		watched[e] = struct{}{}
	}
	return &Limiter{
		clock:   clock,
		limit:   limit,
		window:  every,
		buckets: make(map[key]*window),
		watched: watched,
	}
}

func (l *Limiter) Watches(event string) bool {
	_, ok := l.watched[event]
	return ok
}

// Allow reports whether sender may emit event now, counting it if so.
func (l *Limiter) Allow(sender, event string) bool {
	if !l.Watches(event) {
		return true
	}
	now := l.clock.Now()
	k := key{sender: sender, event: event}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.buckets[k]
	if !ok || !now.Before(w.resetAt) {
		l.buckets[k] = &window{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Forget drops every window belonging to sender.
func (l *Limiter) Forget(sender string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.buckets {
		if k.sender == sender {
			delete(l.buckets, k)
		}
	}
}

// Sweep evicts expired windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, w := range l.buckets {
		if !now.Before(w.resetAt) {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
