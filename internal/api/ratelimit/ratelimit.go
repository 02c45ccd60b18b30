// Package ratelimit provides per-caller sliding-window admission control
// shared by every entry point. Policy values come from configuration;
// different entry points run separate limiters with different limits.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Policy holds one entry point's admission window settings.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of one admission check. ResetAt doubles as the
// Retry-After hint on rejection.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter maintains one window per caller key in a shared table. All
// mutations happen under the mutex so concurrent admits never lose updates
// or observe torn state. Expired windows are removed by a periodic sweep so
// the table stays bounded; the sweep never blocks admission beyond ordinary
// lock contention.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	policy  Policy
	logger  *slog.Logger
	done    chan struct{}
	closeMu sync.Once

	// now is swappable in tests.
	now func() time.Time
}

// NewLimiter starts a limiter with the given policy. sweepInterval <= 0
// disables the background sweep.
func NewLimiter(policy Policy, sweepInterval time.Duration, logger *slog.Logger) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		policy:  policy,
		logger:  logger,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// Admit performs the atomic check-and-increment for one caller key. A fresh
// or expired window admits with count=1; an open window admits while under
// the limit and rejects (without mutation) at the limit.
func (l *Limiter) Admit(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.policy.Window)}
		l.windows[key] = w
		return Decision{Allowed: true, Remaining: l.policy.MaxRequests - 1, ResetAt: w.resetAt}
	}

	if w.count < l.policy.MaxRequests {
		w.count++
		return Decision{Allowed: true, Remaining: l.policy.MaxRequests - w.count, ResetAt: w.resetAt}
	}

	return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
}

// Len reports the current number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.closeMu.Do(func() { close(l.done) })
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	remaining := len(l.windows)
	l.mu.Unlock()

	if removed > 0 && l.logger != nil {
		l.logger.Debug("Swept expired rate windows",
			slog.Int("removed", removed),
			slog.Int("remaining", remaining))
	}
}
