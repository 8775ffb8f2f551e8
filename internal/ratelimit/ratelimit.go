// Package ratelimit implements the per-(user, action) limiter described in
// spec.md §4.1 as a fixed one-minute window: the first request opens the
// window, requests are counted up to the quota, and further requests are
// denied until the window ends. It is not a sliding window. It is an
// in-process, mutex-guarded map — counters reset on process restart.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/boardkeep/kernel/internal/telemetry"
)

// Result is the outcome of a Check call.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetInMs  int64
}

// Config maps an action name to its requests-per-minute quota, per the
// static table in spec.md §6.
type Config map[string]int

// DefaultConfig is the rate-limit table from spec.md §6.
func DefaultConfig() Config {
	return Config{
		"create-board":      10,
		"create-card":       60,
		"update-card":       120,
		"update-card-order": 120,
		"delete-card":       60,
		"create-comment":    60,
		"update-comment":    60,
		"delete-comment":    40,
		"add-reaction":      120,
		"remove-reaction":   120,
	}
}

type window struct {
	count     int
	windowEnd time.Time
}

// Limiter is a process-wide, thread-safe fixed-window rate limiter keyed
// by (userID, action). Mutated under a mutex per spec.md §5.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	now     func() time.Time
}

// New creates a Limiter from the given action→rpm table.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func key(userID, action string) string {
	return userID + "\x00" + action
}

// Check records one request attempt for (userID, action) and reports
// whether it is allowed under the configured per-minute quota. Actions not
// present in the config table are unlimited.
func (l *Limiter) Check(userID, action string) Result {
	limit, ok := l.cfg[action]
	if !ok {
		return Result{Allowed: true, Remaining: -1}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(userID, action)
	w, ok := l.windows[k]
	if !ok || now.After(w.windowEnd) {
		w = &window{count: 0, windowEnd: now.Add(time.Minute)}
		l.windows[k] = w
	}

	if w.count >= limit {
		telemetry.RateLimitExceededTotal.WithLabelValues(action).Inc()
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetInMs: w.windowEnd.Sub(now).Milliseconds(),
		}
	}

	w.count++
	return Result{
		Allowed:   true,
		Remaining: limit - w.count,
		ResetInMs: w.windowEnd.Sub(now).Milliseconds(),
	}
}

// ErrRateLimited is the error surfaced to callers when a quota is exceeded.
// Its message is the generic, user-visible string from spec.md §4.1 — it
// must never be wrapped with internal detail before reaching the client.
type ErrRateLimited struct {
	ResetInMs int64
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("Too many requests. Try again in %ds.", (e.ResetInMs+999)/1000)
}
