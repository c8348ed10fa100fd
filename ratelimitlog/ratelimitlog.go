// Package ratelimitlog provides a rate-limited zap logger for advisory
// messages that could otherwise flood the log under a noisy workload -
// e.g. the size planner's "target overridden" warning, emitted once per
// affected log group on every recomputation.
package ratelimitlog

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Logger wraps a zap.Logger with a shared token bucket: calls beyond the
// configured rate are dropped silently rather than queued or blocked.
type Logger struct {
	base    *zap.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	dropped uint64
}

// New builds a Logger that allows at most burst events immediately and
// eventsPerSecond thereafter. A burst of 10 with eventsPerSecond = 1
// sustains 10 advisories per 10 seconds once the burst is spent; a
// 10-second window that starts with a full bucket admits up to 20.
func New(base *zap.Logger, eventsPerSecond float64, burst int) *Logger {
	return &Logger{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

// Warn logs at warn level if the token bucket has capacity, otherwise it
// increments an internal drop counter and returns without logging.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if !l.limiter.Allow() {
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
		return
	}
	l.base.Warn(msg, fields...)
}

// Dropped returns the number of Warn calls suppressed by the rate limit
// since construction. Useful for a periodic "N advisories suppressed"
// summary log line.
func (l *Logger) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
