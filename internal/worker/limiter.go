package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls per key (a backend name or a feed host)
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// NewIntervalLimiter spaces consecutive calls on a key at least interval apart.
// A non-positive interval disables pacing.
func NewIntervalLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  intervalLimit(interval),
		defaultBurst: 1,
	}
}

func intervalLimit(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

// Wait blocks until key may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a call is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter

	return limiter
}

// SetInterval slows a single key down, e.g. to honor a robots.txt crawl delay.
// It never speeds a key up beyond the default.
func (l *Limiter) SetInterval(key string, interval time.Duration) {
	limit := intervalLimit(interval)
	if limit > l.defaultRate {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.limiters[key]; ok {
		existing.SetLimit(limit)
		return
	}
	l.limiters[key] = rate.NewLimiter(limit, 1)
}

// HostKey returns the host of rawURL for per-host pacing, or rawURL itself if unparseable
func HostKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
