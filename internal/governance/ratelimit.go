package governance

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the default sliding-window capacity per client.
	DefaultMaxRequests = 100
	// DefaultWindow is the default trailing window length.
	DefaultWindow = 60 * time.Second

	// UnknownClientKey is the shared bucket for callers that supply no
	// client identifier. Deliberately conservative: unidentified callers
	// share one window instead of each getting a fresh one.
	UnknownClientKey = "unknown"
)

// RateLimiterConfig defines the sliding-window limits.
type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimiter implements per-client sliding-window rate limiting. Each client
// identifier owns a window of admission timestamps; stale entries are pruned
// lazily on every check.
type RateLimiter struct {
	mu      sync.RWMutex
	windows map[string]*slidingWindow
	config  RateLimiterConfig
}

// NewRateLimiter creates a rate limiter with the provided configuration.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*slidingWindow),
	}
	rl.Configure(config)
	return rl
}

// Configure updates the limiter with new limits. Existing windows keep their
// recorded timestamps; the new capacity applies from the next check.
func (rl *RateLimiter) Configure(config RateLimiterConfig) {
	if config.MaxRequests <= 0 {
		config.MaxRequests = DefaultMaxRequests
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.config = config
}

// Allow checks whether a request from the given client should be admitted at
// instant now. The prune-check-append sequence is a single atomic step per
// key: two concurrent callers for the same client cannot both observe spare
// capacity and both be admitted past it.
// Returns true if admitted, false if the limit is exceeded.
func (rl *RateLimiter) Allow(clientID string, now time.Time) bool {
	if clientID == "" {
		clientID = UnknownClientKey
	}

	rl.mu.RLock()
	window, exists := rl.windows[clientID]
	config := rl.config
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		window, exists = rl.windows[clientID]
		if !exists {
			window = &slidingWindow{}
			rl.windows[clientID] = window
		}
		config = rl.config
		rl.mu.Unlock()
	}

	return window.admit(now, config.MaxRequests, config.Window)
}

// AllowContext checks admission with context cancellation support.
func (rl *RateLimiter) AllowContext(ctx context.Context, clientID string, now time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	return rl.Allow(clientID, now)
}

// Remaining reports how many requests the client could still issue at instant
// now without being denied.
func (rl *RateLimiter) Remaining(clientID string, now time.Time) int {
	if clientID == "" {
		clientID = UnknownClientKey
	}

	rl.mu.RLock()
	window, exists := rl.windows[clientID]
	config := rl.config
	rl.mu.RUnlock()

	if !exists {
		return config.MaxRequests
	}
	return window.remaining(now, config.MaxRequests, config.Window)
}

// Config returns the currently active limits.
func (rl *RateLimiter) Config() RateLimiterConfig {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.config
}

// Stats returns current window occupancy for all tracked clients.
func (rl *RateLimiter) Stats(now time.Time) map[string]RateLimitStats {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	stats := make(map[string]RateLimitStats, len(rl.windows))
	for clientID, window := range rl.windows {
		stats[clientID] = window.stats(now, rl.config.MaxRequests, rl.config.Window)
	}
	return stats
}

// Sweep drops windows that have been idle for longer than the window length,
// bounding memory under client-identifier churn. Intended to be called
// periodically from a background goroutine.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := now.Add(-rl.config.Window)
	for clientID, window := range rl.windows {
		if window.idleSince(cutoff) {
			delete(rl.windows, clientID)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done. Blocking; run it
// from its own goroutine.
func (rl *RateLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = rl.Config().Window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Sweep(now)
		}
	}
}

// RateLimitStats exposes the current state of one client's window.
type RateLimitStats struct {
	Limit     int    `json:"limit"`
	InWindow  int    `json:"inWindow"`
	Remaining int    `json:"remaining"`
	OldestAt  string `json:"oldestAt,omitempty"`
}

// slidingWindow records admission instants within the trailing window for a
// single client. All access goes through the per-window mutex.
type slidingWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// admit prunes stale entries, then either records now and admits, or denies
// without mutating state. Never holds more than maxRequests entries after
// pruning; the incoming request is the one rejected, never an existing entry.
func (w *slidingWindow) admit(now time.Time, maxRequests int, window time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now.Add(-window))

	if len(w.timestamps) >= maxRequests {
		return false
	}

	w.timestamps = append(w.timestamps, now)
	return true
}

func (w *slidingWindow) remaining(now time.Time, maxRequests int, window time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now.Add(-window))

	remaining := maxRequests - len(w.timestamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (w *slidingWindow) stats(now time.Time, maxRequests int, window time.Duration) RateLimitStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now.Add(-window))

	stats := RateLimitStats{
		Limit:     maxRequests,
		InWindow:  len(w.timestamps),
		Remaining: maxRequests - len(w.timestamps),
	}
	if stats.Remaining < 0 {
		stats.Remaining = 0
	}
	if len(w.timestamps) > 0 {
		stats.OldestAt = w.timestamps[0].Format(time.RFC3339Nano)
	}
	return stats
}

func (w *slidingWindow) idleSince(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.timestamps) == 0 || w.timestamps[len(w.timestamps)-1].Before(cutoff)
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// admission order, so the suffix starting at the first fresh entry survives.
func (w *slidingWindow) prune(cutoff time.Time) {
	keep := 0
	for keep < len(w.timestamps) && !w.timestamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[keep:]...)
	}
}

// WriteRateLimitHeaders adds rate limit status headers to the response.
func WriteRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetTime time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}
