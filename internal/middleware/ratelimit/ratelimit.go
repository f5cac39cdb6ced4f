// Package ratelimit throttles requests per client address.
package ratelimit

import (
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window  = time.Minute
	idleTTL = 10 * time.Minute
)

// Limiter counts requests per client in fixed one-minute windows.
type Limiter struct {
	limit   int
	methods []string
	now     func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
	rejected atomic.Int64

	prune    time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type counter struct {
	opened time.Time
	seen   time.Time
	n      int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods limits throttling to these HTTP methods. Empty means all.
	Methods []string
}

// DefaultConfig throttles writes only.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
	}
}

// NewLimiter creates a limiter and starts pruning idle clients. Call
// Stop to end the pruning goroutine.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		limit:    cfg.RequestsPerMinute,
		methods:  cfg.Methods,
		now:      time.Now,
		counters: map[string]*counter{},
		prune:    cfg.CleanupInterval,
		stop:     make(chan struct{}),
	}
	go rl.pruneLoop()
	return rl
}

// Allow counts a request from client and reports whether it fits in
// the client's current window.
func (rl *Limiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.counters[client]
	if !ok || now.Sub(c.opened) >= window {
		rl.counters[client] = &counter{opened: now, seen: now, n: 1}
		return true
	}
	c.n++
	c.seen = now
	if c.n <= rl.limit {
		return true
	}
	rl.rejected.Add(1)
	return false
}

// retryAfter is how long client waits for a fresh window, at least 1s.
func (rl *Limiter) retryAfter(client string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.counters[client]
	if !ok {
		return 0
	}
	return max(c.opened.Add(window).Sub(rl.now()), time.Second)
}

func (rl *Limiter) pruneLoop() {
	ticker := time.NewTicker(rl.prune)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.pruneIdle()
		case <-rl.stop:
			return
		}
	}
}

// pruneIdle forgets clients not seen for idleTTL.
func (rl *Limiter) pruneIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleTTL)
	n := 0
	for client, c := range rl.counters {
		if c.seen.Before(cutoff) {
			delete(rl.counters, client)
			n++
		}
	}
	return n
}

// ActiveClients is the number of clients with a live counter.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Metrics is reported by the readiness endpoint.
type Metrics struct {
	Rejected int64 `json:"rejected"`
	Clients  int   `json:"clients"`
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{Rejected: rl.rejected.Load(), Clients: rl.ActiveClients()}
}

// Middleware answers requests over the limit with 429 and a Retry-After
// header. onLimit writes the body when set.
func (rl *Limiter) Middleware(clientOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(rl.methods) > 0 && !slices.Contains(rl.methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			client := clientOf(r)
			if rl.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}
			wait := rl.retryAfter(client).Round(time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
