package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"vendorhub/internal/httpx"
	"vendorhub/internal/observability"
)

// LoginRateLimiter applies a per-IP sliding window to the login endpoint,
// in front of the per-account lockout tracked in the credential store.
// State is in-process only; behind multiple instances each one enforces
// its own window.
type LoginRateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*ipWindow

	// Pruning kicks in once this many distinct IPs are tracked.
	pruneAt int
}

type ipWindow struct {
	hits []time.Time
}

func NewLoginRateLimiter(limit int, window time.Duration) *LoginRateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginRateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*ipWindow),
		pruneAt: 5000,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		retryAfter, ok := l.take(observability.ClientIP(r), time.Now().UTC())
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			httpx.WriteError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take records one attempt for ip and reports whether it is within the
// window. When over the limit it returns how long until the oldest hit
// leaves the window.
func (l *LoginRateLimiter) take(ip string, now time.Time) (time.Duration, bool) {
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	win := l.windows[ip]
	if win == nil {
		win = &ipWindow{}
		l.windows[ip] = win
	}
	win.trim(cutoff)

	if len(win.hits) >= l.limit {
		retryAfter := win.hits[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return retryAfter, false
	}

	win.hits = append(win.hits, now)
	if len(l.windows) > l.pruneAt {
		l.prune(cutoff)
	}
	return 0, true
}

func (w *ipWindow) trim(cutoff time.Time) {
	kept := w.hits[:0]
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	w.hits = kept
}

func (l *LoginRateLimiter) prune(cutoff time.Time) {
	for ip, win := range l.windows {
		if len(win.hits) == 0 || !win.hits[len(win.hits)-1].After(cutoff) {
			delete(l.windows, ip)
		}
	}
}
