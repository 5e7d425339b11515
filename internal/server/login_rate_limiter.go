package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// loginRateLimiter blocks a client+username pair after repeated failures.
// A nil limiter allows everything.
type loginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]loginAttempts
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	staleAfter  time.Duration
	ops         int
	sweepEvery  int
}

type loginAttempts struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockFor)
	return &loginRateLimiter{
		attempts:    make(map[string]loginAttempts),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
		staleAfter:  max(staleAfter, 10*time.Minute),
		sweepEvery:  64,
	}
}

// Allow reports whether key may attempt a login at now.
func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.sweepLocked(now)

	a := l.attempts[key]
	a.lastSeen = now
	if now.Before(a.blockedUntil) {
		l.attempts[key] = a
		return false
	}
	a.blockedUntil = time.Time{}
	if !a.windowStart.IsZero() && now.Sub(a.windowStart) > l.window {
		a.failures, a.windowStart = 0, time.Time{}
	}
	l.attempts[key] = a
	return true
}

// RegisterFailure counts a failed attempt and starts a block once the
// failure budget for the window is spent.
func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.sweepLocked(now)

	a := l.attempts[key]
	if a.windowStart.IsZero() || now.Sub(a.windowStart) > l.window {
		a.failures, a.windowStart = 0, now
	}
	a.failures++
	a.lastSeen = now
	if a.failures >= l.maxFailures {
		a.blockedUntil = now.Add(l.blockFor)
		a.failures, a.windowStart = 0, time.Time{}
	}
	l.attempts[key] = a
}

// Reset forgets key after a successful login.
func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}

func (l *loginRateLimiter) sweepLocked(now time.Time) {
	l.ops++
	if l.ops%l.sweepEvery != 0 {
		return
	}
	for key, a := range l.attempts {
		if now.Sub(a.lastSeen) > l.staleAfter {
			delete(l.attempts, key)
		}
	}
}

func loginAttemptKey(username string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" {
		user = "<empty>"
	}
	ip := clientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func clientIP(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}
