// Package ratelimit provides an in-process sliding-window request limiter.
//
// The limiter is single-instance: windows are process-local and are not
// coordinated across replicas. Running more than one server instance
// under-counts proportionally; swapping the map for a shared store with
// atomic increment-and-expire is the extension point if that ever matters.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Policy bounds requests per identifier within a window.
type Policy struct {
	// Max requests per window.
	Max int
	// Window duration.
	Window time.Duration
}

// Result is the outcome of a single limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Count     int
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter maintains per-identifier request windows. Construct one per
// process and inject it into handlers; Start launches the background sweep
// that bounds memory growth and Stop terminates it.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// New creates a limiter with an empty window map.
func New() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check records one request for identifier under policy and reports whether
// it is allowed. The read-check-increment is atomic per call, so two
// concurrent requests cannot both slip through at the boundary count.
//
// A denied request still increments the count but never blocks; the caller
// must translate Allowed=false into a rate-limited rejection carrying
// Remaining and ResetAt.
func (l *Limiter) Check(identifier string, p Policy) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok || e.resetAt.Before(now) {
		e = &entry{count: 1, resetAt: now.Add(p.Window)}
		l.entries[identifier] = e
		return Result{
			Allowed:   true,
			Remaining: p.Max - 1,
			ResetAt:   e.resetAt,
			Count:     1,
		}
	}

	e.count++

	if e.count > p.Max {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   e.resetAt,
			Count:     e.count,
		}
	}

	return Result{
		Allowed:   true,
		Remaining: p.Max - e.count,
		ResetAt:   e.resetAt,
		Count:     e.count,
	}
}

// Start launches the background sweep loop that drops expired windows every
// interval. It must be matched by Stop.
func (l *Limiter) Start(interval time.Duration) {
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit. Safe to call
// only after Start.
func (l *Limiter) Stop() {
	close(l.stop)
	<-l.done
}

// sweep removes all entries whose window has already expired.
func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, e := range l.entries {
		if e.resetAt.Before(now) {
			delete(l.entries, id)
		}
	}
}

// size reports the current number of tracked identifiers.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ClientIP extracts the originating client address, accounting for proxies:
// first hop of X-Forwarded-For, then X-Real-IP, then the socket peer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.Index(forwarded, ","); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
