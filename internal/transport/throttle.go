package transport

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiters hands out one token bucket per key (store id). Buckets idle for
// longer than the cleanup interval are dropped.
type Limiters struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiters creates a registry allowing rps requests per second per key
// with the given burst.
func NewLimiters(rps float64, burst int) *Limiters {
	if burst < 1 {
		burst = 1
	}
	return &Limiters{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

// For returns the limiter for key, creating it on first use.
func (l *Limiters) For(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Sweep removes buckets not used within maxIdle.
func (l *Limiters) Sweep(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if time.Since(b.lastSeen) > maxIdle {
			delete(l.buckets, k)
		}
	}
}

// Throttle wraps base so that every write (any method but GET and HEAD)
// waits for a token from limiter first. Reads pass through unthrottled.
func Throttle(base http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &throttled{base: base, limiter: limiter}
}

type throttled struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *throttled) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil && req.Method != http.MethodGet && req.Method != http.MethodHead {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.base.RoundTrip(req)
}
