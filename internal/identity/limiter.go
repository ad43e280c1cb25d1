package identity

import (
	"sync"

	"golang.org/x/time/rate"
)

// NewLimiter creates a Limiter permitting limit attempts per second per key
// with bursts of up to burst attempts.
func NewLimiter(limit rate.Limit, burst int) *Limiter {
	return &Limiter{
		mutex:    new(sync.Mutex),
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Limiter limits attempts per key. A single Limiter is shared by every page
// of the process.
type Limiter struct {
	mutex    *sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// Allow reports whether an attempt for key may happen now.
func (l *Limiter) Allow(key string) bool {
	l.mutex.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mutex.Unlock()

	return limiter.Allow()
}

// Reset forgets the attempts of key.
func (l *Limiter) Reset(key string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	delete(l.limiters, key)
}
