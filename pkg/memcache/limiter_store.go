// pkg/memcache/limiter_store.go
package mem

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore hands out one token bucket per key (client IP, user id).
// Buckets idle for longer than the TTL are dropped by Sweep.
type LimiterStore interface {
	Get(key string) *rate.Limiter
	Sweep() int
	Len() int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiters struct {
	mu    sync.Mutex
	data  map[string]*entry
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

// NewLimiters allows perMinute events per key with a burst of the same size.
func NewLimiters(perMinute int, ttl time.Duration) *Limiters {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Limiters{
		data:  make(map[string]*entry),
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *Limiters) Get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.data[key] = e
	}
	e.lastSeen = s.now()
	return e.limiter
}

func (s *Limiters) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for key, e := range s.data {
		if e.lastSeen.Before(cutoff) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

func (s *Limiters) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
