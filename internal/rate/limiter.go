package rate

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter keyed by operation class and client
// identity. The zero value is not usable; construct with New.
type Limiter struct {
	now func() time.Time

	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

type bucketKey struct {
	class  string
	client string
}

type bucket struct {
	mu     sync.Mutex
	events []time.Time
	window time.Duration
	// dead is set by Sweep after the bucket left the map; holders must re-resolve.
	dead bool
}

// New returns a Limiter reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		now:     now,
		buckets: make(map[bucketKey]*bucket),
	}
}

// CheckAndRecord reports whether a request of class from client fits in the
// trailing window. Rejected requests are not recorded. When rejected,
// retryAfter is the time until the oldest retained event leaves the window.
func (l *Limiter) CheckAndRecord(class, client string, maxRequests int, window time.Duration) (bool, time.Duration) {
	if maxRequests <= 0 || window <= 0 {
		return false, 0
	}
	key := bucketKey{class: class, client: client}

	for {
		b := l.bucket(key)
		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}

		now := l.now()
		b.window = window
		b.prune(now)

		if len(b.events) >= maxRequests {
			retry := b.events[0].Add(window).Sub(now)
			b.mu.Unlock()
			if retry < 0 {
				retry = 0
			}
			return false, retry
		}

		b.events = append(b.events, now)
		b.mu.Unlock()
		return true, 0
	}
}

// Sweep removes buckets whose every event has left its window and returns how
// many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		b.mu.Lock()
		b.prune(now)
		if len(b.events) == 0 {
			b.dead = true
			delete(l.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucket(key bucketKey) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	return b
}

// prune drops events that are no longer strictly inside the window. Events are
// appended in order, so the retained slice stays sorted.
func (b *bucket) prune(now time.Time) {
	cut := 0
	for cut < len(b.events) && now.Sub(b.events[cut]) > b.window {
		cut++
	}
	if cut == 0 {
		return
	}
	n := copy(b.events, b.events[cut:])
	b.events = b.events[:n]
}
