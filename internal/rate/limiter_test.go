package rate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLimiterRejectsOverBudget(t *testing.T) {
	clock := newClock()
	l := New(clock.Now)

	for i := 0; i < 3; i++ {
		if ok, _ := l.CheckAndRecord("login", "10.0.0.1", 3, time.Minute); !ok {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	ok, retry := l.CheckAndRecord("login", "10.0.0.1", 3, time.Minute)
	if ok {
		t.Fatal("expected 4th request to be limited")
	}
	if retry != time.Minute {
		t.Fatalf("expected retry-after of one minute, got %v", retry)
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	clock := newClock()
	l := New(clock.Now)

	l.CheckAndRecord("login", "ip", 2, time.Minute)
	clock.Advance(30 * time.Second)
	l.CheckAndRecord("login", "ip", 2, time.Minute)

	if ok, retry := l.CheckAndRecord("login", "ip", 2, time.Minute); ok || retry != 30*time.Second {
		t.Fatalf("expected limit with 30s retry, got ok=%v retry=%v", ok, retry)
	}

	// The first event leaves the window; exactly one slot frees up.
	clock.Advance(31 * time.Second)
	if ok, _ := l.CheckAndRecord("login", "ip", 2, time.Minute); !ok {
		t.Fatal("expected request after window slide to be allowed")
	}
	if ok, _ := l.CheckAndRecord("login", "ip", 2, time.Minute); ok {
		t.Fatal("expected second request to be limited again")
	}
}

func TestLimiterRejectedRequestsAreNotRecorded(t *testing.T) {
	clock := newClock()
	l := New(clock.Now)

	l.CheckAndRecord("refresh", "ip", 1, time.Minute)
	for i := 0; i < 10; i++ {
		l.CheckAndRecord("refresh", "ip", 1, time.Minute)
		clock.Advance(time.Second)
	}
	// Only the first event counts, so the bucket frees once it expires.
	clock.Advance(51 * time.Second)
	if ok, _ := l.CheckAndRecord("refresh", "ip", 1, time.Minute); !ok {
		t.Fatal("expected rejected attempts not to extend the window")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(newClock().Now)

	if ok, _ := l.CheckAndRecord("login", "a", 1, time.Minute); !ok {
		t.Fatal("expected first login from a to pass")
	}
	if ok, _ := l.CheckAndRecord("login", "b", 1, time.Minute); !ok {
		t.Fatal("expected other client to be unaffected")
	}
	if ok, _ := l.CheckAndRecord("register", "a", 1, time.Minute); !ok {
		t.Fatal("expected other operation class to be unaffected")
	}
}

func TestLimiterInvalidBudgetDenies(t *testing.T) {
	l := New(nil)
	if ok, _ := l.CheckAndRecord("login", "a", 0, time.Minute); ok {
		t.Fatal("expected zero budget to deny")
	}
	if err := Validate(0, time.Minute); err != ErrInvalidBudget {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	if err := Validate(5, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLimiterConcurrentNoLostUpdates(t *testing.T) {
	l := New(newClock().Now)
	const (
		workers = 32
		budget  = 10
	)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := l.CheckAndRecord("login", "shared", budget, time.Minute); ok {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := allowed.Load(); got != budget {
		t.Fatalf("expected exactly %d allowed, got %d", budget, got)
	}
}

func TestLimiterSweep(t *testing.T) {
	clock := newClock()
	l := New(clock.Now)

	l.CheckAndRecord("login", "a", 5, time.Minute)
	l.CheckAndRecord("login", "b", 5, 10*time.Minute)
	if l.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", l.Len())
	}

	clock.Advance(2 * time.Minute)
	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("expected 1 idle bucket removed, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 bucket left, got %d", l.Len())
	}
	if ok, _ := l.CheckAndRecord("login", "a", 1, time.Minute); !ok {
		t.Fatal("expected swept key to start fresh")
	}
}
