package secureauthx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/secureauthx/secureauthx/session"
)

var testSecret = []byte("test-secret-test-secret-0123456789")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 250_000_000, time.UTC)}
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

// testDirectory is a minimal UserDirectory; store/memory has the full one.
type testDirectory struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]Identity
	byEmail map[string]int64
	failAll error
}

func newTestDirectory() *testDirectory {
	return &testDirectory{
		byID:    map[int64]Identity{},
		byEmail: map[string]int64{},
	}
}

func (d *testDirectory) FindByEmail(_ context.Context, email string) (*Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return nil, d.failAll
	}
	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := d.byID[id]
	return &u, nil
}

func (d *testDirectory) FindByID(_ context.Context, id int64) (*Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return nil, d.failAll
	}
	u, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *testDirectory) Create(_ context.Context, email, passwordHash string) (*Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byEmail[email]; ok {
		return nil, ErrAlreadyRegistered
	}
	d.nextID++
	u := Identity{ID: d.nextID, Email: email, PasswordHash: passwordHash, IsActive: true}
	d.byID[u.ID] = u
	d.byEmail[email] = u.ID
	return &u, nil
}

func (d *testDirectory) UpdatePasswordHash(_ context.Context, id int64, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	d.byID[id] = u
	return nil
}

func (d *testDirectory) put(u Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID > d.nextID {
		d.nextID = u.ID
	}
	d.byID[u.ID] = u
	d.byEmail[u.Email] = u.ID
}

func (d *testDirectory) setActive(id int64, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.byID[id]
	u.IsActive = active
	d.byID[id] = u
}

func (d *testDirectory) setAdmin(id int64, admin bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.byID[id]
	u.IsAdmin = admin
	d.byID[id] = u
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEngine struct {
	*Engine
	dir    *testDirectory
	ledger *session.MemoryLedger
	clock  *testClock
}

func newTestEngine(t *testing.T, cfg Config, opts ...func(*Builder)) *testEngine {
	t.Helper()

	dir := newTestDirectory()
	ledger := session.NewMemoryLedger()
	clock := newTestClock()

	b := New().
		WithConfig(cfg).
		WithUserDirectory(dir).
		WithLedger(ledger).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, dir: dir, ledger: ledger, clock: clock}
}

func withClientIP(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}
