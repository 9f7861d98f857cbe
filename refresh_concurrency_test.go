package secureauthx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/secureauthx/secureauthx/session"
)

// plainLedger hides the optional Rotator and IdentityRevoker methods so the
// revoke-then-insert path is exercised.
type plainLedger struct {
	inner *session.MemoryLedger
}

func (l plainLedger) Insert(ctx context.Context, rec session.Record) error {
	return l.inner.Insert(ctx, rec)
}

func (l plainLedger) FindByTokenID(ctx context.Context, tokenID string) (*session.Record, error) {
	return l.inner.FindByTokenID(ctx, tokenID)
}

func (l plainLedger) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	return l.inner.RevokeIfActive(ctx, tokenID)
}

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	for name, wrap := range map[string]func(*session.MemoryLedger) Ledger{
		"rotator":       func(l *session.MemoryLedger) Ledger { return l },
		"revoke+insert": func(l *session.MemoryLedger) Ledger { return plainLedger{inner: l} },
	} {
		t.Run(name, func(t *testing.T) {
			ledger := session.NewMemoryLedger()
			e := newTestEngine(t, testConfig(), func(b *Builder) { b.WithLedger(wrap(ledger)) })

			pair, err := e.Register(context.Background(), "user@example.com", "Password123!")
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}

			const n = 16
			var wg sync.WaitGroup
			start := make(chan struct{})
			results := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := e.Refresh(context.Background(), pair.RefreshToken)
					results <- err
				}()
			}
			close(start)
			wg.Wait()
			close(results)

			success := 0
			for err := range results {
				if err == nil {
					success++
					continue
				}
				if !errors.Is(err, ErrUnauthorized) {
					t.Fatalf("unexpected refresh error: %v", err)
				}
			}
			if success != 1 {
				t.Fatalf("expected exactly one refresh success, got %d", success)
			}
			// One original record plus exactly one successor.
			if got := ledger.Len(); got != 2 {
				t.Fatalf("expected 2 ledger records, got %d", got)
			}
		})
	}
}

func TestRevokeAllSessionsUnsupported(t *testing.T) {
	e := newTestEngine(t, testConfig(), func(b *Builder) {
		b.WithLedger(plainLedger{inner: session.NewMemoryLedger()})
	})
	if _, err := e.RevokeAllSessions(context.Background(), 1); !errors.Is(err, ErrRevokeAllUnsupported) {
		t.Fatalf("expected ErrRevokeAllUnsupported, got %v", err)
	}
}
