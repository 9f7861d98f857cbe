// Package ledgertest holds a behavioural test suite shared by every
// session.Ledger implementation.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/secureauthx/secureauthx/session"
)

// Factory returns an empty ledger. Cleanup should be registered on t.
type Factory func(t *testing.T) session.Ledger

// IdentityIDs lists every identity id the suite writes records for. Ledgers
// that enforce a foreign key to identities must seed these before Run.
var IdentityIDs = []int64{7, 42, 43}

// Run exercises ledger semantics against fresh instances from newLedger.
// Rotate and RevokeAllForIdentity cases run only when the ledger implements
// the matching optional interface.
func Run(t *testing.T, newLedger Factory) {
	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, newLedger(t)) })
	t.Run("DuplicateInsert", func(t *testing.T) { testDuplicateInsert(t, newLedger(t)) })
	t.Run("FindUnknown", func(t *testing.T) { testFindUnknown(t, newLedger(t)) })
	t.Run("RevokeIfActive", func(t *testing.T) { testRevokeIfActive(t, newLedger(t)) })
	t.Run("ConcurrentRevokeSingleWinner", func(t *testing.T) { testConcurrentRevoke(t, newLedger(t)) })
	t.Run("Rotate", func(t *testing.T) { testRotate(t, newLedger(t)) })
	t.Run("ConcurrentRotateSingleWinner", func(t *testing.T) { testConcurrentRotate(t, newLedger(t)) })
	t.Run("RevokeAllForIdentity", func(t *testing.T) { testRevokeAll(t, newLedger(t)) })
	t.Run("RetainsRevokedAndExpired", func(t *testing.T) { testRetention(t, newLedger(t)) })
}

// Record builds a fixture record with second-precision timestamps.
func Record(tokenID string, identityID int64) session.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return session.Record{
		TokenID:    tokenID,
		IdentityID: identityID,
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
	}
}

func tid(n int) string {
	return fmt.Sprintf("%064x", n)
}

func testInsertAndFind(t *testing.T, l session.Ledger) {
	ctx := context.Background()
	rec := Record(tid(1), 7)
	if err := l.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := l.FindByTokenID(ctx, rec.TokenID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.TokenID != rec.TokenID || got.IdentityID != 7 || got.Revoked {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.ExpiresAt.Equal(rec.ExpiresAt) || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("timestamps not preserved: got %v/%v want %v/%v", got.ExpiresAt, got.CreatedAt, rec.ExpiresAt, rec.CreatedAt)
	}
}

func testDuplicateInsert(t *testing.T, l session.Ledger) {
	ctx := context.Background()
	rec := Record(tid(2), 7)
	if err := l.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := l.Insert(ctx, rec); !errors.Is(err, session.ErrDuplicateTokenID) {
		t.Fatalf("expected ErrDuplicateTokenID, got %v", err)
	}
}

func testFindUnknown(t *testing.T, l session.Ledger) {
	if _, err := l.FindByTokenID(context.Background(), tid(404)); !errors.Is(err, session.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func testRevokeIfActive(t *testing.T, l session.Ledger) {
	ctx := context.Background()
	rec := Record(tid(3), 7)
	if err := l.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := l.RevokeIfActive(ctx, rec.TokenID)
	if err != nil || !ok {
		t.Fatalf("first revoke: ok=%v err=%v", ok, err)
	}
	ok, err = l.RevokeIfActive(ctx, rec.TokenID)
	if err != nil || ok {
		t.Fatalf("second revoke must be a no-op: ok=%v err=%v", ok, err)
	}
	ok, err = l.RevokeIfActive(ctx, tid(999))
	if err != nil || ok {
		t.Fatalf("unknown revoke must be a no-op: ok=%v err=%v", ok, err)
	}

	got, err := l.FindByTokenID(ctx, rec.TokenID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Revoked {
		t.Fatal("expected record to be revoked")
	}
}

func testConcurrentRevoke(t *testing.T, l session.Ledger) {
	ctx := context.Background()
	rec := Record(tid(4), 7)
	if err := l.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const workers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		start = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := l.RevokeIfActive(ctx, rec.TokenID)
			if err != nil {
				t.Errorf("revoke: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func testRotate(t *testing.T, l session.Ledger) {
	r, ok := l.(session.Rotator)
	if !ok {
		t.Skip("ledger does not implement Rotator")
	}
	ctx := context.Background()
	old := Record(tid(5), 7)
	if err := l.Insert(ctx, old); err != nil {
		t.Fatalf("insert: %v", err)
	}

	next := Record(tid(6), 7)
	won, err := r.Rotate(ctx, old.TokenID, next)
	if err != nil || !won {
		t.Fatalf("rotate: won=%v err=%v", won, err)
	}
	if _, err := l.FindByTokenID(ctx, next.TokenID); err != nil {
		t.Fatalf("successor missing: %v", err)
	}

	again := Record(tid(7), 7)
	won, err = r.Rotate(ctx, old.TokenID, again)
	if err != nil || won {
		t.Fatalf("second rotate must lose: won=%v err=%v", won, err)
	}
	if _, err := l.FindByTokenID(ctx, again.TokenID); !errors.Is(err, session.ErrRecordNotFound) {
		t.Fatalf("losing rotate must not insert successor, got %v", err)
	}
}

func testConcurrentRotate(t *testing.T, l session.Ledger) {
	r, ok := l.(session.Rotator)
	if !ok {
		t.Skip("ledger does not implement Rotator")
	}
	ctx := context.Background()
	old := Record(tid(100), 7)
	if err := l.Insert(ctx, old); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		start   = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		next := Record(tid(200+i), 7)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			won, err := r.Rotate(ctx, old.TokenID, next)
			if err != nil {
				t.Errorf("rotate: %v", err)
				return
			}
			if won {
				mu.Lock()
				winners = append(winners, next.TokenID)
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	present := 0
	for i := 0; i < workers; i++ {
		if _, err := l.FindByTokenID(ctx, tid(200+i)); err == nil {
			present++
		}
	}
	if present != 1 {
		t.Fatalf("expected exactly one successor record, got %d", present)
	}
}

func testRevokeAll(t *testing.T, l session.Ledger) {
	rv, ok := l.(session.IdentityRevoker)
	if !ok {
		t.Skip("ledger does not implement IdentityRevoker")
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.Insert(ctx, Record(tid(300+i), 42)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := l.Insert(ctx, Record(tid(400), 43)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := l.RevokeIfActive(ctx, tid(300)); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	n, err := rv.RevokeAllForIdentity(ctx, 42)
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 newly revoked records, got %d", n)
	}
	other, err := l.FindByTokenID(ctx, tid(400))
	if err != nil || other.Revoked {
		t.Fatalf("other identity must be untouched: %+v err=%v", other, err)
	}
}

func testRetention(t *testing.T, l session.Ledger) {
	ctx := context.Background()
	rec := Record(tid(500), 7)
	rec.CreatedAt = rec.CreatedAt.Add(-48 * time.Hour)
	rec.ExpiresAt = rec.CreatedAt.Add(time.Hour)
	if err := l.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if won, err := l.RevokeIfActive(ctx, rec.TokenID); err != nil || !won {
		t.Fatalf("revoke: won=%v err=%v", won, err)
	}

	got, err := l.FindByTokenID(ctx, rec.TokenID)
	if err != nil {
		t.Fatalf("revoked and expired record must stay in the ledger: %v", err)
	}
	if !got.Revoked || !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := l.Insert(ctx, rec); !errors.Is(err, session.ErrDuplicateTokenID) {
		t.Fatalf("retained token id must not be reusable, got %v", err)
	}
}
