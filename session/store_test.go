package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/secureauthx/secureauthx/session"
	"github.com/secureauthx/secureauthx/session/ledgertest"
)

func newRedisStore(t *testing.T, retention time.Duration) (*session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return session.NewStore(rdb, "sax", retention), mr
}

func TestRedisStoreLedger(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) session.Ledger {
		store, _ := newRedisStore(t, 0)
		return store
	})
}

func TestRedisStoreRetentionSetsExpiry(t *testing.T) {
	store, mr := newRedisStore(t, 24*time.Hour)
	rec := ledgertest.Record("aa", 1)
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ttl := mr.TTL("sax:rt:aa"); ttl <= 0 {
		t.Fatalf("expected positive TTL, got %v", ttl)
	}
}

func TestRedisStoreKeepsRecordsWithoutRetention(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	ctx := context.Background()
	rec := ledgertest.Record("bb", 1)
	rec.ExpiresAt = rec.CreatedAt.Add(-time.Minute)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.RevokeIfActive(ctx, "bb"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ttl := mr.TTL("sax:rt:bb"); ttl != 0 {
		t.Fatalf("expected no TTL, got %v", ttl)
	}

	mr.FastForward(365 * 24 * time.Hour)
	got, err := store.FindByTokenID(ctx, "bb")
	if err != nil {
		t.Fatalf("record dropped: %v", err)
	}
	if !got.Revoked {
		t.Fatalf("expected revoked record, got %+v", got)
	}
}

func TestRedisStoreActiveIndex(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	ctx := context.Background()

	if err := store.Insert(ctx, ledgertest.Record("a", 5)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, ledgertest.Record("b", 5)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.RevokeIfActive(ctx, "a"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ids, err := store.ActiveTokenIDs(ctx, 5)
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("expected only b to remain indexed, got %v", ids)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	mr.Close()

	if _, err := store.FindByTokenID(context.Background(), "a"); !errors.Is(err, session.ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.RevokeIfActive(context.Background(), "a"); !errors.Is(err, session.ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure")
	}
}
