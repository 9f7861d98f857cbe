package secureauthx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func registerUser(t *testing.T, e *testEngine) *TokenPair {
	t.Helper()
	pair, err := e.Register(context.Background(), "user@example.com", "Password123!")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return pair
}

func TestRefreshRotatesAndIsSingleUse(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	first := registerUser(t, e)

	second, err := e.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	if _, err := e.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected replay to be rejected, got %v", err)
	}
	if _, err := e.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("successor refresh failed: %v", err)
	}
	if got := e.metrics.Value(MetricRefreshReplayDetected); got != 1 {
		t.Fatalf("expected one replay detection, got %d", got)
	}
}

func TestRefreshRejections(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	pair := registerUser(t, e)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"access token": pair.AccessToken,
	} {
		if _, err := e.Refresh(ctx, token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}

	e.dir.setActive(1, false)
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected inactive identity to be rejected, got %v", err)
	}
	e.dir.setActive(1, true)
	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("a rejected attempt must not consume the token: %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	e := newTestEngine(t, testConfig())
	pair := registerUser(t, e)

	e.clock.Advance(e.RefreshTTL())
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired refresh token to be rejected, got %v", err)
	}
}

func TestTokenLifetimesMatchTTL(t *testing.T) {
	e := newTestEngine(t, testConfig())
	pair := registerUser(t, e)

	access, err := e.jwtManager.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	refresh, err := e.jwtManager.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if got := access.ExpiresAt.Sub(access.IssuedAt); got != 15*time.Minute {
		t.Fatalf("access exp-iat = %v", got)
	}
	if got := refresh.ExpiresAt.Sub(refresh.IssuedAt); got != 30*24*time.Hour {
		t.Fatalf("refresh exp-iat = %v", got)
	}
	if !pair.AccessExpiresAt.Equal(access.ExpiresAt) || !pair.RefreshExpiresAt.Equal(refresh.ExpiresAt) {
		t.Fatal("pair expiry fields must match token claims")
	}
}

func TestValidateAccess(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	pair := registerUser(t, e)

	view, err := e.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if view.ID != 1 || view.Email != "user@example.com" || view.IsAdmin || !view.IsActive {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := e.ValidateAccess(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected empty token rejection, got %v", err)
	}
	if _, err := e.ValidateAccess(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected refresh token rejection, got %v", err)
	}

	e.dir.setActive(1, false)
	if _, err := e.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected inactive rejection, got %v", err)
	}
	e.dir.setActive(1, true)

	e.clock.Advance(e.AccessTTL())
	if _, err := e.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired rejection, got %v", err)
	}
}

func TestValidateAccessIgnoresLedger(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	pair := registerUser(t, e)

	if err := e.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := e.ValidateAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("access token must stay valid until expiry: %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	pair := registerUser(t, e)

	if _, err := e.RequireAdmin(ctx, pair.AccessToken); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if _, err := e.RequireAdmin(ctx, "bogus"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	e.dir.setAdmin(1, true)
	admin, err := e.Login(ctx, "user@example.com", "Password123!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	view, err := e.RequireAdmin(ctx, admin.AccessToken)
	if err != nil || !view.IsAdmin {
		t.Fatalf("expected admin access, got %+v %v", view, err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	pair := registerUser(t, e)

	for i := 0; i < 3; i++ {
		if err := e.Logout(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("Logout #%d failed: %v", i+1, err)
		}
	}
	for _, token := range []string{"", "garbage", pair.AccessToken} {
		if err := e.Logout(ctx, token); err != nil {
			t.Fatalf("Logout(%q) must succeed silently, got %v", token, err)
		}
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}
	if got := e.metrics.Value(MetricSessionRevoked); got != 1 {
		t.Fatalf("expected exactly one revocation, got %d", got)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()
	first := registerUser(t, e)
	second, err := e.Login(ctx, "user@example.com", "Password123!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	n, err := e.RevokeAllSessions(ctx, 1)
	if err != nil {
		t.Fatalf("RevokeAllSessions failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", n)
	}
	for _, p := range []*TokenPair{first, second} {
		if _, err := e.Refresh(ctx, p.RefreshToken); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected revoked token to fail, got %v", err)
		}
	}
	if n, _ := e.RevokeAllSessions(ctx, 1); n != 0 {
		t.Fatalf("expected second revoke-all to be a no-op, got %d", n)
	}
}

func TestAuditEventsCarryReasonAndRequestID(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(64)
	e := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithRequestID(WithClientIP(context.Background(), "203.0.113.9"), "req-1")
	pair, err := e.Register(ctx, "user@example.com", "Password123!")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected replay rejection, got %v", err)
	}
	e.Close()

	var replay *AuditEvent
	seen := 0
	for len(sink.Events()) > 0 {
		ev := <-sink.Events()
		seen++
		if ev.RequestID != "req-1" || ev.IP != "203.0.113.9" {
			t.Fatalf("missing request context on %+v", ev)
		}
		if len(ev.TokenID) > tokenIDPrefixLen {
			t.Fatalf("token id must be truncated, got %q", ev.TokenID)
		}
		if ev.EventType == auditEventRefreshReplay {
			ev := ev
			replay = &ev
		}
	}
	if seen != 3 {
		t.Fatalf("expected 3 audit events, got %d", seen)
	}
	if replay == nil || replay.Metadata["reason"] != "record_revoked" || replay.IdentityID != 1 {
		t.Fatalf("unexpected replay event: %+v", replay)
	}
}
