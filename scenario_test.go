package secureauthx_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/secureauthx/secureauthx"
	"github.com/secureauthx/secureauthx/session"
	"github.com/secureauthx/secureauthx/store/memory"
)

func newScenarioEngine(t testing.TB) *secureauthx.Engine {
	t.Helper()
	cfg := secureauthx.DefaultConfig()
	cfg.JWT.Secret = []byte("scenario-secret-scenario-secret!")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := secureauthx.New().
		WithConfig(cfg).
		WithUserDirectory(memory.NewDirectory()).
		WithLedger(session.NewMemoryLedger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

// TestEndToEndScenario walks register, login, validate, rotate, replay,
// logout and post-logout refresh for one identity.
func TestEndToEndScenario(t *testing.T) {
	engine := newScenarioEngine(t)
	defer engine.Close()
	ctx := secureauthx.WithClientIP(context.Background(), "127.0.0.1")

	if _, err := engine.Register(ctx, "user@example.com", "Password123!"); err != nil {
		t.Fatalf("register: %v", err)
	}

	login, err := engine.Login(ctx, "user@example.com", "Password123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	me, err := engine.ValidateAccess(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if me.Email != "user@example.com" || me.IsAdmin || !me.IsActive {
		t.Fatalf("unexpected identity: %+v", me)
	}

	rotated, err := engine.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatal("refresh must issue a new refresh token")
	}
	if _, err := engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, secureauthx.ErrUnauthorized) {
		t.Fatalf("expected replay of the old refresh token to fail, got %v", err)
	}

	if err := engine.Logout(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := engine.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, secureauthx.ErrUnauthorized) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, ""); !errors.Is(err, secureauthx.ErrUnauthorized) {
		t.Fatalf("expected empty access token to fail, got %v", err)
	}
}

func TestScenarioRepeatsAreSafe(t *testing.T) {
	engine := newScenarioEngine(t)
	defer engine.Close()
	ctx := secureauthx.WithClientIP(context.Background(), "127.0.0.1")

	first, err := engine.Register(ctx, "user@example.com", "Password123!")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := engine.RequireAdmin(ctx, first.AccessToken); !errors.Is(err, secureauthx.ErrAdminRequired) {
		t.Fatalf("expected admin check to fail, got %v", err)
	}

	if err := engine.Logout(ctx, first.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := engine.Logout(ctx, first.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}

	if _, err := engine.Register(ctx, "user@example.com", "Password123!"); !errors.Is(err, secureauthx.ErrAlreadyRegistered) {
		t.Fatalf("expected duplicate registration to fail, got %v", err)
	}
	if _, err := engine.Login(ctx, "user@example.com", "Password123!"); err != nil {
		t.Fatalf("login after logout: %v", err)
	}
}

func ExampleEngine_Refresh() {
	cfg := secureauthx.DefaultConfig()
	cfg.JWT.Secret = []byte("example-secret-example-secret-00")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := secureauthx.New().
		WithConfig(cfg).
		WithUserDirectory(memory.NewDirectory()).
		WithLedger(session.NewMemoryLedger()).
		Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	ctx := context.Background()
	pair, _ := engine.Register(ctx, "user@example.com", "Password123!")

	_, err = engine.Refresh(ctx, pair.RefreshToken)
	fmt.Println("first refresh:", err)

	_, err = engine.Refresh(ctx, pair.RefreshToken)
	fmt.Println("replay:", err)
	// Output:
	// first refresh: <nil>
	// replay: unauthorized
}

func ExampleEngine_RequireAdmin() {
	cfg := secureauthx.DefaultConfig()
	cfg.JWT.Secret = []byte("example-secret-example-secret-00")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	directory := memory.NewDirectory()
	engine, err := secureauthx.New().
		WithConfig(cfg).
		WithUserDirectory(directory).
		WithLedger(session.NewMemoryLedger()).
		Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	ctx := context.Background()
	pair, _ := engine.Register(ctx, "user@example.com", "Password123!")

	_, err = engine.RequireAdmin(ctx, pair.AccessToken)
	fmt.Println("before promotion:", err)

	view, _ := engine.ValidateAccess(ctx, pair.AccessToken)
	_ = directory.SetAdmin(view.ID, true)

	// The directory flag is authoritative; the same token now passes.
	view, err = engine.RequireAdmin(ctx, pair.AccessToken)
	fmt.Println("after promotion:", view.Email, err)
	// Output:
	// before promotion: admin only
	// after promotion: user@example.com <nil>
}
