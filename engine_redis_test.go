package tabguard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/arvales/tabguard/clock"
	"github.com/arvales/tabguard/store"
)

// Two engines in notionally different processes, sharing one Redis-backed
// profile. Logout in one must invalidate the other through pub/sub.
func TestEngines_SharedRedisProfileLogoutPropagates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := newFakeAuthAPI()
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	build := func() *Engine {
		engine, err := New().
			WithConfig(testConfig()).
			WithStore(store.NewRedis(rdb, "profile-1")).
			WithAuthAPI(api).
			WithClock(clk).
			Build(ctx)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		t.Cleanup(engine.Close)
		return engine
	}

	windowA := build()
	windowB := build()

	if _, err := windowA.Login(ctx, "alice@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, ok, err := windowB.CurrentSession(ctx); err != nil || !ok {
		t.Fatalf("window B does not see the shared session (ok=%v, err=%v)", ok, err)
	}

	seen := make(chan bool, 16)
	remove, err := windowA.OnSessionChange(func(valid bool) { seen <- valid })
	if err != nil {
		t.Fatalf("OnSessionChange failed: %v", err)
	}
	defer remove()

	if err := windowB.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	waitValidity(t, seen, false)

	if _, ok, _ := windowA.CurrentSession(ctx); ok {
		t.Fatal("window A still sees a session after the shared purge")
	}
}

func TestEngines_SharedRedisProfileFailureCountIsGlobal(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := newFakeAuthAPI()
	ctx := context.Background()

	build := func() *Engine {
		engine, err := New().
			WithConfig(testConfig()).
			WithStore(store.NewRedis(rdb, "profile-2")).
			WithAuthAPI(api).
			Build(ctx)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		t.Cleanup(engine.Close)
		return engine
	}

	windowA := build()
	windowB := build()

	if _, err := windowA.Login(ctx, "alice@example.com", "wrong", ""); err == nil {
		t.Fatal("expected rejection")
	}
	if _, err := windowB.Login(ctx, "alice@example.com", "wrong", ""); err == nil {
		t.Fatal("expected rejection")
	}

	state, err := windowA.AttemptState(ctx)
	if err != nil {
		t.Fatalf("AttemptState failed: %v", err)
	}
	if state.FailureCount != 2 {
		t.Fatalf("failure count = %d, want 2 across windows", state.FailureCount)
	}
}
