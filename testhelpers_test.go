package tabguard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arvales/tabguard/authapi"
	"github.com/arvales/tabguard/clock"
	"github.com/arvales/tabguard/store"
)

// fakeAuthAPI is a scriptable stand-in for the remote auth service.
type fakeAuthAPI struct {
	mu sync.Mutex

	// password accepted for any email; everything else is rejected.
	password string
	// transportDown makes every call fail before reaching a verdict.
	transportDown bool
	// verifyValid scripts the verify-session verdict.
	verifyValid bool
	verifyErr   error

	loginCalls  int
	verifyCalls int
}

func newFakeAuthAPI() *fakeAuthAPI {
	return &fakeAuthAPI{password: "correct-horse", verifyValid: true}
}

func (f *fakeAuthAPI) Login(_ context.Context, email, password, _ string) (*authapi.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++

	if f.transportDown {
		return nil, authapi.ErrTransport
	}
	if password != f.password {
		return nil, &authapi.RejectedError{StatusCode: 401, Message: "invalid credentials"}
	}
	return &authapi.LoginResponse{
		Token: "token-for-" + email,
		User:  authapi.UserPayload{ID: "u-1", Name: "Alice", Role: "admin"},
	}, nil
}

func (f *fakeAuthAPI) VerifySession(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++

	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return f.verifyValid, nil
}

func (f *fakeAuthAPI) LoginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

func (f *fakeAuthAPI) setTransportDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transportDown = down
}

func (f *fakeAuthAPI) setVerifyValid(valid bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyValid = valid
}

func (f *fakeAuthAPI) setVerifyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyErr = err
}

// testEnv bundles everything a test needs around one engine.
type testEnv struct {
	engine   *Engine
	api      *fakeAuthAPI
	clock    *clock.Manual
	notifier *ChannelNotifier
	profile  *store.Profile
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistogram = true
	return cfg
}

func newTestEngine(t *testing.T) *testEnv {
	t.Helper()
	return newTestEngineWithConfig(t, testConfig())
}

func newTestEngineWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	env := &testEnv{
		api:      newFakeAuthAPI(),
		clock:    clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		notifier: NewChannelNotifier(8),
		profile:  store.NewProfile(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithStore(env.profile.Open()).
		WithAuthAPI(env.api).
		WithClock(env.clock).
		WithNotifier(env.notifier).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

// openSibling builds a second engine over the same profile, the equivalent
// of opening another window.
func (env *testEnv) openSibling(t *testing.T) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(env.profile.Open()).
		WithAuthAPI(env.api).
		WithClock(env.clock).
		WithNotifier(env.notifier).
		Build(context.Background())
	if err != nil {
		t.Fatalf("sibling Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// failTimes performs n rejected logins.
func (env *testEnv) failTimes(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		code := env.drainCode(t)
		if _, err := env.engine.Login(ctx, "alice@example.com", "wrong", code); err == nil {
			t.Fatalf("failure %d: login unexpectedly succeeded", i+1)
		}
	}
}

// drainCode returns the most recently delivered security code, or "" when
// none was delivered.
func (env *testEnv) drainCode(t *testing.T) string {
	t.Helper()
	code := ""
	for {
		select {
		case d := <-env.notifier.Deliveries():
			code = d.Code
		default:
			return code
		}
	}
}

// waitCode blocks until a code is delivered.
func (env *testEnv) waitCode(t *testing.T) string {
	t.Helper()
	select {
	case d := <-env.notifier.Deliveries():
		return d.Code
	case <-time.After(2 * time.Second):
		t.Fatal("no security code delivered")
		return ""
	}
}
