package tabguard

import (
	"context"
	"errors"
	"testing"

	"github.com/arvales/tabguard/authapi"
)

func TestLogin_SuccessPersistsSession(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	session, err := env.engine.Login(ctx, "alice@example.com", "correct-horse", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.Token == "" || session.User.ID != "u-1" {
		t.Fatalf("unexpected session %+v", session)
	}

	loaded, ok, err := env.engine.CurrentSession(ctx)
	if err != nil || !ok {
		t.Fatalf("CurrentSession after login: ok=%v err=%v", ok, err)
	}
	if loaded.Token != session.Token || loaded.User != session.User {
		t.Fatalf("persisted session differs: %+v vs %+v", loaded, session)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success counter = %d", snap.Counters[MetricLoginSuccess])
	}
}

func TestLogin_NetworkFailureDoesNotCountAsAttempt(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	env.api.setTransportDown(true)

	_, err := env.engine.Login(ctx, "alice@example.com", "correct-horse", "")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}

	state, err := env.engine.AttemptState(ctx)
	if err != nil {
		t.Fatalf("AttemptState failed: %v", err)
	}
	if state.FailureCount != 0 {
		t.Fatalf("network failure counted as attempt: %+v", state)
	}

	// Back online, the account is in no worse shape than before.
	env.api.setTransportDown(false)
	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("login after recovery failed: %v", err)
	}
}

func TestLogin_UnknownRoleRejectedWithoutPersisting(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	env.api.mu.Lock()
	env.api.password = "correct-horse"
	env.api.mu.Unlock()

	badRole := &roleOverrideAPI{inner: env.api, role: "superuser"}
	env.engine.api = badRole

	_, err := env.engine.Login(ctx, "alice@example.com", "correct-horse", "")
	if !errors.Is(err, ErrMalformedSession) {
		t.Fatalf("expected ErrMalformedSession for unknown role, got %v", err)
	}

	if _, ok, _ := env.engine.CurrentSession(ctx); ok {
		t.Fatal("session must not persist with an unknown role")
	}
}

func TestLogin_UserMessageMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidCredentials, "Invalid email or password."},
		{ErrAccountLocked, "Too many failed attempts. Account temporarily locked."},
		{ErrChallengeRequired, "Security verification required."},
		{ErrChallengeInvalid, "Security code expired or incorrect."},
		{ErrNetwork, "Could not reach the server. Check your connection."},
		{ErrRoleMismatch, "Access denied."},
		{errors.New("anything else"), "Authentication error. Please log in again."},
		{nil, ""},
	}

	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

// roleOverrideAPI rewrites the role in login responses.
type roleOverrideAPI struct {
	inner *fakeAuthAPI
	role  string
}

func (a *roleOverrideAPI) Login(ctx context.Context, email, password, code string) (*authapi.LoginResponse, error) {
	resp, err := a.inner.Login(ctx, email, password, code)
	if err != nil {
		return nil, err
	}
	resp.User.Role = a.role
	return resp, nil
}

func (a *roleOverrideAPI) VerifySession(ctx context.Context, token string) (bool, error) {
	return a.inner.VerifySession(ctx, token)
}
