package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/arvales/tabguard"
	"github.com/arvales/tabguard/authapi"
	"github.com/arvales/tabguard/store"
)

func newTestEngine(t *testing.T, role string) *tabguard.Engine {
	t.Helper()

	authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": "tok-123",
				"user":  map[string]string{"id": "u-1", "name": "Alice", "role": role},
			})
		case "/auth/verify-session":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(authServer.Close)

	engine, err := tabguard.New().
		WithStore(store.NewProfile().Open()).
		WithAuthAPI(authapi.NewClient(authServer.URL)).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func login(t *testing.T, engine *tabguard.Engine) {
	t.Helper()
	if _, err := engine.Login(context.Background(), "alice@example.com", "pw", ""); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestProtect_AuthorizedRequestPassesWithSession(t *testing.T) {
	engine := newTestEngine(t, "admin")
	login(t, engine)

	var seen *tabguard.Session
	handler := Protect(engine, tabguard.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.User.ID != "u-1" {
		t.Fatalf("session not attached to context: %+v", seen)
	}
}

func TestProtect_NoSessionRedirectsToEntry(t *testing.T) {
	engine := newTestEngine(t, "admin")

	handler := Protect(engine, tabguard.RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	target, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	if target.Path != "/login" {
		t.Fatalf("redirect path = %q, want /login", target.Path)
	}
	if target.Query().Get("reason") == "" {
		t.Fatal("redirect carries no reason")
	}
}

func TestProtect_RoleMismatchRedirectsWithAccessDenied(t *testing.T) {
	engine := newTestEngine(t, "shopOwner")
	login(t, engine)

	handler := Protect(engine, tabguard.RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for the wrong role")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	target, _ := url.Parse(rec.Header().Get("Location"))
	if target.Query().Get("reason") != "Access denied." {
		t.Fatalf("reason = %q", target.Query().Get("reason"))
	}

	// The mismatched session counts as untrusted and is gone.
	if _, ok, _ := engine.CurrentSession(context.Background()); ok {
		t.Fatal("mismatched session survived")
	}
}

func TestProtect_NilEngineRejects(t *testing.T) {
	handler := Protect(nil, tabguard.RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLandingRedirect_AuthenticatedUserSkipsLoginForm(t *testing.T) {
	engine := newTestEngine(t, "shopOwner")
	login(t, engine)

	handler := LandingRedirect(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("login form must not render for an authenticated user")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/shop" {
		t.Fatalf("redirect = %q, want /shop", loc)
	}
}

func TestLandingRedirect_AnonymousFallsThrough(t *testing.T) {
	engine := newTestEngine(t, "admin")

	served := false
	handler := LandingRedirect(engine)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		served = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if !served || rec.Code != http.StatusOK {
		t.Fatalf("login form not served (served=%v, code=%d)", served, rec.Code)
	}
}
