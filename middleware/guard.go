package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/arvales/tabguard"
)

type sessionContextKey struct{}

// SessionFromContext returns the session [Protect] attached to an
// authorized request.
func SessionFromContext(ctx context.Context) (*tabguard.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*tabguard.Session)
	return s, ok
}

// Protect returns middleware that lets a request through only when the
// engine holds a valid session with the required role. Anything else is
// redirected to the engine's entry route with the user-facing reason in
// the "reason" query parameter.
func Protect(engine *tabguard.Engine, requiredRole tabguard.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			var (
				redirectRoute  string
				redirectReason string
			)
			nav := tabguard.NavigatorFunc(func(route, reason string) {
				redirectRoute = route
				redirectReason = reason
			})

			guard, err := engine.NewGuard(r.Context(), requiredRole, nav)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			defer guard.Close()

			if guard.State() != tabguard.StateAuthorized {
				http.Redirect(w, r, redirectTarget(engine, redirectRoute, redirectReason), http.StatusSeeOther)
				return
			}

			session, ok, err := engine.CurrentSession(r.Context())
			if err != nil || !ok {
				http.Redirect(w, r, redirectTarget(engine, "", ""), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LandingRedirect sends an already authenticated user from the entry route
// to their role's home route. Requests without a usable session fall
// through to the wrapped handler (the login form).
func LandingRedirect(engine *tabguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if session, ok, err := engine.CurrentSession(r.Context()); err == nil && ok {
					http.Redirect(w, r, engine.LandingRoute(session.User.Role), http.StatusSeeOther)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirectTarget(engine *tabguard.Engine, route, reason string) string {
	if route == "" {
		route = engine.EntryRoute()
	}
	if reason == "" {
		return route
	}
	return route + "?reason=" + url.QueryEscape(reason)
}
