package tabguard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arvales/tabguard/store"
)

// GuardState is the route guard's externally visible state.
type GuardState int

const (
	// StateValidating means a validation pass is in flight; render nothing
	// route-specific yet.
	StateValidating GuardState = iota
	// StateAuthorized means the session satisfies the guarded route.
	StateAuthorized
	// StateRedirecting means the guard decided against the route and asked
	// the navigator to leave it.
	StateRedirecting
)

// String returns the state name for logs.
func (s GuardState) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Navigator receives the guard's redirect decisions. Route is where to go;
// reason is the user-facing message to show there.
type Navigator interface {
	Navigate(route, reason string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(route, reason string)

// Navigate implements [Navigator].
func (f NavigatorFunc) Navigate(route, reason string) { f(route, reason) }

// Guard protects one route in one window. It validates the session when
// created and revalidates on every session-relevant event; only the newest
// validation pass may commit its outcome, so a slow pass can never clobber
// a fresher decision.
type Guard struct {
	engine       *Engine
	requiredRole Role
	nav          Navigator

	gen atomic.Int64

	mu     sync.Mutex
	state  GuardState
	route  string
	reason string

	removeListener func()
	closeOnce      sync.Once
}

// NewGuard creates a guard for a route requiring the given role and runs
// the first validation pass synchronously. The guard stays subscribed to
// session changes until Close.
func (e *Engine) NewGuard(ctx context.Context, requiredRole Role, nav Navigator) (*Guard, error) {
	if e == nil || e.relay == nil {
		return nil, ErrEngineNotReady
	}
	if !requiredRole.Valid() {
		return nil, ErrRoleMismatch
	}
	if nav == nil {
		nav = NavigatorFunc(func(string, string) {})
	}

	g := &Guard{
		engine:       e,
		requiredRole: requiredRole,
		nav:          nav,
		state:        StateValidating,
	}
	g.removeListener = e.relay.AddListener(func(bool) {
		g.Revalidate(context.Background())
	})

	g.Revalidate(ctx)
	return g, nil
}

// State returns the guard's current state.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Redirect returns the route and reason of the latest redirect decision.
// Both are empty unless the guard is redirecting.
func (g *Guard) Redirect() (route, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.route, g.reason
}

// Revalidate runs one validation pass. Safe to call from any goroutine; a
// pass started after this one supersedes it.
func (g *Guard) Revalidate(ctx context.Context) {
	gen := g.gen.Add(1)

	g.commit(gen, StateValidating, "", "")

	started := g.engine.clock.Now()
	state, route, reason := g.evaluate(ctx)
	g.engine.metrics.Observe(MetricValidateLatency, g.engine.clock.Now().Sub(started))

	if !g.commit(gen, state, route, reason) {
		return
	}

	switch state {
	case StateAuthorized:
		g.engine.metricInc(MetricGuardAuthorized)
	case StateRedirecting:
		g.engine.metricInc(MetricGuardRedirect)
		g.engine.emitAudit(ctx, auditEventGuardRedirect, false, "", "", nil, func() map[string]string {
			return map[string]string{
				"route":  route,
				"reason": reason,
			}
		})
		g.nav.Navigate(route, reason)
	}
}

// commit installs the outcome of pass gen unless a newer pass exists.
func (g *Guard) commit(gen int64, state GuardState, route, reason string) bool {
	if g.gen.Load() != gen {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen.Load() != gen {
		return false
	}
	g.state = state
	g.route = route
	g.reason = reason
	return true
}

// evaluate classifies the persisted session against the required role and
// returns the resulting state plus, for redirects, where to go and why.
func (g *Guard) evaluate(ctx context.Context) (GuardState, string, string) {
	e := g.engine
	entry := e.config.Routes.Entry

	session, status, err := e.readSession(ctx)
	if err != nil {
		// Store unreachable. Deny access rather than guess.
		return StateRedirecting, entry, msgAuthError
	}

	switch status {
	case sessionAbsent:
		return StateRedirecting, entry, msgAuthError

	case sessionMalformed:
		e.metricInc(MetricMalformedSession)
		if err := e.purgeSession(ctx); err == nil {
			e.emitAudit(ctx, auditEventSessionPurged, true, "", "", ErrMalformedSession, nil)
		}
		return StateRedirecting, entry, msgSessionInvalid

	case sessionExpired:
		if err := e.purgeSession(ctx); err == nil {
			e.emitAudit(ctx, auditEventSessionPurged, true, session.User.ID, "", nil, nil)
		}
		return StateRedirecting, entry, msgSessionExpired
	}

	if session.User.Role != g.requiredRole {
		// A session on the wrong route is not trusted at all: the full
		// profile resets, the same as a logout.
		e.metricInc(MetricRoleMismatch)
		if err := e.store.Delete(ctx, store.AllKeys...); err == nil {
			e.metricInc(MetricSessionPurged)
			e.emitAudit(ctx, auditEventSessionPurged, true, session.User.ID, "", ErrRoleMismatch, nil)
		}
		return StateRedirecting, entry, msgAccessDenied
	}

	return StateAuthorized, "", ""
}

// Close deregisters the guard from session-change notifications.
func (g *Guard) Close() {
	g.closeOnce.Do(func() {
		if g.removeListener != nil {
			g.removeListener()
		}
	})
}
