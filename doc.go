// Package tabguard implements the client side of a multi-window storefront
// session: login attempt tracking with progressive lockout, a step-up
// security-code challenge, session token lifecycle against a remote auth
// API, and propagation of logout and expiry across every window sharing the
// same profile store.
//
// Each window (browser tab, app window, worker process) holds its own
// [Engine] built through [Builder.Build]. Engines share state only through
// the injected store; the store's change feed is how one window learns about
// another window's logout. Guards created with [Engine.NewGuard] gate
// protected views and redirect with a human-readable reason when the session
// goes away.
//
// # Architecture boundaries
//
// tabguard is the public surface. It exposes [Engine], [Builder], [Config],
// [Guard], and value types (Session, LoginAttemptState, SecurityChallenge).
// Storage backends live under store/, the in-process signal bus under bus/,
// and the remote API port under authapi/. The library never talks to the
// network except through the injected [authapi.API].
//
// # What this package must NOT do
//
//   - Verify credentials itself (the remote auth service owns that).
//   - Echo a generated security code back to the login caller; delivery is
//     the [Notifier]'s job.
//   - Run background expiry sweeps; lockout and session expiry are evaluated
//     lazily on read.
package tabguard
