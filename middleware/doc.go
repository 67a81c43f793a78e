// Package middleware exposes HTTP middleware adapters for route protection
// built on top of tabguard.Engine session classification.
//
// # Guards
//
//   - [Protect]: requires a valid session with the given role; otherwise
//     redirects to the engine's entry route with a reason query parameter.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// classify sessions itself; all decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Read or write the session store directly.
//   - Talk to the remote auth service.
//   - Make authorization decisions beyond pass/redirect from the Engine.
package middleware
