// Package bus is the process-wide signal channel for same-window events.
// A window's own store writes do not come back on the store change feed, so
// components mounted in that window (guards, layout chrome) subscribe here
// for signals like force-logout that originate locally.
//
// # What this package must NOT do
//
//   - Cross process boundaries; that is the store change feed's job.
//   - Retain events for late subscribers; delivery is fire-and-forget.
package bus
