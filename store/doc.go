// Package store defines the persistent client store port: a durable,
// synchronous key-value store scoped to one user profile, shared by every
// window of that profile, with a change feed observable by every window
// except the one that wrote.
//
// # Backends
//
//   - [Profile]/[Memory]: in-process backend; windows are handles opened on
//     one shared Profile. Used by tests and single-process embedding.
//   - [Redis]: production backend on go-redis; each write publishes on a
//     change channel so other processes' subscriptions see it.
//
// # What this package must NOT do
//
//   - Interpret values (session records, counters); encoding belongs to the
//     callers.
//   - Deliver a change event to the writer that caused it.
package store
