package store

import (
	"context"
	"errors"
)

// Logical keys for everything tabguard persists. Values are opaque strings;
// callers treat every read as untrusted and purge on decode failure.
const (
	KeyToken            = "session.token"
	KeyUser             = "session.user"
	KeyExpiresAt        = "session.expires_at"
	KeyFailureCount     = "attempts.failure_count"
	KeyLockoutExpiresAt = "attempts.lockout_expires_at"
	KeyChallengeCode    = "challenge.code"
	KeyChallengeIssued  = "challenge.issued_at"
)

// SessionKeys lists the keys that make up one persisted session. They are
// written and purged together: a session missing any of them is malformed.
var SessionKeys = []string{KeyToken, KeyUser, KeyExpiresAt}

// AllKeys lists every key tabguard owns, in purge order for full resets.
var AllKeys = []string{
	KeyToken, KeyUser, KeyExpiresAt,
	KeyFailureCount, KeyLockoutExpiresAt,
	KeyChallengeCode, KeyChallengeIssued,
}

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// Event is one change-feed notification. Writer identifies the store handle
// that performed the write; subscribers never receive their own writes.
type Event struct {
	Writer string
	Key    string
}

// Subscription is a live change feed. Close releases it; the Events channel
// is closed afterwards.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Store is the persistent client store port. One Store value represents one
// window's handle onto the shared profile; WriterID distinguishes handles
// for change-feed filtering.
type Store interface {
	WriterID() string
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error

	// Incr atomically increments the integer counter at key and returns the
	// new value. A missing key counts from zero. Guards the read-increment-
	// write sequence against concurrent writers.
	Incr(ctx context.Context, key string) (int64, error)

	// Delete removes all given keys in one operation. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Subscribe opens the change feed for writes made by other handles of
	// the same profile. The feed stays open until the Subscription is closed
	// or ctx is cancelled.
	Subscribe(ctx context.Context) (Subscription, error)
}
