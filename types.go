package tabguard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/arvales/tabguard/internal/audit"
)

// Role is the storefront role attached to a session.
type Role string

const (
	// RoleAdmin is the platform administrator role.
	RoleAdmin Role = "admin"
	// RoleShopOwner is the shop owner role.
	RoleShopOwner Role = "shopOwner"
)

// Valid reports whether the role is one the platform knows.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleShopOwner
}

// User is the identity attached to a session.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Role        Role   `json:"role"`
}

// Session is the authenticated client state: the bearer token, the user it
// belongs to, and the absolute expiry computed at issue time. A session is
// either fully present or absent; partial persisted records are purged on
// read.
type Session struct {
	Token     string
	User      User
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session's absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// LoginAttemptState is the persisted failure-tracking state. LockedUntil is
// zero unless the failure count reached the lockout threshold and the
// window is still open.
type LoginAttemptState struct {
	FailureCount int
	Locked       bool
	LockedUntil  time.Time
}

// SecurityChallenge is the active step-up code. At most one exists at a
// time; issuing a new one replaces it. The code is delivered through the
// [Notifier] and never returned to the login caller.
type SecurityChallenge struct {
	Code     string
	IssuedAt time.Time
}

// ChallengeDelivery is handed to the [Notifier] when a challenge is issued.
type ChallengeDelivery struct {
	DeliveryID string
	Email      string
	Code       string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Notifier delivers an issued security code over a side channel (e-mail,
// SMS, push). Implementations must not surface the code back into the
// login flow.
type Notifier interface {
	Deliver(ctx context.Context, delivery ChallengeDelivery) error
}

// NoOpNotifier discards deliveries. Only suitable for tests; a production
// deployment must wire a real side channel.
type NoOpNotifier struct{}

// Deliver implements [Notifier].
func (NoOpNotifier) Deliver(context.Context, ChallengeDelivery) error { return nil }

// ChannelNotifier buffers deliveries on a channel for tests and demos.
type ChannelNotifier struct {
	deliveries chan ChallengeDelivery
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelNotifier{deliveries: make(chan ChallengeDelivery, buffer)}
}

// Deliver implements [Notifier].
func (n *ChannelNotifier) Deliver(ctx context.Context, delivery ChallengeDelivery) error {
	select {
	case n.deliveries <- delivery:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliveries returns the delivery channel.
func (n *ChannelNotifier) Deliveries() <-chan ChallengeDelivery {
	return n.deliveries
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
