package tabguard

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"

	"github.com/arvales/tabguard/clock"
	"github.com/arvales/tabguard/internal"
	"github.com/arvales/tabguard/store"
)

// challengeIssuer manages the step-up security code: at most one code per
// profile, delivered over the notifier side channel and never returned to
// the login caller.
type challengeIssuer struct {
	store    store.Store
	clock    clock.Clock
	config   ChallengeConfig
	notifier Notifier
}

func newChallengeIssuer(s store.Store, c clock.Clock, cfg ChallengeConfig, n Notifier) *challengeIssuer {
	if n == nil {
		n = NoOpNotifier{}
	}
	return &challengeIssuer{store: s, clock: c, config: cfg, notifier: n}
}

// Issue generates a fresh code, persists it (replacing any previous one),
// and hands it to the notifier. Delivery failure leaves no persisted code
// behind, so the caller can retry cleanly.
func (c *challengeIssuer) Issue(ctx context.Context, email string) error {
	code, err := internal.NewNumericCode(c.config.Digits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	issued := c.clock.Now()
	if err := c.store.Set(ctx, store.KeyChallengeCode, code); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	if err := c.store.Set(ctx, store.KeyChallengeIssued, formatMillis(issued)); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	delivery := ChallengeDelivery{
		DeliveryID: uuid.NewString(),
		Email:      email,
		Code:       code,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(c.config.TTL),
	}
	if err := c.notifier.Deliver(ctx, delivery); err != nil {
		_ = c.Clear(ctx)
		return fmt.Errorf("%w: delivery failed: %v", ErrChallengeUnavailable, err)
	}

	return nil
}

// Current returns the persisted challenge, if any. Records with an
// unparsable timestamp are purged and reported as absent.
func (c *challengeIssuer) Current(ctx context.Context) (SecurityChallenge, bool, error) {
	code, ok, err := c.store.Get(ctx, store.KeyChallengeCode)
	if err != nil {
		return SecurityChallenge{}, false, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	if !ok {
		return SecurityChallenge{}, false, nil
	}

	raw, ok, err := c.store.Get(ctx, store.KeyChallengeIssued)
	if err != nil {
		return SecurityChallenge{}, false, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	if !ok {
		if err := c.Clear(ctx); err != nil {
			return SecurityChallenge{}, false, err
		}
		return SecurityChallenge{}, false, nil
	}

	issued, convErr := parseMillis(raw)
	if convErr != nil {
		if err := c.Clear(ctx); err != nil {
			return SecurityChallenge{}, false, err
		}
		return SecurityChallenge{}, false, nil
	}

	return SecurityChallenge{Code: code, IssuedAt: issued}, true, nil
}

// Valid reports whether the challenge is still within its TTL.
func (c *challengeIssuer) Valid(challenge SecurityChallenge) bool {
	age := c.clock.Now().Sub(challenge.IssuedAt)
	return age >= 0 && age <= c.config.TTL
}

// Verify checks a submitted code against the persisted challenge. A match
// against an expired challenge is still a mismatch.
func (c *challengeIssuer) Verify(ctx context.Context, submitted string) (bool, error) {
	challenge, ok, err := c.Current(ctx)
	if err != nil {
		return false, err
	}
	if !ok || !c.Valid(challenge) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(submitted)) == 1, nil
}

// Clear removes any persisted challenge.
func (c *challengeIssuer) Clear(ctx context.Context) error {
	err := c.store.Delete(ctx, store.KeyChallengeCode, store.KeyChallengeIssued)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return nil
}
