package tabguard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arvales/tabguard/clock"
	"github.com/arvales/tabguard/store"
)

// attemptTracker maintains the persisted consecutive-failure counter and
// the lockout window derived from it. All state lives in the store so
// every engine instance sharing the profile sees the same counts.
type attemptTracker struct {
	store  store.Store
	clock  clock.Clock
	config LockoutConfig
}

func newAttemptTracker(s store.Store, c clock.Clock, cfg LockoutConfig) *attemptTracker {
	return &attemptTracker{store: s, clock: c, config: cfg}
}

// CurrentState reads the persisted failure state. An expired lockout is
// cleared in place: both the counter and the lockout timestamp are deleted
// so the next failure starts a fresh streak. Unparsable values are treated
// as absent and purged.
func (t *attemptTracker) CurrentState(ctx context.Context) (LoginAttemptState, error) {
	var state LoginAttemptState

	raw, ok, err := t.store.Get(ctx, store.KeyFailureCount)
	if err != nil {
		return state, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ok {
		count, convErr := strconv.Atoi(raw)
		if convErr != nil || count < 0 {
			if err := t.reset(ctx); err != nil {
				return state, err
			}
			return LoginAttemptState{}, nil
		}
		state.FailureCount = count
	}

	raw, ok, err = t.store.Get(ctx, store.KeyLockoutExpiresAt)
	if err != nil {
		return LoginAttemptState{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return state, nil
	}

	until, convErr := parseMillis(raw)
	if convErr != nil {
		if err := t.reset(ctx); err != nil {
			return LoginAttemptState{}, err
		}
		return LoginAttemptState{}, nil
	}

	if !t.clock.Now().Before(until) {
		// Lockout has lapsed. Clear the whole record so the streak restarts.
		if err := t.reset(ctx); err != nil {
			return LoginAttemptState{}, err
		}
		return LoginAttemptState{}, nil
	}

	state.Locked = true
	state.LockedUntil = until
	return state, nil
}

// RecordFailure registers one rejected login and reports the resulting
// state. The lockout window opens exactly once, when the counter first
// reaches the threshold; later failures inside the window never extend it.
func (t *attemptTracker) RecordFailure(ctx context.Context) (LoginAttemptState, error) {
	// Lapsed windows must clear before counting, otherwise the stale
	// counter would re-lock immediately.
	state, err := t.CurrentState(ctx)
	if err != nil {
		return LoginAttemptState{}, err
	}

	count, err := t.store.Incr(ctx, store.KeyFailureCount)
	if err != nil {
		return LoginAttemptState{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	state.FailureCount = int(count)

	if state.Locked || count < int64(t.config.MaxAttempts) {
		return state, nil
	}

	raw, ok, err := t.store.Get(ctx, store.KeyLockoutExpiresAt)
	if err != nil {
		return LoginAttemptState{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ok {
		if until, convErr := parseMillis(raw); convErr == nil && t.clock.Now().Before(until) {
			state.Locked = true
			state.LockedUntil = until
			return state, nil
		}
	}

	until := t.clock.Now().Add(t.config.LockoutDuration)
	if err := t.store.Set(ctx, store.KeyLockoutExpiresAt, formatMillis(until)); err != nil {
		return LoginAttemptState{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	state.Locked = true
	state.LockedUntil = until
	return state, nil
}

// RecordSuccess clears the failure streak and any open challenge in one
// store operation.
func (t *attemptTracker) RecordSuccess(ctx context.Context) error {
	err := t.store.Delete(ctx,
		store.KeyFailureCount,
		store.KeyLockoutExpiresAt,
		store.KeyChallengeCode,
		store.KeyChallengeIssued,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RemainingLockout returns how long the current lockout window has left,
// or zero when the account is not locked.
func (t *attemptTracker) RemainingLockout(ctx context.Context) (time.Duration, error) {
	state, err := t.CurrentState(ctx)
	if err != nil {
		return 0, err
	}
	if !state.Locked {
		return 0, nil
	}
	return state.LockedUntil.Sub(t.clock.Now()), nil
}

func (t *attemptTracker) reset(ctx context.Context) error {
	err := t.store.Delete(ctx, store.KeyFailureCount, store.KeyLockoutExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Timestamps persist as unix milliseconds in decimal form.
func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
