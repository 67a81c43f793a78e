package tabguard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arvales/tabguard/authapi"
)

// Login runs the full login flow: local lockout refusal, step-up challenge
// enforcement, the remote credential exchange, and failure accounting.
//
// securityCode may be empty. While the failure count sits in the elevated
// band a valid code is mandatory and checked locally before any network
// traffic; a locally rejected code never counts as a failed attempt.
// Only an explicit server rejection increments the counter.
func (e *Engine) Login(ctx context.Context, email, password, securityCode string) (*Session, error) {
	if e == nil || e.store == nil || e.api == nil {
		return nil, ErrEngineNotReady
	}

	state, err := e.tracker.CurrentState(ctx)
	if err != nil {
		return nil, err
	}

	if state.Locked {
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", email, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"locked_until": state.LockedUntil.UTC().Format(time.RFC3339),
			}
		})
		return nil, ErrAccountLocked
	}

	if state.FailureCount >= e.config.Challenge.Threshold {
		if err := e.enforceChallenge(ctx, email, securityCode); err != nil {
			return nil, err
		}
	}

	resp, err := e.api.Login(ctx, email, password, securityCode)
	if err != nil {
		return nil, e.handleLoginRejection(ctx, email, err)
	}

	user := User{
		ID:          resp.User.ID,
		DisplayName: resp.User.Name,
		Role:        Role(resp.User.Role),
	}
	if !user.Role.Valid() {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, ErrMalformedSession, nil)
		return nil, fmt.Errorf("%w: unknown role %q", ErrMalformedSession, resp.User.Role)
	}

	session, err := e.persistSession(ctx, resp.Token, user)
	if err != nil {
		return nil, err
	}
	if err := e.tracker.RecordSuccess(ctx); err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, nil, nil)
	return session, nil
}

// enforceChallenge gatekeeps the elevated failure band. It returns nil only
// when a currently valid code was submitted and matched.
func (e *Engine) enforceChallenge(ctx context.Context, email, securityCode string) error {
	challenge, ok, err := e.challenge.Current(ctx)
	if err != nil {
		return err
	}
	hasValid := ok && e.challenge.Valid(challenge)

	if !hasValid {
		if err := e.issueChallenge(ctx, email); err != nil {
			return err
		}
		if securityCode == "" {
			e.metricInc(MetricChallengeRequired)
			e.emitAudit(ctx, auditEventChallengeRequired, false, "", email, ErrChallengeRequired, nil)
			return ErrChallengeRequired
		}
		// The submitted code belonged to an expired challenge. A fresh one
		// is already on its way.
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, auditEventChallengeRejected, false, "", email, ErrChallengeInvalid, nil)
		return ErrChallengeInvalid
	}

	if securityCode == "" {
		e.metricInc(MetricChallengeRequired)
		e.emitAudit(ctx, auditEventChallengeRequired, false, "", email, ErrChallengeRequired, nil)
		return ErrChallengeRequired
	}

	match, err := e.challenge.Verify(ctx, securityCode)
	if err != nil {
		return err
	}
	if !match {
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, auditEventChallengeRejected, false, "", email, ErrChallengeInvalid, nil)
		return ErrChallengeInvalid
	}
	return nil
}

func (e *Engine) issueChallenge(ctx context.Context, email string) error {
	if err := e.challenge.Issue(ctx, email); err != nil {
		return err
	}
	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, "", email, nil, nil)
	return nil
}

// handleLoginRejection classifies a failed remote exchange. Transport
// failures surface as ErrNetwork and leave all persisted state untouched;
// explicit rejections advance the failure counter and may open the lockout
// window or demand a challenge on the next attempt.
func (e *Engine) handleLoginRejection(ctx context.Context, email string, cause error) error {
	var rejected *authapi.RejectedError
	if !errors.As(cause, &rejected) {
		e.metricInc(MetricNetworkError)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrNetwork, nil)
		return fmt.Errorf("%w: %v", ErrNetwork, cause)
	}

	state, err := e.tracker.RecordFailure(ctx)
	if err != nil {
		return err
	}

	e.metricInc(MetricLoginFailure)

	if state.Locked {
		e.metricInc(MetricLockoutStarted)
		e.emitAudit(ctx, auditEventLockoutStarted, false, "", email, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"failure_count": strconv.Itoa(state.FailureCount),
				"locked_until":  state.LockedUntil.UTC().Format(time.RFC3339),
			}
		})
		return ErrAccountLocked
	}

	e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"failure_count": strconv.Itoa(state.FailureCount),
		}
	})

	if state.FailureCount >= e.config.Challenge.Threshold {
		if err := e.issueChallenge(ctx, email); err != nil {
			return err
		}
		e.metricInc(MetricChallengeRequired)
		return ErrChallengeRequired
	}

	return ErrInvalidCredentials
}

// AttemptState exposes the persisted failure-tracking state, for login
// forms that show remaining attempts or a lockout banner.
func (e *Engine) AttemptState(ctx context.Context) (LoginAttemptState, error) {
	if e == nil || e.store == nil {
		return LoginAttemptState{}, ErrEngineNotReady
	}
	return e.tracker.CurrentState(ctx)
}

// StartLockoutCountdown invokes fn with the remaining lockout duration at
// every interval tick, and once more with zero when the window closes. The
// returned stop function releases the ticker; it is also called internally
// when the countdown completes.
func (e *Engine) StartLockoutCountdown(ctx context.Context, interval time.Duration, fn func(remaining time.Duration)) (stop func(), err error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if interval <= 0 {
		interval = time.Second
	}

	remaining, err := e.tracker.RemainingLockout(ctx)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		fn(0)
		return func() {}, nil
	}
	fn(remaining)

	ticker := e.clock.NewTicker(interval)
	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C():
				remaining, err := e.tracker.RemainingLockout(ctx)
				if err != nil {
					continue
				}
				fn(remaining)
				if remaining <= 0 {
					return
				}
			}
		}
	}()

	return func() { stopOnce.Do(func() { close(done) }) }, nil
}
