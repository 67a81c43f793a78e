package tabguard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arvales/tabguard/bus"
	"github.com/arvales/tabguard/store"
)

type sessionStatus int

const (
	sessionAbsent sessionStatus = iota
	sessionMalformed
	sessionExpired
	sessionOK
)

// persistSession writes the three session keys and returns the in-memory
// session. The expiry is issue time plus the configured lifetime; when the
// token itself carries an earlier exp claim and TrustTokenExpiry is on,
// the earlier of the two wins.
func (e *Engine) persistSession(ctx context.Context, token string, user User) (*Session, error) {
	now := e.clock.Now()
	expiresAt := now.Add(e.config.Session.Lifetime)

	if e.config.Session.TrustTokenExpiry {
		if hint, ok := tokenExpiryHint(token); ok && hint.Before(expiresAt) && hint.After(now) {
			expiresAt = hint
		}
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}

	if err := e.store.Set(ctx, store.KeyToken, token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.store.Set(ctx, store.KeyUser, string(userJSON)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.store.Set(ctx, store.KeyExpiresAt, formatMillis(expiresAt)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Session{
		Token:     token,
		User:      user,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// tokenExpiryHint extracts the exp claim without verifying the signature.
// Verification is the server's job; the claim only tightens the local
// expiry so the client never believes a session outlives its token.
func tokenExpiryHint(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// readSession loads and classifies the persisted session. A malformed or
// expired record never surfaces as a session; Malformed additionally means
// the record must be purged.
func (e *Engine) readSession(ctx context.Context) (*Session, sessionStatus, error) {
	token, okToken, err := e.store.Get(ctx, store.KeyToken)
	if err != nil {
		return nil, sessionAbsent, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	userRaw, okUser, err := e.store.Get(ctx, store.KeyUser)
	if err != nil {
		return nil, sessionAbsent, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	expiryRaw, okExpiry, err := e.store.Get(ctx, store.KeyExpiresAt)
	if err != nil {
		return nil, sessionAbsent, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !okToken && !okUser && !okExpiry {
		return nil, sessionAbsent, nil
	}
	if !okToken || !okUser || !okExpiry {
		return nil, sessionMalformed, nil
	}

	var user User
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil || !user.Role.Valid() || user.ID == "" {
		return nil, sessionMalformed, nil
	}
	expiresAt, err := parseMillis(expiryRaw)
	if err != nil {
		return nil, sessionMalformed, nil
	}

	session := &Session{Token: token, User: user, ExpiresAt: expiresAt}
	if session.Expired(e.clock.Now()) {
		return session, sessionExpired, nil
	}
	return session, sessionOK, nil
}

// CurrentSession returns the persisted session, or ok=false when none is
// usable. Malformed records are purged on sight; expired ones are reported
// as absent but kept for the guard to classify.
func (e *Engine) CurrentSession(ctx context.Context) (*Session, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, ErrEngineNotReady
	}

	session, status, err := e.readSession(ctx)
	if err != nil {
		return nil, false, err
	}

	switch status {
	case sessionOK:
		return session, true, nil
	case sessionMalformed:
		e.metricInc(MetricMalformedSession)
		if err := e.purgeSession(ctx); err != nil {
			return nil, false, err
		}
		e.emitAudit(ctx, auditEventSessionPurged, true, "", "", ErrMalformedSession, nil)
		return nil, false, nil
	default:
		return nil, false, nil
	}
}

// Resume silently validates the persisted session against the server, the
// check a window performs on load. A server rejection purges the session.
// A transport failure keeps it: the session stays trusted locally until a
// verdict says otherwise.
func (e *Engine) Resume(ctx context.Context) (*Session, bool, error) {
	session, ok, err := e.CurrentSession(ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	valid, err := e.api.VerifySession(ctx, session.Token)
	if err != nil {
		e.metricInc(MetricNetworkError)
		return session, true, nil
	}
	if !valid {
		e.metricInc(MetricRemoteVerifyFailure)
		if err := e.purgeSession(ctx); err != nil {
			return nil, false, err
		}
		e.emitAudit(ctx, auditEventRemoteVerifyFailed, false, session.User.ID, "", ErrRemoteVerification, nil)
		return nil, false, nil
	}

	e.metricInc(MetricSessionResumed)
	e.emitAudit(ctx, auditEventSessionResumed, true, session.User.ID, "", nil, nil)
	return session, true, nil
}

// Logout purges the persisted session and then broadcasts the force-logout
// notification. Purge first: by the time any other window reacts, the
// shared state is already gone.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	session, _, err := e.readSession(ctx)
	if err != nil {
		return err
	}
	var userID string
	if session != nil {
		userID = session.User.ID
	}

	if err := e.store.Delete(ctx, store.AllKeys...); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metricInc(MetricSessionPurged)
	e.metricInc(MetricLogout)
	e.bus.Publish(bus.TopicForceLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
	return nil
}

// purgeSession removes the session keys only; failure tracking and any
// open challenge survive.
func (e *Engine) purgeSession(ctx context.Context) error {
	if err := e.store.Delete(ctx, store.SessionKeys...); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metricInc(MetricSessionPurged)
	return nil
}
