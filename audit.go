package tabguard

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginLocked        = "login_locked"
	auditEventLockoutStarted     = "lockout_started"
	auditEventChallengeIssued    = "challenge_issued"
	auditEventChallengeRequired  = "challenge_required"
	auditEventChallengeRejected  = "challenge_rejected"
	auditEventSessionCreated     = "session_created"
	auditEventSessionResumed     = "session_resumed"
	auditEventSessionPurged      = "session_purged"
	auditEventSessionInvalidated = "session_invalidated"
	auditEventRemoteVerifyFailed = "remote_verify_failed"
	auditEventLogout             = "logout"
	auditEventGuardRedirect      = "guard_redirect"
)

// AuditErrorCode is the stable machine-readable error label attached to
// audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked        AuditErrorCode = "account_locked"
	auditErrChallengeRequired    AuditErrorCode = "challenge_required"
	auditErrChallengeInvalid     AuditErrorCode = "challenge_invalid"
	auditErrChallengeUnavailable AuditErrorCode = "challenge_unavailable"
	auditErrNetwork              AuditErrorCode = "network_unavailable"
	auditErrMalformedSession     AuditErrorCode = "malformed_session"
	auditErrRoleMismatch         AuditErrorCode = "role_mismatch"
	auditErrRemoteVerification   AuditErrorCode = "remote_verification_failed"
	auditErrStoreUnavailable     AuditErrorCode = "store_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if label := windowLabelFromContext(ctx); label != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["window"] = label
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		WriterID:  e.store.WriterID(),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrChallengeRequired):
		return auditErrChallengeRequired
	case errors.Is(err, ErrChallengeInvalid):
		return auditErrChallengeInvalid
	case errors.Is(err, ErrChallengeUnavailable):
		return auditErrChallengeUnavailable
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrMalformedSession):
		return auditErrMalformedSession
	case errors.Is(err, ErrRoleMismatch):
		return auditErrRoleMismatch
	case errors.Is(err, ErrRemoteVerification):
		return auditErrRemoteVerification
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	default:
		return auditErrInternal
	}
}
