package tabguard

import "errors"

var (
	// ErrInvalidCredentials is returned when the remote auth service rejects
	// the submitted email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the lockout window is open; no
	// network call is made in that state.
	ErrAccountLocked = errors.New("account locked")
	// ErrChallengeRequired is returned when the failure count sits in the
	// elevated band and no valid security code accompanied the login.
	ErrChallengeRequired = errors.New("security verification required")
	// ErrChallengeInvalid is returned when the submitted security code is
	// wrong or the challenge has expired.
	ErrChallengeInvalid = errors.New("security code expired or wrong")
	// ErrChallengeUnavailable is returned when challenge state cannot be
	// read or written.
	ErrChallengeUnavailable = errors.New("security challenge backend unavailable")
	// ErrNetwork is returned when the login request never reached the auth
	// service. It is never counted as a failed attempt.
	ErrNetwork = errors.New("network unavailable")
	// ErrMalformedSession marks a partial or unparsable persisted session.
	// Detection always purges; it never surfaces as a crash.
	ErrMalformedSession = errors.New("malformed session data")
	// ErrRoleMismatch is returned when the session role does not satisfy the
	// guarded route's required role.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrRemoteVerification is returned when the verify-session endpoint
	// rejects the persisted token.
	ErrRemoteVerification = errors.New("remote session verification failed")
	// ErrStoreUnavailable wraps failures of the persistent client store.
	ErrStoreUnavailable = errors.New("client store unavailable")
	// ErrEngineNotReady is returned when an Engine is used before Build
	// completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Redirect and banner texts shown to the user. Guards attach these to the
// entry-route navigation; the login form shows them inline.
const (
	msgInvalidCredentials = "Invalid email or password."
	msgAccountLocked      = "Too many failed attempts. Account temporarily locked."
	msgChallengeRequired  = "Security verification required."
	msgChallengeInvalid   = "Security code expired or incorrect."
	msgNetwork            = "Could not reach the server. Check your connection."
	msgSessionExpired     = "Session expired. Please log in again."
	msgSessionInvalid     = "Invalid session. Please log in again."
	msgAccessDenied       = "Access denied."
	msgAuthError          = "Authentication error. Please log in again."
)

// UserMessage maps an error from the authentication flow to the one-line,
// user-facing string the login form or entry route displays. Unknown errors
// map to the generic authentication message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return msgInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return msgAccountLocked
	case errors.Is(err, ErrChallengeRequired):
		return msgChallengeRequired
	case errors.Is(err, ErrChallengeInvalid):
		return msgChallengeInvalid
	case errors.Is(err, ErrNetwork):
		return msgNetwork
	case errors.Is(err, ErrMalformedSession):
		return msgSessionInvalid
	case errors.Is(err, ErrRoleMismatch):
		return msgAccessDenied
	case errors.Is(err, ErrRemoteVerification):
		return msgSessionExpired
	default:
		return msgAuthError
	}
}
