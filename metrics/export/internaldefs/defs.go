package internaldefs

import (
	"github.com/arvales/tabguard"
)

// CounterDef binds a metric ID to its stable exposition name and help text.
type CounterDef struct {
	ID   tabguard.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram metric ID to its exposition name.
type HistogramDef struct {
	ID   tabguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter, in exposition order.
var CounterDefs = []CounterDef{
	{ID: tabguard.MetricLoginSuccess, Name: "tabguard_login_success_total", Help: "Successful login attempts."},
	{ID: tabguard.MetricLoginFailure, Name: "tabguard_login_failure_total", Help: "Login attempts the auth service rejected."},
	{ID: tabguard.MetricLoginLockedOut, Name: "tabguard_login_locked_out_total", Help: "Login attempts refused locally during a lockout window."},
	{ID: tabguard.MetricLockoutStarted, Name: "tabguard_lockout_started_total", Help: "Lockout windows opened."},
	{ID: tabguard.MetricChallengeIssued, Name: "tabguard_challenge_issued_total", Help: "Security codes issued."},
	{ID: tabguard.MetricChallengeRequired, Name: "tabguard_challenge_required_total", Help: "Login attempts refused locally pending a security code."},
	{ID: tabguard.MetricChallengeFailure, Name: "tabguard_challenge_failure_total", Help: "Wrong or expired security codes submitted."},
	{ID: tabguard.MetricNetworkError, Name: "tabguard_network_error_total", Help: "Requests that never reached the auth service."},
	{ID: tabguard.MetricSessionCreated, Name: "tabguard_session_created_total", Help: "Sessions persisted after successful login."},
	{ID: tabguard.MetricSessionResumed, Name: "tabguard_session_resumed_total", Help: "Persisted sessions revalidated on load."},
	{ID: tabguard.MetricSessionPurged, Name: "tabguard_session_purged_total", Help: "Session purges of any cause."},
	{ID: tabguard.MetricSessionInvalidated, Name: "tabguard_session_invalidated_total", Help: "Cross-window session invalidations observed."},
	{ID: tabguard.MetricMalformedSession, Name: "tabguard_malformed_session_total", Help: "Partial or unparsable persisted sessions detected."},
	{ID: tabguard.MetricRemoteVerifyFailure, Name: "tabguard_remote_verify_failure_total", Help: "Verify-session rejections by the auth service."},
	{ID: tabguard.MetricLogout, Name: "tabguard_logout_total", Help: "Explicit logout operations."},
	{ID: tabguard.MetricGuardAuthorized, Name: "tabguard_guard_authorized_total", Help: "Guard validations that authorized the route."},
	{ID: tabguard.MetricGuardRedirect, Name: "tabguard_guard_redirect_total", Help: "Guard validations that redirected away."},
	{ID: tabguard.MetricRoleMismatch, Name: "tabguard_role_mismatch_total", Help: "Guard redirects caused by a role mismatch."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tabguard.MetricValidateLatency, Name: "tabguard_validate_latency_seconds", Help: "Guard validation latency histogram."},
}

// HistogramBounds are the upper bucket bounds, as rendered "le" labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters that are
// legal in OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
