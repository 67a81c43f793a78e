package tabguard

import (
	"errors"
	"time"
)

// Config carries every tunable of the engine. Build validates it once;
// after that it is treated as immutable.
type Config struct {
	Lockout   LockoutConfig
	Challenge ChallengeConfig
	Session   SessionConfig
	Routes    RoutesConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig tunes consecutive-failure tracking.
type LockoutConfig struct {
	// MaxAttempts is the failure count at which the account locks.
	MaxAttempts int
	// LockoutDuration is the refusal window opened when MaxAttempts is
	// reached. It is never extended by further failures.
	LockoutDuration time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig tunes the step-up security code.
type ChallengeConfig struct {
	// Threshold is the failure count at which a security code becomes
	// required. Must be below Lockout.MaxAttempts.
	Threshold int
	// TTL is how long an issued code stays valid.
	TTL time.Duration
	// Digits is the code length.
	Digits int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes session persistence.
type SessionConfig struct {
	// Lifetime is the client-side absolute session lifetime.
	Lifetime time.Duration
	// TrustTokenExpiry tightens the persisted expiry to the token's own
	// exp claim when the token parses as a JWT. Never extends past
	// Lifetime.
	TrustTokenExpiry bool
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the entry route and the per-role landing routes that
// guards and the middleware redirect to.
type RoutesConfig struct {
	Entry     string
	AdminHome string
	ShopHome  string
}

// AuditConfig tunes the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig tunes in-process metrics.
type MetricsConfig struct {
	Enabled                bool
	EnableLatencyHistogram bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts:     5,
			LockoutDuration: 15 * time.Minute,
		},
		Challenge: ChallengeConfig{
			Threshold: 3,
			TTL:       5 * time.Minute,
			Digits:    6,
		},
		Session: SessionConfig{
			Lifetime:         8 * time.Hour,
			TrustTokenExpiry: true,
		},
		Routes: RoutesConfig{
			Entry:     "/login",
			AdminHome: "/admin",
			ShopHome:  "/shop",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                false,
			EnableLatencyHistogram: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.LockoutDuration <= 0 {
		return errors.New("Lockout LockoutDuration must be > 0")
	}

	if c.Challenge.Threshold <= 0 {
		return errors.New("Challenge Threshold must be > 0")
	}
	if c.Challenge.Threshold >= c.Lockout.MaxAttempts {
		return errors.New("Challenge Threshold must be below Lockout MaxAttempts")
	}
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if c.Challenge.Digits < 4 || c.Challenge.Digits > 10 {
		return errors.New("Challenge Digits must be between 4 and 10")
	}

	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}

	if c.Routes.Entry == "" {
		return errors.New("Routes Entry is required")
	}
	if c.Routes.AdminHome == "" || c.Routes.ShopHome == "" {
		return errors.New("Routes role landing routes are required")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
