package tabguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/arvales/tabguard/authapi"
	"github.com/arvales/tabguard/bus"
	"github.com/arvales/tabguard/clock"
	"github.com/arvales/tabguard/store"
)

// Builder assembles an [Engine]. A store handle and an auth API client are
// mandatory; everything else has a default.
type Builder struct {
	config    Config
	store     store.Store
	api       authapi.API
	clk       clock.Clock
	notifier  Notifier
	auditSink AuditSink

	built bool
}

// New creates a builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets this window's handle onto the shared profile store.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithAuthAPI sets the remote authentication client.
func (b *Builder) WithAuthAPI(api authapi.API) *Builder {
	b.api = api
	return b
}

// WithClock replaces the wall clock. Tests use a manual clock.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clk = c
	return b
}

// WithNotifier sets the side channel that delivers security codes.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles metrics collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistogram toggles the guard validation latency histogram.
func (b *Builder) WithLatencyHistogram(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistogram = enabled
	return b
}

// Build validates the configuration, subscribes to the store change feed,
// and returns a ready engine. The builder is single use.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.store == nil {
		return nil, errors.New("store required")
	}
	if b.api == nil {
		return nil, errors.New("auth api client required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	clk := b.clk
	if clk == nil {
		clk = clock.System()
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	e := &Engine{
		config:   b.config,
		store:    b.store,
		api:      b.api,
		clock:    clk,
		notifier: notifier,
		bus:      bus.New(),
	}
	e.tracker = newAttemptTracker(b.store, clk, b.config.Lockout)
	e.challenge = newChallengeIssuer(b.store, clk, b.config.Challenge, notifier)
	e.metrics = NewMetrics(b.config.Metrics)
	e.audit = newAuditDispatcher(b.config.Audit, b.auditSink)

	relay, err := newSessionRelay(ctx, e)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.relay = relay

	b.built = true
	return e, nil
}
