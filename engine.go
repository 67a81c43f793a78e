package tabguard

import (
	"sync"

	"github.com/arvales/tabguard/authapi"
	"github.com/arvales/tabguard/bus"
	"github.com/arvales/tabguard/clock"
	"github.com/arvales/tabguard/store"
)

// Engine is one window's authentication state machine. Several engines may
// share one store; the relay keeps them in sync through the store change
// feed, and the bus carries same-window notifications that the feed
// deliberately filters out.
type Engine struct {
	config   Config
	store    store.Store
	api      authapi.API
	clock    clock.Clock
	notifier Notifier
	bus      *bus.Bus

	tracker   *attemptTracker
	challenge *challengeIssuer
	relay     *sessionRelay
	audit     *auditDispatcher
	metrics   *Metrics

	closeOnce sync.Once
}

// Close stops the relay, flushes the audit dispatcher, and tears down the
// in-process bus. The shared store is left untouched.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.relay != nil {
			e.relay.Close()
		}
		if e.bus != nil {
			e.bus.Close()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// EntryRoute is the unauthenticated route guards redirect to.
func (e *Engine) EntryRoute() string {
	return e.config.Routes.Entry
}

// LandingRoute maps a role to its post-login home route. Unknown roles fall
// back to the entry route.
func (e *Engine) LandingRoute(role Role) string {
	switch role {
	case RoleAdmin:
		return e.config.Routes.AdminHome
	case RoleShopOwner:
		return e.config.Routes.ShopHome
	default:
		return e.config.Routes.Entry
	}
}
