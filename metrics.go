package tabguard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram in the in-process metrics
// system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins the auth service rejected.
	MetricLoginFailure
	// MetricLoginLockedOut counts logins refused locally during a lockout
	// window.
	MetricLoginLockedOut
	// MetricLockoutStarted counts lockout windows opened.
	MetricLockoutStarted
	// MetricChallengeIssued counts security codes issued.
	MetricChallengeIssued
	// MetricChallengeRequired counts logins refused locally for a missing
	// security code.
	MetricChallengeRequired
	// MetricChallengeFailure counts wrong or expired submitted codes.
	MetricChallengeFailure
	// MetricNetworkError counts login requests that never reached the
	// auth service.
	MetricNetworkError
	// MetricSessionCreated counts persisted sessions.
	MetricSessionCreated
	// MetricSessionResumed counts silent resume-on-load verifications that
	// succeeded.
	MetricSessionResumed
	// MetricSessionPurged counts session purges of any cause.
	MetricSessionPurged
	// MetricSessionInvalidated counts relay invalidation fanouts.
	MetricSessionInvalidated
	// MetricMalformedSession counts partial or unparsable persisted
	// sessions detected (and purged).
	MetricMalformedSession
	// MetricRemoteVerifyFailure counts verify-session rejections.
	MetricRemoteVerifyFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricGuardAuthorized counts guard validations that authorized.
	MetricGuardAuthorized
	// MetricGuardRedirect counts guard validations that redirected.
	MetricGuardRedirect
	// MetricRoleMismatch counts redirects caused by a role mismatch.
	MetricRoleMismatch
	// MetricValidateLatency is the guard validation latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and the optional guard-latency histogram.
// All operations are no-ops when disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig].
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistogram,
	}
}

// Enabled reports whether metrics collection is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is active.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency observation into the histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a deep copy of all counters and histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
