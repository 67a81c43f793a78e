package clock

import (
	"sync"
	"time"
)

// Manual is a hand-driven Clock for tests. Advance moves time forward and
// fires any due tickers.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

// NewManual creates a manual clock starting at now.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and delivers at most one tick to each
// ticker whose interval elapsed.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	tickers := make([]*manualTicker, len(m.tickers))
	copy(tickers, m.tickers)
	m.mu.Unlock()

	for _, t := range tickers {
		t.maybeFire(now)
	}
}

// NewTicker creates a ticker driven by Advance.
func (m *Manual) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTicker{
		clock:    m,
		interval: d,
		last:     m.now,
		ch:       make(chan time.Time, 1),
	}
	m.tickers = append(m.tickers, t)
	return t
}

type manualTicker struct {
	clock    *Manual
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
	stopped  bool
	ch       chan time.Time
}

func (t *manualTicker) maybeFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Sub(t.last) < t.interval {
		return
	}
	t.last = now
	select {
	case t.ch <- now:
	default:
	}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}
