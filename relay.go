package tabguard

import (
	"context"
	"sync"

	"github.com/arvales/tabguard/bus"
	"github.com/arvales/tabguard/store"
)

// sessionRelay watches the two notification paths a window has: the store
// change feed for writes made by other windows, and the in-process bus for
// this window's own force-logout. On any session-key event it re-reads the
// persisted session and fans the resulting validity out to listeners.
type sessionRelay struct {
	engine   *Engine
	storeSub store.Subscription
	busSub   *bus.Subscription

	mu        sync.Mutex
	listeners map[int]func(valid bool)
	nextID    int
	lastValid bool
	primed    bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSessionRelay(ctx context.Context, e *Engine) (*sessionRelay, error) {
	storeSub, err := e.store.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	r := &sessionRelay{
		engine:    e,
		storeSub:  storeSub,
		busSub:    e.bus.Subscribe(bus.TopicForceLogout),
		listeners: make(map[int]func(valid bool)),
		done:      make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()
	return r, nil
}

func sessionKey(key string) bool {
	switch key {
	case store.KeyToken, store.KeyUser, store.KeyExpiresAt:
		return true
	}
	return false
}

func (r *sessionRelay) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.storeSub.Events():
			if !ok {
				return
			}
			if sessionKey(event.Key) {
				r.recheck()
			}
		case _, ok := <-r.busSub.Events():
			if !ok {
				return
			}
			r.recheck()
		}
	}
}

// recheck re-reads the persisted session and notifies listeners of the
// resulting state. Listeners fire on every relevant event, not only on
// transitions, so a freshly mounted view always converges.
func (r *sessionRelay) recheck() {
	ctx := context.Background()

	_, status, err := r.engine.readSession(ctx)
	if err != nil {
		// Store unreachable. Keep the last known state rather than
		// bouncing users on a transient backend hiccup.
		return
	}
	valid := status == sessionOK

	r.mu.Lock()
	wasValid := r.lastValid
	wasPrimed := r.primed
	r.lastValid = valid
	r.primed = true
	fns := make([]func(valid bool), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	if wasPrimed && wasValid && !valid {
		r.engine.metricInc(MetricSessionInvalidated)
		r.engine.emitAudit(ctx, auditEventSessionInvalidated, true, "", "", nil, nil)
	}

	for _, fn := range fns {
		fn(valid)
	}
}

// AddListener registers fn to run on every session-relevant event with the
// session's current validity. The returned function deregisters it.
func (r *sessionRelay) AddListener(fn func(valid bool)) (remove func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *sessionRelay) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.storeSub.Close()
		r.busSub.Close()
		r.wg.Wait()
	})
}

// OnSessionChange exposes the relay to applications: fn runs with the
// current validity whenever this window's session state may have changed,
// whether by another window's write or this window's own logout.
func (e *Engine) OnSessionChange(fn func(valid bool)) (remove func(), err error) {
	if e == nil || e.relay == nil {
		return nil, ErrEngineNotReady
	}
	return e.relay.AddListener(fn), nil
}
