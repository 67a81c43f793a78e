package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

const memorySubBuffer = 64

// Profile is the shared in-process backend. All Memory handles opened on one
// Profile see the same data; a handle never observes its own writes on the
// change feed.
type Profile struct {
	mu      sync.Mutex
	data    map[string]string
	subs    map[int]*memorySub
	nextSub int
}

// NewProfile creates an empty in-process profile store.
func NewProfile() *Profile {
	return &Profile{
		data: make(map[string]string),
		subs: make(map[int]*memorySub),
	}
}

// Open creates a window handle on the profile with a fresh writer identity.
func (p *Profile) Open() *Memory {
	return &Memory{profile: p, writer: uuid.NewString()}
}

func (p *Profile) notifyLocked(writer string, keys ...string) {
	for _, sub := range p.subs {
		if sub.writer == writer {
			continue
		}
		for _, key := range keys {
			select {
			case sub.ch <- Event{Writer: writer, Key: key}:
			default:
				// Feed consumers re-check full state on any event, so a
				// dropped event under backpressure is recovered by the next.
			}
		}
	}
}

// Memory is one window's handle on a [Profile].
type Memory struct {
	profile *Profile
	writer  string
}

// WriterID returns the handle's writer identity.
func (m *Memory) WriterID() string { return m.writer }

// Get returns the value at key, reporting presence.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.profile.mu.Lock()
	defer m.profile.mu.Unlock()

	value, ok := m.profile.data[key]
	return value, ok, nil
}

// Set stores value at key and notifies every other handle's feed.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.profile.mu.Lock()
	defer m.profile.mu.Unlock()

	m.profile.data[key] = value
	m.profile.notifyLocked(m.writer, key)
	return nil
}

// Incr increments the counter at key under the profile lock.
func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.profile.mu.Lock()
	defer m.profile.mu.Unlock()

	current, _ := strconv.ParseInt(m.profile.data[key], 10, 64)
	current++
	m.profile.data[key] = strconv.FormatInt(current, 10)
	m.profile.notifyLocked(m.writer, key)
	return current, nil
}

// Delete removes keys and notifies other handles once per removed key.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.profile.mu.Lock()
	defer m.profile.mu.Unlock()

	removed := keys[:0:0]
	for _, key := range keys {
		if _, ok := m.profile.data[key]; ok {
			delete(m.profile.data, key)
			removed = append(removed, key)
		}
	}
	if len(removed) > 0 {
		m.profile.notifyLocked(m.writer, removed...)
	}
	return nil
}

// Subscribe opens the change feed for writes by other handles.
func (m *Memory) Subscribe(ctx context.Context) (Subscription, error) {
	m.profile.mu.Lock()
	defer m.profile.mu.Unlock()

	id := m.profile.nextSub
	m.profile.nextSub++

	sub := &memorySub{
		profile: m.profile,
		id:      id,
		writer:  m.writer,
		ch:      make(chan Event, memorySubBuffer),
	}
	m.profile.subs[id] = sub

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}

	return sub, nil
}

type memorySub struct {
	profile   *Profile
	id        int
	writer    string
	ch        chan Event
	closeOnce sync.Once
}

func (s *memorySub) Events() <-chan Event { return s.ch }

func (s *memorySub) Close() {
	s.closeOnce.Do(func() {
		s.profile.mu.Lock()
		delete(s.profile.subs, s.id)
		s.profile.mu.Unlock()
		close(s.ch)
	})
}
