package bus

import "sync"

// TopicForceLogout is published right after a window purges its own session
// so components in the same window react without a store change event.
const TopicForceLogout = "force-logout"

const subscriberBuffer = 16

// Bus is an in-process publish/subscribe channel. The zero value is not
// usable; create one with New.
type Bus struct {
	mu      sync.Mutex
	subs    map[string]map[int]*Subscription
	nextSub int
	closed  bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]*Subscription)}
}

// Publish delivers topic to every current subscriber. Delivery is
// non-blocking; a subscriber that stopped draining misses events rather
// than stalling the publisher.
func (b *Bus) Publish(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- topic:
		default:
		}
	}
}

// Subscribe registers for a topic. The caller must Close the subscription
// when its owning component unmounts.
func (b *Bus) Subscribe(topic string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++

	sub := &Subscription{
		bus:   b,
		topic: topic,
		id:    id,
		ch:    make(chan string, subscriberBuffer),
	}
	if b.closed {
		close(sub.ch)
		sub.closed = true
		return sub
	}

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]*Subscription)
	}
	b.subs[topic][id] = sub
	return sub
}

// Close tears the bus down and closes every subscription channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, topicSubs := range b.subs {
		for _, sub := range topicSubs {
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
	}
	b.subs = nil
}

// Subscription is one listener registration on a topic.
type Subscription struct {
	bus    *Bus
	topic  string
	id     int
	ch     chan string
	closed bool
}

// Events returns the delivery channel. It is closed when the subscription
// or the bus closes.
func (s *Subscription) Events() <-chan string { return s.ch }

// Close deregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if topicSubs := s.bus.subs[s.topic]; topicSubs != nil {
		delete(topicSubs, s.id)
	}
	close(s.ch)
}
