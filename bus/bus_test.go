package bus

import (
	"testing"
	"time"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	b := New()
	defer b.Close()

	one := b.Subscribe(TopicForceLogout)
	two := b.Subscribe(TopicForceLogout)
	defer one.Close()
	defer two.Close()

	b.Publish(TopicForceLogout)

	for _, sub := range []*Subscription{one, two} {
		select {
		case topic := <-sub.Events():
			if topic != TopicForceLogout {
				t.Fatalf("topic = %q", topic)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("other-topic")
	defer sub.Close()

	b.Publish(TopicForceLogout)

	select {
	case topic := <-sub.Events():
		t.Fatalf("unexpected event %q on unrelated topic", topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_ClosedSubscriptionStopsReceiving(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe(TopicForceLogout)
	sub.Close()
	sub.Close() // idempotent

	b.Publish(TopicForceLogout)

	if _, ok := <-sub.Events(); ok {
		t.Fatal("closed subscription delivered an event")
	}
}

func TestBus_PublishNeverBlocksOnStalledSubscriber(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe(TopicForceLogout)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(TopicForceLogout)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher stalled on a slow subscriber")
	}
}

func TestBus_CloseClosesAllSubscriptions(t *testing.T) {
	b := New()
	sub := b.Subscribe(TopicForceLogout)

	b.Close()
	b.Close() // idempotent
	b.Publish(TopicForceLogout)

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel not closed by bus Close")
		}
	}
}

func TestBus_SubscribeAfterCloseIsClosed(t *testing.T) {
	b := New()
	b.Close()

	sub := b.Subscribe(TopicForceLogout)
	if _, ok := <-sub.Events(); ok {
		t.Fatal("subscription on a closed bus delivered an event")
	}
	sub.Close()
}
