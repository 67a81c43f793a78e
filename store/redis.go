package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const changesSuffix = ":changes"

// Redis is the production backend. Values live under namespace-prefixed
// keys; every write publishes "<writer>|<key>" on the profile's change
// channel, which other processes consume through Subscribe.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	writer    string
}

// NewRedis creates a window handle on the Redis-backed profile identified by
// namespace. Handles in different processes share state through the same
// namespace.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{
		client:    client,
		namespace: namespace,
		writer:    uuid.NewString(),
	}
}

// WriterID returns the handle's writer identity.
func (r *Redis) WriterID() string { return r.writer }

func (r *Redis) key(key string) string {
	return r.namespace + ":" + key
}

func (r *Redis) channel() string {
	return r.namespace + changesSuffix
}

// Get returns the value at key, reporting presence.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, true, nil
}

// Set stores value at key and publishes the change.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r.publish(ctx, key)
}

// Incr increments the counter at key and publishes the change. Redis INCR
// keeps the increment atomic across concurrent windows.
func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	count, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := r.publish(ctx, key); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes keys in one DEL and publishes one change per key.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r.publish(ctx, keys...)
}

func (r *Redis) publish(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		payload := r.writer + "|" + key
		if err := r.client.Publish(ctx, r.channel(), payload).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// Subscribe opens the change feed, filtering out this handle's own writes.
func (r *Redis) Subscribe(ctx context.Context) (Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ps := r.client.Subscribe(ctx, r.channel())
	// Force the SUBSCRIBE round-trip so a broken connection fails here
	// instead of silently delivering nothing.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sub := &redisSub{
		ps:     ps,
		writer: r.writer,
		ch:     make(chan Event, memorySubBuffer),
	}
	go sub.run(ctx)

	return sub, nil
}

type redisSub struct {
	ps        *redis.PubSub
	writer    string
	ch        chan Event
	closeOnce sync.Once
}

func (s *redisSub) run(ctx context.Context) {
	defer close(s.ch)

	msgs := s.ps.Channel()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			writer, key, found := strings.Cut(msg.Payload, "|")
			if !found || writer == s.writer {
				continue
			}
			select {
			case s.ch <- Event{Writer: writer, Key: key}:
			default:
				// Consumers re-check full state per event; drop under
				// backpressure rather than stall the pub/sub reader.
			}
		case <-ctx.Done():
			_ = s.ps.Close()
			return
		}
	}
}

func (s *redisSub) Events() <-chan Event { return s.ch }

func (s *redisSub) Close() {
	s.closeOnce.Do(func() {
		_ = s.ps.Close()
	})
}
