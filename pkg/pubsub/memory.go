package pubsub

import (
	"context"
	"errors"
	"path"
	"sync"
)

// Compile-time interface check.
var _ PubSub = (*MemoryPubSub)(nil)

// ErrClosed is returned when publishing or subscribing after Close.
var ErrClosed = errors.New("pubsub closed")

// MemoryPubSub is an in-process PubSub. It is the default for a single bot
// process and is what tests use. Delivery is non-blocking; a subscriber
// whose buffer is full misses the event, like the Redis driver.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*memorySubscription // key: channel or pattern
	closed bool
}

type memorySubscription struct {
	pattern bool
	ch      chan *Event
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *memorySubscription) close() {
	s.once.Do(func() {
		s.cancel()
		close(s.ch)
	})
}

// NewMemoryPubSub creates an in-process event bus.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string]*memorySubscription)}
}

// Publish delivers event to every subscription matching channel.
func (m *MemoryPubSub) Publish(_ context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for key, sub := range m.subs {
		if !matches(key, sub.pattern, channel) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func matches(key string, pattern bool, channel string) bool {
	if !pattern {
		return key == channel
	}
	ok, err := path.Match(key, channel)
	return err == nil && ok
}

// Subscribe subscribes to one channel. The returned channel is closed when
// ctx is done, on Unsubscribe, or on Close.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, channel, false)
}

// SubscribePattern subscribes to every channel matching a glob pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return m.subscribe(ctx, pattern, true)
}

func (m *MemoryPubSub) subscribe(ctx context.Context, key string, pattern bool) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if existing, ok := m.subs[key]; ok {
		existing.close()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		pattern: pattern,
		ch:      make(chan *Event, 100),
		cancel:  cancel,
	}
	m.subs[key] = sub

	go func() {
		<-subCtx.Done()
		m.mu.Lock()
		if m.subs[key] == sub {
			delete(m.subs, key)
		}
		sub.close()
		m.mu.Unlock()
	}()

	return sub.ch, nil
}

// Unsubscribe removes a channel or pattern subscription.
func (m *MemoryPubSub) Unsubscribe(_ context.Context, channel string) error {
	m.mu.Lock()
	sub, ok := m.subs[channel]
	m.mu.Unlock()

	if ok {
		// The watcher goroutine removes the entry and closes the channel.
		sub.cancel()
	}
	return nil
}

// Close drops all subscriptions.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for key, sub := range m.subs {
		sub.close()
		delete(m.subs, key)
	}
	return nil
}
