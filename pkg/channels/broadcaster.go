package channels

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBroadcasterClosed is returned when subscribing to a closed Broadcaster.
var ErrBroadcasterClosed = errors.New("broadcaster closed")

// subscriber holds a channel and its send timeout configuration.
type subscriber[T any] struct {
	ch       chan<- T
	timeout  time.Duration // zero means non-blocking
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	if s.timeout > 0 {
		err = SendWithTimeout(s.ch, msg, s.timeout)
	} else {
		err = SendNonBlock(s.ch, msg)
	}

	if err != nil {
		// a closed channel will never accept again
		s.dropped.Add(1)
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster delivers each published message to every current subscriber.
//
// Subscribers may join and leave at any time. Messages are sent using the
// subscriber's strategy:
//   - Non-blocking (Subscribe): dropped if the channel is full
//   - With timeout (SubscribeWithTimeout): dropped if the send times out
//
// Once Unsubscribe returns, no further message is sent to that channel, so
// the caller may close it.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers []*subscriber[T]
	closed      bool
}

// NewBroadcaster creates an empty Broadcaster for messages of type T.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe adds a channel that receives messages in non-blocking mode.
func (b *Broadcaster[T]) Subscribe(ch chan<- T) error {
	return b.add(ch, 0)
}

// SubscribeWithTimeout adds a channel whose sends wait up to timeout.
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", timeout)
	}

	return b.add(ch, timeout)
}

func (b *Broadcaster[T]) add(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch, timeout: timeout})

	return nil
}

// Unsubscribe removes ch. Unknown channels are ignored.
func (b *Broadcaster[T]) Unsubscribe(ch chan<- T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.ch == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends msg to all subscribers. It is a no-op after Close.
func (b *Broadcaster[T]) Publish(msg T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		sub.send(msg)
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Close drops all subscribers and rejects new ones. Subscriber channels are
// not closed; they belong to the subscribers.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = nil
}

type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats reports delivery counters in subscription order.
func (b *Broadcaster[T]) Stats() []SubscriberStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
