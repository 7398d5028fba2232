package channels_test

import (
	"sync"
	"testing"
	"time"

	"github.com/alkime/docucast/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SubscribeErrors(t *testing.T) {
	b := channels.NewBroadcaster[int]()

	err := b.Subscribe(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")

	err = b.SubscribeWithTimeout(make(chan int), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	b.Close()
	assert.ErrorIs(t, b.Subscribe(make(chan int, 1)), channels.ErrBroadcasterClosed)
}

func TestBroadcaster_Publish(t *testing.T) {
	b := channels.NewBroadcaster[string]()
	a := make(chan string, 4)
	c := make(chan string, 4)
	require.NoError(t, b.Subscribe(a))
	require.NoError(t, b.SubscribeWithTimeout(c, 10*time.Millisecond))

	b.Publish("one")
	b.Publish("two")

	assert.Equal(t, "one", <-a)
	assert.Equal(t, "two", <-a)
	assert.Equal(t, "one", <-c)
	assert.Equal(t, "two", <-c)
	assert.Equal(t, 2, b.Len())
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := channels.NewBroadcaster[int]()
	stay := make(chan int, 4)
	leave := make(chan int, 4)
	require.NoError(t, b.Subscribe(stay))
	require.NoError(t, b.Subscribe(leave))

	b.Publish(1)
	b.Unsubscribe(leave)
	close(leave)
	b.Publish(2)

	assert.Equal(t, []int{1}, drain(leave))
	assert.Equal(t, []int{1, 2}, drain(stay))
	assert.Equal(t, 1, b.Len())

	b.Unsubscribe(make(chan int))
	assert.Equal(t, 1, b.Len(), "unknown channel ignored")
}

func TestBroadcaster_DropsAndDeactivates(t *testing.T) {
	b := channels.NewBroadcaster[int]()
	full := make(chan int, 1)
	closed := make(chan int, 1)
	require.NoError(t, b.Subscribe(full))
	require.NoError(t, b.Subscribe(closed))
	close(closed)

	b.Publish(1)
	b.Publish(2)

	stats := b.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, channels.SubscriberStats{Dropped: 1}, stats[0])
	assert.Equal(t, channels.SubscriberStats{Dropped: 2, Inactive: true}, stats[1])
	assert.Equal(t, 1, <-full)
}

func TestBroadcaster_CloseStopsPublishing(t *testing.T) {
	b := channels.NewBroadcaster[int]()
	ch := make(chan int, 1)
	require.NoError(t, b.Subscribe(ch))

	b.Close()
	b.Publish(1)

	assert.Empty(t, drain(ch))
	assert.Zero(t, b.Len())
}

func TestBroadcaster_ConcurrentUse(t *testing.T) {
	b := channels.NewBroadcaster[int]()

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			ch := make(chan int, 8)
			for range 50 {
				assert.NoError(t, b.Subscribe(ch))
				b.Publish(1)
				b.Unsubscribe(ch)
			}
			close(ch)
		})
	}
	wg.Wait()

	assert.Zero(t, b.Len())
}

func drain(ch <-chan int) []int {
	var out []int
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}
