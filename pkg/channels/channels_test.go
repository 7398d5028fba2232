package channels_test

import (
	"testing"
	"time"

	"github.com/alkime/docucast/pkg/channels"
	"github.com/stretchr/testify/assert"
)

func TestSendNonBlock(t *testing.T) {
	tests := []struct {
		name    string
		setup   func() chan int
		wantErr error
	}{
		{name: "room in buffer", setup: func() chan int { return make(chan int, 1) }},
		{name: "full buffer", setup: func() chan int {
			ch := make(chan int, 1)
			ch <- 1
			return ch
		}, wantErr: channels.ErrChannelFull},
		{name: "unbuffered without receiver", setup: func() chan int { return make(chan int) }, wantErr: channels.ErrChannelFull},
		{name: "closed", setup: func() chan int {
			ch := make(chan int, 1)
			close(ch)
			return ch
		}, wantErr: channels.ErrChannelClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := channels.SendNonBlock(tt.setup(), 42)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSendWithTimeout(t *testing.T) {
	t.Run("receiver arrives in time", func(t *testing.T) {
		ch := make(chan int)
		go func() { <-ch }()

		assert.NoError(t, channels.SendWithTimeout(ch, 42, time.Second))
	})

	t.Run("times out when full", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 1

		assert.ErrorIs(t, channels.SendWithTimeout(ch, 42, time.Millisecond), channels.ErrChannelTimeout)
	})

	t.Run("closed keeps buffered data", func(t *testing.T) {
		ch := make(chan int, 2)
		ch <- 1
		close(ch)

		assert.ErrorIs(t, channels.SendWithTimeout(ch, 42, 10*time.Millisecond), channels.ErrChannelClosed)
		assert.Equal(t, 1, <-ch)
	})
}
