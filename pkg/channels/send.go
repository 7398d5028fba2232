package channels

import "time"

// SendNonBlock attempts to send msg without blocking. It reports
// ErrChannelFull when no receiver is ready and ErrChannelClosed when ch has
// been closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendWithTimeout waits up to timeout for ch to accept msg.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- msg:
		return nil
	case <-timer.C:
		return ErrChannelTimeout
	}
}
