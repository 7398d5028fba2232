// Package playback mirrors an audio source's time, duration and end-of-media
// signals into observable state and exposes play/pause/seek/rate controls.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoSource is returned by controls invoked before a source is loaded.
var ErrNoSource = errors.New("no audio source loaded")

// EventKind classifies the signals a source emits.
type EventKind int

const (
	// EventTime reports playback progression.
	EventTime EventKind = iota
	// EventDuration reports that the total duration is known.
	EventDuration
	// EventEnded reports that playback reached the end of the media.
	EventEnded
)

// Event is one signal from a source.
type Event struct {
	Kind     EventKind
	Position time.Duration
	Duration time.Duration
}

// Source is a loaded audio resource that can be played.
//
// Subscribe registers a channel for events. A source whose duration is
// already known sends an EventDuration to a new subscriber. After
// Unsubscribe returns no further events are sent to that channel, so the
// subscriber may close it.
type Source interface {
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	SetRate(rate float64) error
	Subscribe(ch chan<- Event) error
	Unsubscribe(ch chan<- Event)
	Close() error
}

// Opener loads the audio addressed by url.
type Opener interface {
	Open(ctx context.Context, url string) (Source, error)
}

// OpenerFunc adapts a function to an Opener.
type OpenerFunc func(ctx context.Context, url string) (Source, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) (Source, error) {
	return f(ctx, url)
}

// Rates are the playback speeds offered by the UI. SetRate accepts any
// positive rate.
var Rates = []float64{0.75, 1.0, 1.25, 1.5, 2.0}

// MaxRate is the fastest accepted playback rate.
const MaxRate = 4.0

// ValidateRate accepts finite rates in (0, MaxRate].
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || rate <= 0 || rate > MaxRate {
		return fmt.Errorf("invalid playback rate %v: must be greater than 0 and at most %v", rate, MaxRate)
	}

	return nil
}

// NextRate returns the next faster offered rate, or the fastest.
func NextRate(cur float64) float64 {
	for _, r := range Rates {
		if r > cur {
			return r
		}
	}

	return Rates[len(Rates)-1]
}

// PrevRate returns the next slower offered rate, or the slowest.
func PrevRate(cur float64) float64 {
	for i := len(Rates) - 1; i >= 0; i-- {
		if Rates[i] < cur {
			return Rates[i]
		}
	}

	return Rates[0]
}

// SeekFraction maps a pointer column onto a track control that starts at
// column start and spans width columns. The result is clamped to [0,1].
func SeekFraction(x, start, width int) float64 {
	if width <= 1 {
		return 0
	}

	f := float64(x-start) / float64(width-1)

	return min(max(f, 0), 1)
}
