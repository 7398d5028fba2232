package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// StreamingEncoder consumes mono S16LE PCM from a channel and writes MP3
// frames to an io.Writer, encoding whenever the buffer passes a threshold.
type StreamingEncoder struct {
	config EncoderConfig
	input  <-chan []byte
	output io.Writer

	encoder *mp3encoder.Encoder
	buffer  []byte

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewStreamingEncoder validates config and wires input to output. Encoding
// begins with Start.
func NewStreamingEncoder(
	config EncoderConfig,
	input <-chan []byte,
	output io.Writer,
) (*StreamingEncoder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &StreamingEncoder{ //nolint:exhaustruct // wg, errOnce, err initialized on Start()
		config: config,
		input:  input,
		output: output,
		buffer: make([]byte, 0, config.BufferThreshold),
	}, nil
}

// Start launches the encoding goroutine. It finishes when input is closed
// or ctx is done; Wait reports the outcome.
func (e *StreamingEncoder) Start(ctx context.Context) error {
	if e.encoder != nil {
		return errors.New("encoder already started")
	}

	// shine-mp3 mishandles mono, so encode as stereo
	e.encoder = mp3encoder.NewEncoder(e.config.SampleRate, 2)

	e.wg.Go(func() {
		defer func() {
			if err := e.flush(); err != nil {
				e.setError(fmt.Errorf("failed to flush encoder on shutdown: %w", err))
			}
		}()

		for {
			select {
			case data, ok := <-e.input:
				if !ok {
					return
				}

				e.buffer = append(e.buffer, data...)

				if len(e.buffer) >= e.config.BufferThreshold {
					if err := e.encodeBatch(false); err != nil {
						e.setError(err)
						return
					}
				}

			case <-ctx.Done():
				e.setError(fmt.Errorf("encoder context cancelled: %w", ctx.Err()))
				return
			}
		}
	})

	return nil
}

// encodeBatch encodes whole MP3 frames from the buffer and keeps the
// remainder. A final batch encodes everything left.
func (e *StreamingEncoder) encodeBatch(final bool) error {
	samples := len(e.buffer) / 2
	if !final {
		samples -= samples % e.frameSamples()
	}

	if samples == 0 {
		return nil
	}

	stereo := monoToStereo(BytesToInt16(e.buffer[:samples*2]))

	if err := e.encoder.Write(e.output, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	slog.Debug("Encoded MP3 batch", "samples", samples, "final", final)

	rest := copy(e.buffer, e.buffer[samples*2:])
	e.buffer = e.buffer[:rest]

	return nil
}

// frameSamples is the per-channel sample count of one MP3 frame: MPEG-1
// above 32kHz, MPEG-2 below.
func (e *StreamingEncoder) frameSamples() int {
	if e.config.SampleRate >= 32000 {
		return 1152
	}

	return 576
}

func (e *StreamingEncoder) flush() error {
	if err := e.encodeBatch(true); err != nil {
		return fmt.Errorf("failed to flush MP3 encoder: %w", err)
	}

	return nil
}

// Wait blocks until encoding completes and returns the first error.
func (e *StreamingEncoder) Wait() error {
	e.wg.Wait()

	return e.err
}

func (e *StreamingEncoder) setError(err error) {
	e.errOnce.Do(func() {
		e.err = err
		slog.Debug("Streaming encoder error", "error", err)
	})
}

func monoToStereo(mono []int16) []int16 {
	stereo := make([]int16, len(mono)*2)
	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}

	return stereo
}

// EncodePCM encodes mono samples to w in one pass.
func EncodePCM(ctx context.Context, w io.Writer, samples []int16, sampleRate int) error {
	input := make(chan []byte, 1)

	enc, err := NewStreamingEncoder(EncoderConfig{SampleRate: sampleRate}.WithDefaults(), input, w)
	if err != nil {
		return err
	}

	if err := enc.Start(ctx); err != nil {
		return err
	}

	input <- Int16ToBytes(samples)
	close(input)

	return enc.Wait()
}
