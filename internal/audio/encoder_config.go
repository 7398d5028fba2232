package audio

import "errors"

const (
	// DefaultBufferThreshold is 8KB, 4096 mono samples.
	DefaultBufferThreshold = 8192
	// DefaultSampleRate is CD rate, which decodes as MPEG-1 Layer III.
	DefaultSampleRate = 44100
	// DefaultChannels is mono (1 channel).
	DefaultChannels = 1
)

// EncoderConfig configures the MP3 streaming encoder.
type EncoderConfig struct {
	SampleRate int

	// Channels must be 1. Input is widened to stereo before encoding.
	Channels int

	// BufferThreshold is the number of PCM bytes to accumulate before encoding.
	BufferThreshold int
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if c.Channels != 1 {
		return errors.New("only mono (1 channel) is supported")
	}

	if c.BufferThreshold <= 0 {
		return errors.New("buffer threshold must be positive")
	}

	return nil
}

// WithDefaults returns a config with default values applied to zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}

	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}

	return c
}
