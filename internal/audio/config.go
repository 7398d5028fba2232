// Package audio plays decoded MP3 through the system output device and
// encodes PCM to MP3.
package audio

import (
	"errors"
	"time"
)

const (
	// frameBytes is one S16LE stereo frame, the layout go-mp3 decodes to.
	frameBytes = 4

	DefaultReportInterval = 250 * time.Millisecond
	// DefaultLevelWindow is how many recent samples the waveform reads.
	DefaultLevelWindow = 4096
)

// PlayerConfig tunes a Player.
type PlayerConfig struct {
	// ReportInterval is how often time events are published while playing.
	ReportInterval time.Duration
	LevelWindow    int
}

// WithDefaults returns a config with default values applied to zero fields.
func (c PlayerConfig) WithDefaults() PlayerConfig {
	if c.ReportInterval == 0 {
		c.ReportInterval = DefaultReportInterval
	}

	if c.LevelWindow == 0 {
		c.LevelWindow = DefaultLevelWindow
	}

	return c
}

// Validate returns an error if the config is invalid.
func (c PlayerConfig) Validate() error {
	if c.ReportInterval <= 0 {
		return errors.New("report interval must be positive")
	}

	if c.LevelWindow <= 0 {
		return errors.New("level window must be positive")
	}

	return nil
}
