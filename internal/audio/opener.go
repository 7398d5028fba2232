package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/alkime/docucast/internal/playback"
	"github.com/hajimehoshi/go-mp3"
)

// maxAudioBytes bounds how much audio is fetched into memory.
var maxAudioBytes int64 = 512 << 20

// ErrAudioTooLarge is returned for audio larger than the player will buffer.
var ErrAudioTooLarge = errors.New("audio too large")

// Opener fetches MP3 audio over HTTP and plays it on a local output.
type Opener struct {
	client    *http.Client
	conf      PlayerConfig
	newOutput OutputFactory
}

var _ playback.Opener = (*Opener)(nil)

// NewOpener creates an Opener. A nil newOutput uses the system playback
// device.
func NewOpener(client *http.Client, conf PlayerConfig, newOutput OutputFactory) *Opener {
	if client == nil {
		client = http.DefaultClient
	}

	if newOutput == nil {
		newOutput = NewDeviceOutput
	}

	return &Opener{client: client, conf: conf, newOutput: newOutput}
}

// Open downloads and decodes the audio at url.
func (o *Opener) Open(ctx context.Context, url string) (playback.Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch audio: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	if int64(len(data)) > maxAudioBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, maxAudioBytes)
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	slog.Debug("Opened audio", "url", url, "bytes", len(data), "sampleRate", dec.SampleRate())

	player, err := NewPlayer(dec, o.conf, o.newOutput)
	if err != nil {
		return nil, err
	}

	return player, nil
}
