package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/docucast/internal/playback"
	"github.com/alkime/docucast/pkg/channels"
	"github.com/alkime/docucast/pkg/uictl"
)

// Decoder is a seekable stream of S16LE stereo frames, as produced by
// go-mp3.
type Decoder interface {
	io.ReadSeeker
	SampleRate() int
	// Length is the decoded size in bytes, or negative when unknown.
	Length() int64
}

var (
	_ playback.Source     = (*Player)(nil)
	_ uictl.Levels[int16] = (*Player)(nil)
)

// Player plays a Decoder through an Output. Speed changes use
// nearest-neighbour frame stepping, so pitch shifts with rate.
type Player struct {
	conf PlayerConfig
	out  Output

	mu        sync.Mutex
	dec       Decoder
	rate      float64
	playing   bool
	atEnd     bool
	posFrames int64
	scratch   []byte
	closed    bool

	totalFrames int64
	sampleRate  int

	ended  atomic.Bool
	levels *SampleRingBuffer
	events *channels.Broadcaster[playback.Event]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlayer wraps dec and allocates an output from newOutput. The player is
// paused until Play.
func NewPlayer(dec Decoder, conf PlayerConfig, newOutput OutputFactory) (*Player, error) {
	conf = conf.WithDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid player config: %w", err)
	}

	if dec.SampleRate() <= 0 {
		return nil, errors.New("decoder reports no sample rate")
	}

	p := &Player{
		conf:        conf,
		dec:         dec,
		rate:        1,
		totalFrames: dec.Length() / frameBytes,
		sampleRate:  dec.SampleRate(),
		levels:      NewSampleRingBuffer(conf.LevelWindow * 2),
		events:      channels.NewBroadcaster[playback.Event](),
	}

	out, err := newOutput(p.sampleRate, p.fill)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}
	p.out = out

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Go(func() { p.monitor(ctx) })

	return p, nil
}

// Duration is the total playing time, or zero when unknown.
func (p *Player) Duration() time.Duration {
	if p.totalFrames <= 0 {
		return 0
	}

	return p.framesToDuration(p.totalFrames)
}

func (p *Player) framesToDuration(frames int64) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(p.sampleRate)
}

// Position is the current playing time.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.framesToDuration(p.posFrames)
}

// Play starts or resumes playback. After the end of the media it restarts
// from the beginning.
func (p *Player) Play() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return errors.New("player closed")
	}

	if p.atEnd {
		if err := p.seekFrames(0); err != nil {
			p.mu.Unlock()
			return err
		}
	}

	p.playing = true
	p.mu.Unlock()

	// Start may wait on the device thread, which takes the lock in fill.
	if err := p.out.Start(); err != nil {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()

		return fmt.Errorf("failed to start playback: %w", err)
	}

	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()

	if err := p.out.Stop(); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	return nil
}

// Seek moves to pos, clamped to the media.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frames := int64(pos.Seconds() * float64(p.sampleRate))
	if p.totalFrames > 0 {
		frames = min(frames, p.totalFrames)
	}

	return p.seekFrames(max(frames, 0))
}

func (p *Player) seekFrames(frames int64) error {
	if _, err := p.dec.Seek(frames*frameBytes, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek decoder: %w", err)
	}

	p.posFrames = frames
	p.atEnd = false
	p.levels.Reset()

	return nil
}

func (p *Player) SetRate(rate float64) error {
	if err := playback.ValidateRate(rate); err != nil {
		return err
	}

	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()

	return nil
}

// Subscribe registers ch for events. A known duration is delivered at once.
func (p *Player) Subscribe(ch chan<- playback.Event) error {
	if err := p.events.Subscribe(ch); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	if d := p.Duration(); d > 0 {
		if err := channels.SendNonBlock(ch, playback.Event{Kind: playback.EventDuration, Duration: d}); err != nil {
			slog.Debug("Dropped duration event", "error", err)
		}
	}

	return nil
}

func (p *Player) Unsubscribe(ch chan<- playback.Event) {
	p.events.Unsubscribe(ch)
}

// Read returns the most recently played samples.
func (p *Player) Read() []int16 {
	return p.levels.ReadSamples(p.conf.LevelWindow)
}

// Close stops playback and releases the output. Safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.playing = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	if err := p.out.Stop(); err != nil {
		slog.Debug("Failed to stop output on close", "error", err)
	}
	p.out.Close()
	p.events.Close()

	return nil
}

// fill runs on the device thread.
func (p *Player) fill(out []byte, frames uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	want := min(int(frames), len(out)/frameBytes)
	if !p.playing || p.closed {
		clear(out)
		return
	}

	need := int(math.Ceil(float64(want) * p.rate))
	if p.totalFrames > 0 {
		need = min(need, int(max(0, p.totalFrames-p.posFrames)))
	}
	if cap(p.scratch) < need*frameBytes {
		p.scratch = make([]byte, need*frameBytes)
	}
	buf := p.scratch[:need*frameBytes]

	n, err := io.ReadFull(p.dec, buf)
	got := n / frameBytes

	if err == nil && p.totalFrames > 0 && p.posFrames+int64(got) >= p.totalFrames {
		err = io.EOF
	}

	written := 0
	for i := range want {
		src := int(float64(i) * p.rate)
		if src >= got {
			break
		}

		copy(out[i*frameBytes:(i+1)*frameBytes], buf[src*frameBytes:(src+1)*frameBytes])
		written++
	}

	clear(out[written*frameBytes:])
	p.posFrames += int64(got)
	p.levels.Write(BytesToInt16(out[:written*frameBytes]))

	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			slog.Error("Failed to decode audio", "error", err)
		}

		p.playing = false
		p.atEnd = true
		p.ended.Store(true)
	}
}

// monitor publishes time events while playing and the end-of-media signal.
func (p *Player) monitor(ctx context.Context) {
	ticker := time.NewTicker(p.conf.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.report()
		}
	}
}

func (p *Player) report() {
	p.mu.Lock()
	playing := p.playing
	pos := p.framesToDuration(p.posFrames)
	p.mu.Unlock()

	ended := p.ended.Swap(false)
	if playing || ended {
		p.events.Publish(playback.Event{Kind: playback.EventTime, Position: pos})
	}

	if ended {
		p.events.Publish(playback.Event{Kind: playback.EventEnded})
	}
}
