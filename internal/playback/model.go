package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alkime/docucast/internal/tui/components/waveform"
	"github.com/alkime/docucast/internal/tui/style"
	"github.com/alkime/docucast/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// State is the observable playback state.
type State struct {
	Playing  bool
	Position time.Duration
	Duration time.Duration
	Rate     float64
}

// Read returns the position in seconds.
func (s State) Read() float64 {
	return s.Position.Seconds()
}

// Cap returns position and duration in seconds.
func (s State) Cap() (float64, float64) {
	return s.Position.Seconds(), s.Duration.Seconds()
}

var _ uictl.CappedDial[float64] = State{}

type loadedMsg struct {
	id  int
	src Source
	err error
}

type eventMsg struct {
	id int
	ev Event
}

var lastID atomic.Int64

// Model is the playback controller for one audio result.
type Model struct {
	id      int
	keys    KeyMap
	opener  Opener
	url     string
	cancel  context.CancelFunc
	src     Source
	events  chan Event
	state   State
	loading bool
	closed  bool
	err     error
	bar     progress.Model
	wave    *waveform.Model
	width   int
}

// New creates a controller for the audio at url. Loading starts with Init.
func New(opener Opener, url string, rate float64) *Model {
	if ValidateRate(rate) != nil {
		rate = 1
	}

	return &Model{
		id:     int(lastID.Add(1)),
		keys:   DefaultKeyMap(),
		opener: opener,
		url:    url,
		state:  State{Rate: rate},
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		width: 40,
	}
}

// State returns a snapshot of the playback state.
func (m *Model) State() State { return m.state }

// Loaded reports whether a source is attached.
func (m *Model) Loaded() bool { return m.src != nil }

// Err returns the last contained playback error, if any.
func (m *Model) Err() error { return m.err }

// Init starts loading the source.
func (m *Model) Init() tea.Cmd {
	if m.closed || m.loading || m.src != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.loading = true

	id, opener, url := m.id, m.opener, m.url

	return func() tea.Msg {
		src, err := opener.Open(ctx, url)
		return loadedMsg{id: id, src: src, err: err}
	}
}

// Update handles load completion, source events, and playback keys.
func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case loadedMsg:
		if msg.id != m.id || m.closed {
			Release(msg)
			return m, nil
		}

		return m, m.attach(msg)

	case eventMsg:
		if msg.id != m.id || m.src == nil {
			return m, nil
		}

		m.apply(msg.ev)

		return m, m.waitEvent()

	case waveform.TickMsg:
		if m.wave == nil || m.closed {
			return m, nil
		}

		wave, cmd := m.wave.Update(msg)
		m.wave = &wave

		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model) //nolint:forcetypeassert // bubbles library contract

		return m, cmd

	case tea.KeyMsg:
		m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	var err error

	switch {
	case key.Matches(msg, m.keys.Toggle):
		err = m.Toggle()
	case key.Matches(msg, m.keys.Back):
		err = m.SeekBy(-10 * time.Second)
	case key.Matches(msg, m.keys.Forward):
		err = m.SeekBy(10 * time.Second)
	case key.Matches(msg, m.keys.Faster):
		err = m.SetRate(NextRate(m.state.Rate))
	case key.Matches(msg, m.keys.Slower):
		err = m.SetRate(PrevRate(m.state.Rate))
	case key.Matches(msg, m.keys.Jump):
		if r := msg.Runes; len(r) == 1 && r[0] >= '0' && r[0] <= '9' {
			err = m.Seek(float64(r[0]-'0') / 10)
		}
	}

	if err != nil && !errors.Is(err, ErrNoSource) {
		m.err = err
	}
}

// attach binds a freshly loaded source: apply the rate, then subscribe. A
// source that cannot be subscribed to is closed again.
func (m *Model) attach(msg loadedMsg) tea.Cmd {
	m.loading = false

	if msg.err != nil {
		m.err = fmt.Errorf("failed to load audio: %w", msg.err)
		slog.Error("Failed to load audio", "url", m.url, "error", msg.err)

		return nil
	}

	if err := msg.src.SetRate(m.state.Rate); err != nil {
		slog.Warn("Failed to apply playback rate", "rate", m.state.Rate, "error", err)
	}

	events := make(chan Event, 32)
	if err := msg.src.Subscribe(events); err != nil {
		m.err = fmt.Errorf("failed to subscribe to audio events: %w", err)
		closeSource(msg.src)

		return nil
	}

	m.src = msg.src
	m.events = events

	cmds := []tea.Cmd{m.waitEvent()}

	if levels, ok := msg.src.(uictl.Levels[int16]); ok {
		wave := waveform.New(levels, m.width, 2)
		m.wave = &wave
		cmds = append(cmds, wave.Init())
	}

	return tea.Batch(cmds...)
}

func (m *Model) waitEvent() tea.Cmd {
	id, events := m.id, m.events

	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}

		return eventMsg{id: id, ev: ev}
	}
}

func (m *Model) apply(ev Event) {
	switch ev.Kind {
	case EventTime:
		m.state.Position = ev.Position
	case EventDuration:
		m.state.Duration = ev.Duration
	case EventEnded:
		m.state.Playing = false
	}
}

// Toggle pauses a playing source or starts a paused one.
func (m *Model) Toggle() error {
	if m.src == nil {
		return ErrNoSource
	}

	if m.state.Playing {
		if err := m.src.Pause(); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}

		m.state.Playing = false

		return nil
	}

	if err := m.src.Play(); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	m.state.Playing = true

	return nil
}

// Seek moves to fraction of the duration. It does nothing while the duration
// is unknown. The position is updated without waiting for the source.
func (m *Model) Seek(fraction float64) error {
	if m.src == nil {
		return ErrNoSource
	}

	if m.state.Duration <= 0 {
		return nil
	}

	fraction = min(max(fraction, 0), 1)
	pos := time.Duration(fraction * float64(m.state.Duration))

	if err := m.src.Seek(pos); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	m.state.Position = pos

	return nil
}

// SeekBy moves relative to the current position.
func (m *Model) SeekBy(delta time.Duration) error {
	if m.state.Duration <= 0 {
		return m.Seek(0)
	}

	return m.Seek(float64(m.state.Position+delta) / float64(m.state.Duration))
}

// SeekAt seeks to the position under column x of the rendered track bar.
func (m *Model) SeekAt(x int) error {
	return m.Seek(SeekFraction(x, 0, m.bar.Width))
}

// SetRate changes the playback speed. The rate is kept even without a
// source so a later load applies it.
func (m *Model) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}

	m.state.Rate = rate

	if m.src == nil {
		return nil
	}

	if err := m.src.SetRate(rate); err != nil {
		return fmt.Errorf("failed to set rate: %w", err)
	}

	return nil
}

// Dispose stops playback, releases the source and cancels any pending load.
// Safe to call more than once.
func (m *Model) Dispose() {
	if m.closed {
		return
	}

	m.closed = true

	if m.cancel != nil {
		m.cancel()
	}

	if m.src == nil {
		return
	}

	if err := m.src.Pause(); err != nil {
		slog.Debug("Failed to pause source on dispose", "error", err)
	}

	m.src.Unsubscribe(m.events)
	close(m.events)
	closeSource(m.src)

	m.src = nil
	m.events = nil
	m.wave = nil
	m.state.Playing = false
}

// Release closes the source carried by a load message that no live
// controller will take.
func Release(teaMsg tea.Msg) {
	if msg, ok := teaMsg.(loadedMsg); ok && msg.src != nil {
		slog.Debug("Releasing audio source loaded for a discarded player")
		closeSource(msg.src)
	}
}

func closeSource(src Source) {
	if err := src.Close(); err != nil {
		slog.Warn("Failed to close audio source", "error", err)
	}
}

// SetWidth resizes the track bar and waveform.
func (m *Model) SetWidth(w int) {
	m.width = max(10, w)
	m.bar.Width = m.width

	if m.wave != nil {
		wave := m.wave.WithWidth(m.width)
		m.wave = &wave
	}
}

// View renders the track bar, times, rate and waveform.
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.bar.ViewAs(uictl.Fraction[float64](m.state)))
	sb.WriteString("\n")

	switch {
	case m.loading:
		sb.WriteString(style.Subtitle.Render("Loading audio..."))
	case m.src == nil && m.err != nil:
		sb.WriteString(style.Error.Render("Playback unavailable: " + m.err.Error()))
	default:
		icon := "▶"
		if m.state.Playing {
			icon = "⏸"
		}

		sb.WriteString(style.Title.Render(icon))
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(
			fmt.Sprintf("%s / %s  %gx", formatClock(m.state.Position), formatClock(m.state.Duration), m.state.Rate),
		))

		if m.err != nil {
			sb.WriteString("  ")
			sb.WriteString(style.Warning.Render(m.err.Error()))
		}
	}

	if m.wave != nil {
		sb.WriteString("\n")
		sb.WriteString(m.wave.View())
	}

	sb.WriteString("\n")
	sb.WriteString(m.keys.help())

	return sb.String()
}

func formatClock(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())

	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
