// Package estimator approximates the completion of a conversion whose only real
// signal is a single all-or-nothing response.
//
// The estimator ramps quickly to a low threshold, then crawls towards a cap it
// never exceeds on its own. Once the response is available, Finish drives the
// value to 100 over a handful of fast ticks.
//
// Every run is tagged. Ticks carry the id and run they were scheduled for, and a
// tick whose run has been superseded (by Start, Finish, Cancel or Reset) is
// dropped without rescheduling, so at most one timer chain is ever live.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alkime/docucast/internal/tui/style"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Phase is the regime the estimator is currently in.
type Phase int

const (
	// PhaseIdle means no run has started since the last reset.
	PhaseIdle Phase = iota
	// PhaseRamp is the fast initial ramp towards RampCeiling.
	PhaseRamp
	// PhaseCrawl is the slow crawl towards CrawlCap.
	PhaseCrawl
	// PhaseHold means the crawl reached CrawlCap and is waiting for Finish.
	PhaseHold
	// PhaseFinish is the fast finishing ramp to 100.
	PhaseFinish
	// PhaseDone means the finishing ramp reached 100.
	PhaseDone
	// PhaseStopped means the run was cancelled.
	PhaseStopped
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRamp:
		return "ramp"
	case PhaseCrawl:
		return "crawl"
	case PhaseHold:
		return "hold"
	case PhaseFinish:
		return "finish"
	case PhaseDone:
		return "done"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config tunes the estimator's trajectory.
type Config struct {
	// Interval is the tick period of the ramp and crawl phases.
	Interval time.Duration
	// FinishInterval is the tick period of the finishing ramp.
	FinishInterval time.Duration
	// RampCeiling is where the fast ramp hands over to the crawl.
	RampCeiling float64
	// CrawlCap is the highest value reachable without Finish. Must be below 100.
	CrawlCap float64
	// RampStep, CrawlStep and FinishStep are the per-tick increments.
	RampStep   float64
	CrawlStep  float64
	FinishStep float64
}

// DefaultConfig returns the trajectory used by the TUI.
func DefaultConfig() Config {
	return Config{
		Interval:       150 * time.Millisecond,
		FinishInterval: 60 * time.Millisecond,
		RampCeiling:    15,
		CrawlCap:       85,
		RampStep:       1,
		CrawlStep:      0.1,
		FinishStep:     5,
	}
}

// WithDefaults returns a config with default values applied to zero fields.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()

	if c.Interval == 0 {
		c.Interval = d.Interval
	}

	if c.FinishInterval == 0 {
		c.FinishInterval = d.FinishInterval
	}

	if c.RampCeiling == 0 {
		c.RampCeiling = d.RampCeiling
	}

	if c.CrawlCap == 0 {
		c.CrawlCap = d.CrawlCap
	}

	if c.RampStep == 0 {
		c.RampStep = d.RampStep
	}

	if c.CrawlStep == 0 {
		c.CrawlStep = d.CrawlStep
	}

	if c.FinishStep == 0 {
		c.FinishStep = d.FinishStep
	}

	return c
}

// Validate returns an error if the config is invalid.
func (c Config) Validate() error {
	if c.Interval <= 0 || c.FinishInterval <= 0 {
		return errors.New("tick intervals must be positive")
	}

	if c.RampStep <= 0 || c.CrawlStep <= 0 || c.FinishStep <= 0 {
		return errors.New("steps must be positive")
	}

	if c.RampCeiling <= 0 || c.RampCeiling > c.CrawlCap {
		return fmt.Errorf("ramp ceiling must be in (0, %v]", c.CrawlCap)
	}

	if c.CrawlCap >= 100 {
		return errors.New("crawl cap must be below 100")
	}

	return nil
}

// TickMsg advances the run it was scheduled for.
type TickMsg struct {
	ID   int
	Run  int
	Time time.Time
}

// FinishedMsg is emitted once the finishing ramp reaches 100.
type FinishedMsg struct {
	ID  int
	Run int
}

var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}

// Model is the progress estimator component.
type Model struct {
	cfg   Config
	id    int
	run   int
	phase Phase
	value float64
	bar   progress.Model
}

// New creates an idle estimator.
func New(cfg Config) (Model, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Model{}, fmt.Errorf("invalid estimator config: %w", err)
	}

	return Model{
		cfg:   cfg,
		id:    nextID(),
		phase: PhaseIdle,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
	}, nil
}

// ID returns the estimator's unique id.
func (m Model) ID() int { return m.id }

// Phase returns the current phase.
func (m Model) Phase() Phase { return m.phase }

// Value returns the underlying fractional value in [0,100].
func (m Model) Value() float64 { return m.value }

// Percent returns the displayed value: Value rounded to the nearest integer.
func (m Model) Percent() int {
	return int(math.Round(m.value))
}

// Running reports whether a run is in progress, including holding at the cap.
func (m Model) Running() bool {
	switch m.phase {
	case PhaseRamp, PhaseCrawl, PhaseHold, PhaseFinish:
		return true
	default:
		return false
	}
}

// Start begins a new run from zero, superseding any run in progress.
func (m Model) Start() (Model, tea.Cmd) {
	m.run++
	m.value = 0
	m.phase = PhaseRamp

	return m, m.tick(m.cfg.Interval)
}

// Finish supersedes the ramp/crawl chain and starts the finishing ramp from
// the current value.
func (m Model) Finish() (Model, tea.Cmd) {
	m.run++
	m.phase = PhaseFinish

	return m, m.tick(m.cfg.FinishInterval)
}

// Cancel stops the current run. The value is held.
func (m Model) Cancel() Model {
	m.run++
	if m.Running() {
		m.phase = PhaseStopped
	}

	return m
}

// Reset stops the current run and returns the value to zero.
func (m Model) Reset() Model {
	m.run++
	m.value = 0
	m.phase = PhaseIdle

	return m
}

// Finished reports whether msg is the completion signal of the current run.
func (m Model) Finished(msg FinishedMsg) bool {
	return msg.ID == m.id && msg.Run == m.run && m.phase == PhaseDone
}

// Init is a no-op; runs are started explicitly with Start.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update applies ticks belonging to the current run.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if msg.ID != m.id || msg.Run != m.run {
			return m, nil
		}

		return m.advance()

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model) //nolint:forcetypeassert // bubbles library contract

		return m, cmd
	}

	return m, nil
}

func (m Model) advance() (Model, tea.Cmd) {
	switch m.phase {
	case PhaseRamp, PhaseCrawl:
		step := m.cfg.CrawlStep
		if m.value < m.cfg.RampCeiling {
			step = m.cfg.RampStep
		}

		m.value = min(m.value+step, m.cfg.CrawlCap)

		if m.value >= m.cfg.CrawlCap {
			m.phase = PhaseHold
			return m, nil
		}

		if m.value >= m.cfg.RampCeiling {
			m.phase = PhaseCrawl
		}

		return m, m.tick(m.cfg.Interval)

	case PhaseFinish:
		m.value += m.cfg.FinishStep
		if m.value < 100 {
			return m, m.tick(m.cfg.FinishInterval)
		}

		m.value = 100
		m.phase = PhaseDone
		id, run := m.id, m.run

		return m, func() tea.Msg { return FinishedMsg{ID: id, Run: run} }
	}

	return m, nil
}

func (m Model) tick(d time.Duration) tea.Cmd {
	id, run := m.id, m.run

	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg{ID: id, Run: run, Time: t}
	})
}

// SetWidth resizes the progress bar.
func (m *Model) SetWidth(w int) {
	m.bar.Width = max(10, w)
}

// View renders the bar followed by the displayed percentage.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.bar.ViewAs(m.value / 100))
	sb.WriteString(" ")
	sb.WriteString(style.Progress.Render(fmt.Sprintf("%3d%%", m.Percent())))

	return sb.String()
}
