// Package waveform renders recently played audio samples as block bars.
package waveform

import (
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alkime/docucast/internal/tui/style"
	"github.com/alkime/docucast/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Eight fill levels per row, index 0 is empty.
const blockChars = " ▁▂▃▄▅▆▇█"

// FrameInterval is the redraw period.
const FrameInterval = 50 * time.Millisecond

// TickMsg triggers a redraw of the waveform with the matching ID.
type TickMsg struct {
	ID int
}

var lastID atomic.Int64

// Model draws amplitude over time, oldest samples on the left.
type Model struct {
	id     int
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a waveform reading from levels, width columns by height rows.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		id:     int(lastID.Add(1)),
		levels: levels,
		width:  max(1, width),
		height: max(1, height),
	}
}

// ID identifies this waveform's ticks.
func (m Model) ID() int { return m.id }

// WithWidth returns a copy drawing width columns.
func (m Model) WithWidth(width int) Model {
	m.width = max(1, width)
	return m
}

// Init starts the redraw loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update reschedules on its own ticks and ignores everything else.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if tick, ok := msg.(TickMsg); ok && tick.ID == m.id {
		return m, m.tick()
	}

	return m, nil
}

func (m Model) tick() tea.Cmd {
	id := m.id

	return tea.Tick(FrameInterval, func(time.Time) tea.Msg {
		return TickMsg{ID: id}
	})
}

// View renders the current samples.
func (m Model) View() string {
	if m.levels == nil {
		return m.renderFlat()
	}

	samples := m.levels.Read()
	if len(samples) == 0 {
		return m.renderFlat()
	}

	return m.render(m.columnLevels(samples))
}

func (m Model) render(levels []int) string {
	runes := []rune(blockChars)
	rows := make([]string, 0, m.height)

	for row := range m.height {
		floor := (m.height - 1 - row) * 8

		var sb strings.Builder
		for _, level := range levels {
			fill := min(max(level-floor, 0), 8)
			sb.WriteRune(runes[fill])
		}

		rows = append(rows, style.Progress.Render(sb.String()))
	}

	return strings.Join(rows, "\n")
}

// columnLevels buckets samples into one peak level per column, each in
// [0, height*8].
func (m Model) columnLevels(samples []int16) []int {
	levels := make([]int, m.width)
	bucket := max(1, len(samples)/m.width)
	top := m.height * 8

	for col := range m.width {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		end := min(start+bucket, len(samples))
		levels[col] = scale(peak(samples[start:end]), top)
	}

	return levels
}

func (m Model) renderFlat() string {
	rows := make([]string, 0, m.height)

	for row := range m.height {
		ch := " "
		if row == m.height-1 {
			ch = "▁"
		}

		rows = append(rows, style.Muted.Render(strings.Repeat(ch, m.width)))
	}

	return strings.Join(rows, "\n")
}

func peak(samples []int16) int {
	var p int

	for _, s := range samples {
		a := int(s)
		if a < 0 {
			a = -a
		}

		p = max(p, a)
	}

	return min(p, math.MaxInt16)
}

// scale maps a peak amplitude onto [0, top] with a square-root curve so
// quiet speech stays visible.
func scale(amp, top int) int {
	if amp <= 0 {
		return 0
	}

	level := math.Sqrt(float64(amp)/math.MaxInt16) * float64(top)

	return min(int(level), top)
}
