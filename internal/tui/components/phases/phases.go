// Package phases renders the steps of a job as a breadcrumb with the current
// step highlighted.
package phases

import (
	"strings"

	"github.com/alkime/docucast/internal/tui/style"
)

const separator = " › "

// Model tracks which of a fixed list of steps is current.
type Model struct {
	names  []string
	curr   int
	failed bool
}

func New(names ...string) Model {
	return Model{names: names}
}

// Set makes step i current and clears any failure. Out of range values are
// clamped.
func (m Model) Set(i int) Model {
	m.curr = min(max(i, 0), len(m.names)-1)
	m.failed = false

	return m
}

// Fail marks the current step as the one that failed.
func (m Model) Fail() Model {
	m.failed = true
	return m
}

func (m Model) Current() int { return m.curr }

// CurrentName returns the name of the current step.
func (m Model) CurrentName() string {
	if len(m.names) == 0 {
		return ""
	}

	return m.names[m.curr]
}

func (m Model) Failed() bool { return m.failed }

func (m Model) View() string {
	parts := make([]string, len(m.names))

	for i, name := range m.names {
		switch {
		case i == m.curr && m.failed:
			parts[i] = style.Error.Render(name)
		case i == m.curr:
			parts[i] = style.Title.Render(name)
		case i < m.curr:
			parts[i] = style.Success.Render(name)
		default:
			parts[i] = style.Muted.Render(name)
		}
	}

	return strings.Join(parts, style.Muted.Render(separator))
}
