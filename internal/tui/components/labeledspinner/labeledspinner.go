// Package labeledspinner renders a spinner beside a title, with a subtitle
// and an optional body underneath.
package labeledspinner

import (
	"strings"

	"github.com/alkime/docucast/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is a spinner with a title, subtitle, and help line.
type Model struct {
	Spinner  spinner.Model
	Title    string
	Subtitle string
	Help     string
}

func New(s spinner.Spinner, title, subtitle, help string) Model {
	sp := spinner.New()
	sp.Spinner = s
	sp.Style = style.Progress

	return Model{
		Spinner:  sp,
		Title:    title,
		Subtitle: subtitle,
		Help:     help,
	}
}

func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update only consumes spinner ticks.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

func (ls Model) View() string {
	return ls.ViewWithBody("")
}

// ViewWithBody places body, such as a progress bar, between the subtitle and
// the help line.
func (ls Model) ViewWithBody(body string) string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.Title))
	sb.WriteString("\n\n")

	if ls.Subtitle != "" {
		sb.WriteString(style.Subtitle.Render(ls.Subtitle))
		sb.WriteString("\n\n")
	}

	if body != "" {
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}

	if ls.Help != "" {
		sb.WriteString(style.Help.Render(ls.Help))
	}

	return strings.TrimRight(sb.String(), "\n")
}
