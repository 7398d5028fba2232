// Package style defines lipgloss styles for the TUI.
package style

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// Names omit a "Style" suffix since they are read through the package name.
var (
	// Title is used for screen titles and headers.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Viewport frames the transcript.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key highlights a key inside a hint.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	Progress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	// Label is used for inline labels (e.g., "Tone:", "Saved:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for de-emphasized text (e.g., file paths).
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	Bullet = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205"))

	// Host and Expert color the two transcript voices.
	Host = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	Expert = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("170"))
)

// KeyHelp renders "[key] description" for a binding.
func KeyHelp(b key.Binding) string {
	return Help.Render("[") + Key.Render(b.Help().Key) + Help.Render("] ") + Help.Render(b.Help().Desc)
}

// KeysHelp renders hints for the enabled bindings on one line.
func KeysHelp(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))

	for _, b := range bindings {
		if b.Enabled() {
			parts = append(parts, KeyHelp(b))
		}
	}

	return strings.Join(parts, "  ")
}
