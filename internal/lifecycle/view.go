package lifecycle

import (
	"fmt"
	"strings"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/tui/style"
	"github.com/charmbracelet/lipgloss"
)

// GenericFailure is shown for every failed conversion; the cause follows it
// as detail.
const GenericFailure = "Something went wrong while creating your podcast."

func (c *Controller) View() string {
	if c.job == nil {
		return c.viewIntake()
	}

	switch state := c.job.State().(type) {
	case Idle:
		return c.viewReady()
	case Uploading, Processing:
		return c.spinner.ViewWithBody(c.est.View())
	case Complete:
		return c.viewComplete()
	case Failed:
		return c.viewFailed(state.Err)
	}

	return ""
}

func (c *Controller) viewIntake() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Choose a PDF to turn into a podcast"))
	sb.WriteString("\n\n")
	sb.WriteString(c.input.View())
	sb.WriteString("\n\n")

	if c.notice != "" {
		sb.WriteString(style.Error.Render(c.notice))
		sb.WriteString("\n\n")
	}

	sb.WriteString(style.KeysHelp(c.keys.Select))

	return sb.String()
}

func (c *Controller) viewReady() string {
	doc := c.job.Document

	var sb strings.Builder

	sb.WriteString(style.Title.Render(doc.Name))
	sb.WriteString(" ")
	sb.WriteString(style.Muted.Render(formatSize(doc.Size)))
	sb.WriteString("\n\n")

	humor := "off"
	if c.prefs.Humor {
		humor = "on"
	}

	rows := [][2]string{
		{"Tone", string(c.prefs.Tone)},
		{"Length", string(c.prefs.Length)},
		{"Depth", string(c.prefs.Depth)},
		{"Humor", humor},
	}

	for _, row := range rows {
		sb.WriteString(style.Bullet.Render("•"))
		sb.WriteString(" ")
		sb.WriteString(style.Label.Render(fmt.Sprintf("%-7s", row[0]+":")))
		sb.WriteString(" ")
		sb.WriteString(row[1])
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(style.KeysHelp(c.keys.Submit, c.keys.Tone, c.keys.Length, c.keys.Depth, c.keys.Humor, c.keys.Change))

	return sb.String()
}

// viewComplete keeps the track bar on PlayerRow so mouse seeks line up.
func (c *Controller) viewComplete() string {
	var sb strings.Builder

	sb.WriteString(style.Success.Render("✓ "))
	sb.WriteString(style.Title.Render(c.job.Document.Name))
	sb.WriteString("\n\n")

	if c.player != nil {
		sb.WriteString(c.player.View())
		sb.WriteString("\n\n")
	}

	sb.WriteString(style.Viewport.Render(c.transcript.View()))
	sb.WriteString("\n")

	switch {
	case c.saveErr != nil:
		sb.WriteString(style.Error.Render(c.saveErr.Error()))
		sb.WriteString("\n")
	case c.saved != "":
		sb.WriteString(style.Label.Render("Saved: "))
		sb.WriteString(style.Muted.Render(c.saved))
		sb.WriteString("\n")
	}

	sb.WriteString(style.KeysHelp(c.keys.Download, c.keys.Reset))

	return sb.String()
}

func (c *Controller) viewFailed(err error) string {
	var sb strings.Builder

	sb.WriteString(style.Error.Render("✗ " + GenericFailure))
	sb.WriteString("\n\n")

	if err != nil {
		sb.WriteString(style.Muted.Width(c.width).Render(err.Error()))
		sb.WriteString("\n\n")
	}

	sb.WriteString(c.est.View())
	sb.WriteString("\n\n")
	sb.WriteString(style.KeysHelp(c.keys.Reset))

	return sb.String()
}

// renderTranscript formats the conversation with speaker labels.
func renderTranscript(lines []conversion.Line, width int) string {
	if len(lines) == 0 {
		return style.Muted.Render("No transcript.")
	}

	textWidth := max(10, width-4)
	blocks := make([]string, 0, len(lines))

	for _, line := range lines {
		label := style.Host.Render("Host")
		if line.Speaker == conversion.SpeakerExpert {
			label = style.Expert.Render("Expert")
		}

		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, label, lipgloss.NewStyle().Width(textWidth).Render(line.Text)))
	}

	return strings.Join(blocks, "\n\n")
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
