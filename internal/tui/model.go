// Package tui is the terminal front end: a header with the job's progress
// through its steps above the lifecycle controller's screen.
package tui

import (
	"strings"

	"github.com/alkime/docucast/internal/lifecycle"
	"github.com/alkime/docucast/internal/tui/components/phases"
	"github.com/alkime/docucast/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// headerHeight is the number of lines View prints above the controller.
const headerHeight = 2

// Steps shown in the header, in order.
const (
	StepChoose = iota
	StepCustomize
	StepUpload
	StepGenerate
	StepListen
)

// Config configures the root model.
type Config struct {
	// Path, when set, is selected as soon as the program starts.
	Path string
	// Cancel is called once when the user quits.
	Cancel func()
}

type model struct {
	config Config
	keys   KeyMap
	ctrl   *lifecycle.Controller
	steps  phases.Model
}

// New wraps ctrl in the application frame.
func New(config Config, ctrl *lifecycle.Controller) tea.Model {
	return &model{
		config: config,
		keys:   DefaultKeyMap(),
		ctrl:   ctrl,
		steps:  phases.New("Choose", "Customize", "Upload", "Generate", "Listen"),
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.ctrl.Init()}

	if m.config.Path != "" {
		path := m.config.Path
		cmds = append(cmds, func() tea.Msg { return lifecycle.SelectFileMsg{Path: path} })
	}

	return tea.Batch(cmds...)
}

func (m *model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.ForceQuit):
			return m, m.quit()
		case key.Matches(msg, m.keys.Quit) && !m.ctrl.Editing():
			return m, m.quit()
		}

	case tea.WindowSizeMsg:
		msg.Height = max(0, msg.Height-headerHeight)
		teaMsg = msg

	case tea.MouseMsg:
		msg.Y -= headerHeight
		teaMsg = msg
	}

	_, cmd := m.ctrl.Update(teaMsg)
	m.syncSteps()

	return m, cmd
}

func (m *model) quit() tea.Cmd {
	m.ctrl.Teardown()

	if m.config.Cancel != nil {
		m.config.Cancel()
		m.config.Cancel = nil
	}

	return tea.Quit
}

func (m *model) syncSteps() {
	job := m.ctrl.Job()
	if job == nil {
		m.steps = m.steps.Set(StepChoose)
		return
	}

	switch job.Status() {
	case lifecycle.StatusIdle:
		m.steps = m.steps.Set(StepCustomize)
	case lifecycle.StatusUploading:
		m.steps = m.steps.Set(StepUpload)
	case lifecycle.StatusProcessing:
		m.steps = m.steps.Set(StepGenerate)
	case lifecycle.StatusComplete:
		m.steps = m.steps.Set(StepListen)
	case lifecycle.StatusError:
		if !m.steps.Failed() {
			m.steps = m.steps.Fail()
		}
	}
}

func (m *model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Docucast"))
	sb.WriteString("  ")
	sb.WriteString(m.steps.View())
	sb.WriteString("\n\n")

	sb.WriteString(m.ctrl.View())
	sb.WriteString("\n\n")

	if m.ctrl.Editing() {
		sb.WriteString(style.KeysHelp(m.keys.ForceQuit))
	} else {
		sb.WriteString(style.KeysHelp(m.keys.Quit))
	}

	return sb.String()
}
