package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alkime/docucast/internal/lifecycle"
	tea "github.com/charmbracelet/bubbletea"
)

// Run runs the application until it exits. The controller is torn down on
// every exit path, including interrupts and cancellation of ctx, which end
// the program without a quit key reaching Update.
func Run(ctx context.Context, config Config, ctrl *lifecycle.Controller, opts ...tea.ProgramOption) error {
	defer ctrl.Teardown()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)

	_, err := tea.NewProgram(New(config, ctrl), opts...).Run()

	switch {
	case err == nil:
		return nil
	case errors.Is(err, tea.ErrInterrupted), errors.Is(err, tea.ErrProgramKilled):
		slog.Info("TUI stopped", "reason", err)
		return nil
	default:
		return fmt.Errorf("failed to run TUI: %w", err)
	}
}
