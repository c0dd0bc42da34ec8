package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the UI until the user quits or ctx ends. Debug output goes to
// logFile when one is given, since the terminal is taken.
func Run(ctx context.Context, orchestrator Orchestrator, notifier *Notifier, logFile string) error {
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "ema-lens")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
	}

	program := tea.NewProgram(NewModel(ctx, orchestrator), tea.WithAltScreen(), tea.WithContext(ctx))
	if notifier != nil {
		notifier.Attach(program)
		defer notifier.Attach(nil)
	}

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal ui failed: %w", err)
	}
	return nil
}
