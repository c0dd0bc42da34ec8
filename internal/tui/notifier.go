package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-lens/core"
)

// Notifier tells a running program that the orchestrator state changed. The
// program reads the latest snapshot itself, so notifications arriving out of
// order never show stale state. Notifications before a program is attached
// are dropped.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
}

func (n *Notifier) Attach(program *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.program = program
}

func (n *Notifier) Notify(orchestration.Snapshot) {
	n.mu.Lock()
	program := n.program
	n.mu.Unlock()

	if program != nil {
		program.Send(refreshMsg{})
	}
}
