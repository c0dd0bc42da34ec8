// Package tui is the terminal front end of the assistant client.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-lens/core"
	"github.com/koscakluka/ema-lens/core/languages"
)

// Orchestrator is the part of the orchestrator the UI drives.
type Orchestrator interface {
	SendMessage(ctx context.Context, text, image string) error
	RetryLastMessage(ctx context.Context) error
	ClearContext(ctx context.Context) error
	CaptureNow(ctx context.Context) error
	StartSharing(ctx context.Context) error
	StopSharing()
	RemovePendingImage()
	DismissBanner()
	SetTranslationEnabled(enabled bool)
	SetSpeechEnabled(ctx context.Context, enabled bool) error
	SetLanguage(code string) error
	ClearTranslations()
	Snapshot() orchestration.Snapshot
}

type refreshMsg struct{}

// actionDoneMsg reports the result of an orchestrator call made in the
// background.
type actionDoneMsg struct {
	err error
}

const (
	inputHeight  = 3
	chromeHeight = inputHeight + 6
)

type Model struct {
	ctx          context.Context
	orchestrator Orchestrator

	snapshot orchestration.Snapshot
	// status is a transient notice about the last key press.
	status string

	keys     keyMap
	help     help.Model
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
}

func NewModel(ctx context.Context, orchestrator Orchestrator) Model {
	input := textarea.New()
	input.Placeholder = "Ask about your screen..."
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	return Model{
		ctx:          ctx,
		orchestrator: orchestrator,
		snapshot:     orchestrator.Snapshot(),
		keys:         defaultKeyMap(),
		help:         help.New(),
		input:        input,
		viewport:     viewport.New(80, 20),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		width:        80,
		height:       20 + chromeHeight,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.refreshContent()
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, nil

	case actionDoneMsg:
		m.status = statusFor(msg.err)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	o := m.orchestrator
	ctx := m.ctx
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Send):
		text := m.input.Value()
		image := m.snapshot.Pending.Image
		m.input.Reset()
		return m.run(func() error { return o.SendMessage(ctx, text, image) }), true

	case key.Matches(msg, m.keys.Retry):
		m.input.Reset()
		return m.run(func() error { return o.RetryLastMessage(ctx) }), true

	case key.Matches(msg, m.keys.ClearContext):
		return m.run(func() error { return o.ClearContext(ctx) }), true

	case key.Matches(msg, m.keys.ToggleSharing):
		if m.snapshot.IsSharing {
			return m.run(func() error { o.StopSharing(); return nil }), true
		}
		return m.run(func() error { return o.StartSharing(ctx) }), true

	case key.Matches(msg, m.keys.Capture):
		return m.run(func() error { return o.CaptureNow(ctx) }), true

	case key.Matches(msg, m.keys.RemoveImage):
		return m.run(func() error { o.RemovePendingImage(); return nil }), true

	case key.Matches(msg, m.keys.ToggleTranslation):
		enabled := !m.snapshot.Settings.TranslationEnabled
		return m.run(func() error { o.SetTranslationEnabled(enabled); return nil }), true

	case key.Matches(msg, m.keys.ToggleSpeech):
		enabled := !m.snapshot.Settings.SpeechEnabled
		return m.run(func() error { return o.SetSpeechEnabled(ctx, enabled) }), true

	case key.Matches(msg, m.keys.NextLanguage):
		next := nextLanguage(m.snapshot.Settings.Language)
		return m.run(func() error { return o.SetLanguage(next) }), true

	case key.Matches(msg, m.keys.ClearTranslations):
		return m.run(func() error { o.ClearTranslations(); return nil }), true

	case key.Matches(msg, m.keys.Dismiss):
		return m.run(func() error { o.DismissBanner(); return nil }), true
	}

	return nil, false
}

// run calls the orchestrator off the update loop. Orchestrator calls notify
// the program, which would block while the loop is busy.
func (m *Model) run(action func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: action()}
	}
}

func (m *Model) refresh() {
	m.snapshot = m.orchestrator.Snapshot()
	if m.input.Value() == "" && m.snapshot.Pending.Text != "" {
		m.input.SetValue(m.snapshot.Pending.Text)
	}
	m.refreshContent()
}

func (m *Model) refreshContent() {
	m.viewport.SetContent(renderConversation(m.snapshot, m.viewport.Width))
	m.viewport.GotoBottom()
}

// statusFor describes rejected key presses. Failures of the service or the
// screen already show up in the banner.
func statusFor(err error) string {
	switch {
	case errors.Is(err, orchestration.ErrRequestInFlight):
		return "Still waiting for the previous reply"
	case errors.Is(err, orchestration.ErrTranslationDisabled):
		return "Enable translation before speech"
	default:
		return ""
	}
}

func nextLanguage(current string) string {
	all := languages.All()
	for i, language := range all {
		if language.Code == current {
			return all[(i+1)%len(all)].Code
		}
	}
	return languages.Default
}
