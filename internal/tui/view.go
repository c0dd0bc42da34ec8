package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-lens/core"
	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var (
	accentStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	userStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	assistantStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	translationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bannerStyle      = lipgloss.NewStyle().
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("124")).
				Padding(0, 1)
)

const messageIndent = 2

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(renderHeader(m.snapshot))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.snapshot.Banner != nil {
		b.WriteString(renderBanner(*m.snapshot.Banner))
		b.WriteString("\n")
	}

	b.WriteString(m.renderActivity())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func renderHeader(s orchestration.Snapshot) string {
	session := "new session"
	if s.SessionID != "" {
		session = "session " + s.SessionID
	}

	translation := "off"
	if s.Settings.TranslationEnabled {
		translation = languages.Name(s.Settings.Language)
	}

	parts := []string{
		titleStyle.Render("ema-lens"),
		mutedStyle.Render(session),
		"translation: " + translation,
		"speech: " + onOff(s.Settings.SpeechEnabled),
		"sharing: " + onOff(s.IsSharing),
	}
	return strings.Join(parts, mutedStyle.Render(" | "))
}

// renderConversation lays out the messages followed by the translations,
// wrapped to width.
func renderConversation(s orchestration.Snapshot, width int) string {
	if len(s.Messages) == 0 {
		return mutedStyle.Render("Type a message, or share your screen and capture it with ctrl+p.")
	}

	wrapAt := max(width-messageIndent, 10)

	var b strings.Builder
	for i, msg := range s.Messages {
		if i > 0 {
			b.WriteString("\n")
		}

		switch {
		case msg.IsError:
			b.WriteString(errorStyle.Render("Error"))
		case msg.Role == orchestration.RoleUser:
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		if msg.HasImage {
			b.WriteString(mutedStyle.Render(" [screenshot]"))
		}
		b.WriteString("\n")

		content := msg.Content
		if msg.IsError && msg.IsRetryable {
			content += " (ctrl+r to retry)"
		}
		body := indent.String(wordwrap.String(content, wrapAt), messageIndent)
		if msg.IsError {
			body = errorStyle.Render(body)
		}
		b.WriteString(body)
		b.WriteString("\n")
	}

	if s.Settings.TranslationEnabled && len(s.Translations) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Translations"))
		b.WriteString("\n")
		for _, translation := range s.Translations {
			label := fmt.Sprintf("[%s] ", translation.LanguageName)
			text := wordwrap.String(label+translation.Translated, wrapAt)
			b.WriteString(translationStyle.Render(indent.String(text, messageIndent)))
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderBanner(banner orchestration.Banner) string {
	text := banner.Message
	if banner.Retryable {
		text += " (ctrl+r to retry)"
	}
	return bannerStyle.Render(text + "  esc to dismiss")
}

func (m Model) renderActivity() string {
	var parts []string
	switch {
	case m.snapshot.IsSending:
		parts = append(parts, m.spinner.View()+" waiting for reply")
	case m.snapshot.IsTranslating:
		parts = append(parts, m.spinner.View()+" translating")
	}
	if m.snapshot.IsSpeaking {
		parts = append(parts, "speaking")
	}
	if m.snapshot.Pending.Image != "" {
		parts = append(parts, accentStyle.Render("screenshot attached")+mutedStyle.Render(" (ctrl+x to drop)"))
	}
	if m.status != "" {
		parts = append(parts, errorStyle.Render(m.status))
	}
	return strings.Join(parts, mutedStyle.Render(" · "))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
