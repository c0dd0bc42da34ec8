package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send              key.Binding
	Retry             key.Binding
	ClearContext      key.Binding
	ToggleSharing     key.Binding
	Capture           key.Binding
	RemoveImage       key.Binding
	ToggleTranslation key.Binding
	ToggleSpeech      key.Binding
	NextLanguage      key.Binding
	ClearTranslations key.Binding
	Dismiss           key.Binding
	Quit              key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:              key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Retry:             key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		ClearContext:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear context")),
		ToggleSharing:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "share screen")),
		Capture:           key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "capture")),
		RemoveImage:       key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "drop capture")),
		ToggleTranslation: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "translation")),
		ToggleSpeech:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "speech")),
		NextLanguage:      key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "language")),
		ClearTranslations: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "clear translations")),
		Dismiss:           key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Quit:              key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Retry, k.ToggleSharing, k.Capture, k.ToggleTranslation, k.ToggleSpeech, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Retry, k.ClearContext, k.Dismiss},
		{k.ToggleSharing, k.Capture, k.RemoveImage},
		{k.ToggleTranslation, k.ToggleSpeech, k.NextLanguage, k.ClearTranslations},
		{k.Quit},
	}
}
