package orchestration

// Snapshot is a point-in-time copy of everything the orchestrator exposes.
type Snapshot struct {
	Session      SessionState
	SessionID    string
	Messages     []Message
	Translations []Translation
	Pending      PendingInput
	Banner       *Banner
	Settings     Settings

	IsSending     bool
	IsTranslating bool
	IsSpeaking    bool
	IsSharing     bool
}

// CanRetry reports whether the conversation ends with a failure that may
// succeed when sent again.
func (s Snapshot) CanRetry() bool {
	if len(s.Messages) == 0 {
		return false
	}
	last := s.Messages[len(s.Messages)-1]
	return last.IsError && last.IsRetryable
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snapshot := Snapshot{
		Session:      o.session,
		SessionID:    o.sessionID,
		Messages:     o.conversation.snapshot(),
		Translations: o.translations.snapshot(),
		Pending:      o.pending,
		Settings:     o.settings,

		IsSending:     o.requestGuard.Load(),
		IsTranslating: o.translating.Load() > 0,
		IsSpeaking:    o.speech.isSpeaking(),
		IsSharing:     o.capture.sharing(),
	}
	if o.banner != nil {
		banner := *o.banner
		snapshot.Banner = &banner
	}
	return snapshot
}
