package transport

import "time"

// Endpoints are the paths of the remote service, relative to the base URL.
type Endpoints struct {
	Chat         string
	Translate    string
	ClearContext string
	Languages    string
	SessionInfo  string
	Health       string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Chat:         "/chat",
		Translate:    "/translate",
		ClearContext: "/clear-context",
		Languages:    "/languages",
		SessionInfo:  "/session-info",
		Health:       "/health",
	}
}

type ChatRequest struct {
	Text string `json:"text"`
	// Image is a base64 encoded raster attached to the turn.
	Image string `json:"image,omitempty"`
}

type ChatResponse struct {
	Success      bool   `json:"success"`
	Response     string `json:"response"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count,omitempty"`
}

// ContextMessage is a conversation entry sent along with a translation so the
// service can disambiguate the text.
type ContextMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	HasImage  bool      `json:"has_image,omitempty"`
}

type TranslateRequest struct {
	Text                string           `json:"text"`
	TargetLanguage      string           `json:"target_language"`
	ConversationContext []ContextMessage `json:"conversation_context"`
}

type TranslateResponse struct {
	Success        bool   `json:"success"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	TargetLanguage string `json:"target_language,omitempty"`
	LanguageName   string `json:"language_name"`
	SessionID      string `json:"session_id,omitempty"`
}

type SessionInfo struct {
	SessionID    string  `json:"session_id"`
	MessageCount int     `json:"message_count"`
	LastActivity *string `json:"last_activity"`
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// envelope carries the fields every response of the service may include.
type envelope struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}
