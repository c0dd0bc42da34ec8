package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-lens/core/capture"
	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/koscakluka/ema-lens/core/texttospeech"
	"github.com/koscakluka/ema-lens/core/transport"
)

const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultContextWindow  = 6
)

// Transport is the remote assistant service.
type Transport interface {
	Chat(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error)
	Translate(ctx context.Context, req transport.TranslateRequest) (*transport.TranslateResponse, error)
	ClearContext(ctx context.Context) error
}

type OrchestratorOption func(*Orchestrator)

func WithSpeechEngine(engine texttospeech.Engine) OrchestratorOption {
	return func(o *Orchestrator) { o.speech.engine = engine }
}

func WithScreen(screen capture.Screen) OrchestratorOption {
	return func(o *Orchestrator) { o.capture.screen = screen }
}

func WithCaptureOptions(opts capture.EncodeOptions) OrchestratorOption {
	return func(o *Orchestrator) { o.capture.encodeOptions = opts }
}

// WithRequestTimeout bounds every call to the assistant service. Zero
// disables the bound.
func WithRequestTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout >= 0 {
			o.requestTimeout = timeout
		}
	}
}

// WithContextWindow sets how many of the latest messages are sent along with
// a translation.
func WithContextWindow(size int) OrchestratorOption {
	return func(o *Orchestrator) {
		if size >= 0 {
			o.contextWindow = size
		}
	}
}

// WithLanguage sets the initial translation target. Unsupported codes are
// ignored.
func WithLanguage(code string) OrchestratorOption {
	return func(o *Orchestrator) {
		if languages.IsSupported(code) {
			o.settings.Language = code
		}
	}
}

func WithTranslation(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.settings.TranslationEnabled = enabled }
}

// WithSpeech enables speaking translations. It only has an effect together
// with translation.
func WithSpeech(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.settings.SpeechEnabled = enabled }
}

// WithStateChangedCallback registers a callback that receives a snapshot after
// every observable change. It is called without any locks held and may be
// called from several goroutines.
func WithStateChangedCallback(callback func(Snapshot)) OrchestratorOption {
	return func(o *Orchestrator) { o.onStateChanged = callback }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
