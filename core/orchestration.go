// Package orchestration sequences the turns of an assistant conversation:
// user input and screen captures go out to the assistant service, replies
// come back into the conversation and, when enabled, are translated and
// spoken.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-lens/core/capture"
	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/koscakluka/ema-lens/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type SessionState int

const (
	SessionNone SessionState = iota
	SessionActive
)

func (s SessionState) String() string {
	if s == SessionActive {
		return "active"
	}
	return "none"
}

type Settings struct {
	TranslationEnabled bool
	Language           string
	SpeechEnabled      bool
}

// Banner is a dismissible notice about the latest failure.
type Banner struct {
	Message   string
	Retryable bool
}

// PendingInput is the draft of the next turn.
type PendingInput struct {
	Text string
	// Image is the pending capture, base64 encoded.
	Image string
}

type Orchestrator struct {
	client Transport

	mu           sync.RWMutex
	session      SessionState
	sessionID    string
	conversation conversation
	translations translationLog
	pending      PendingInput
	// lastInput is the input of the latest failed send, reissued by a retry.
	lastInput PendingInput
	banner    *Banner
	settings  Settings

	// requestGuard is set while a chat request is in flight.
	requestGuard atomic.Bool
	translating  atomic.Int32
	translators  sync.WaitGroup

	speech  *speechBridge
	capture *captureBridge

	requestTimeout time.Duration
	contextWindow  int
	now            func() time.Time
	onStateChanged func(Snapshot)

	// closed stops new translations from being tracked once Close waits
	// for the running ones.
	closed    bool
	closeOnce sync.Once
}

func NewOrchestrator(client Transport, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:         client,
		settings:       Settings{Language: languages.Default},
		speech:         &speechBridge{},
		capture:        &captureBridge{encodeOptions: capture.DefaultEncodeOptions()},
		requestTimeout: DefaultRequestTimeout,
		contextWindow:  DefaultContextWindow,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.speech.onChange = o.notify
	if !o.settings.TranslationEnabled {
		o.settings.SpeechEnabled = false
	}

	return o
}

// Close stops any speech and screen sharing and waits for translations that
// are still in flight.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		o.speech.cancel()
		if err := o.capture.stop(); err != nil {
			logger.Error("failed to stop screen sharing", "error", err)
		}
		o.translators.Wait()
		o.speech.wait()
	})
}

// StartSession discards the local conversation and starts over. The service
// assigns a session id with the first reply.
func (o *Orchestrator) StartSession() {
	o.speech.cancel()

	o.mu.Lock()
	o.session = SessionActive
	o.sessionID = ""
	o.conversation.reset()
	o.translations.reset()
	o.pending = PendingInput{}
	o.lastInput = PendingInput{}
	o.banner = nil
	o.mu.Unlock()

	o.notify()
}

// ClearContext asks the service to forget the conversation and, only once it
// has, clears the local state too. On failure nothing changes locally and the
// classified error is returned.
func (o *Orchestrator) ClearContext(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "clear context")
	defer span.End()

	callCtx, cancel := o.withTimeout(ctx)
	err := o.client.ClearContext(callCtx)
	cancel()
	if err != nil {
		turnErr := Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, turnErr.Message)
		logger.WarnContext(ctx, "failed to clear context", "error", err)

		o.mu.Lock()
		o.banner = &Banner{Message: "Failed to clear context: " + turnErr.Message}
		o.mu.Unlock()
		o.notify()
		return turnErr
	}

	o.speech.cancel()

	o.mu.Lock()
	o.session = SessionNone
	o.sessionID = ""
	o.conversation.reset()
	o.translations.reset()
	o.pending.Image = ""
	o.banner = nil
	o.mu.Unlock()

	o.notify()
	return nil
}

// SendMessage sends one turn to the assistant. Empty input is rejected with
// ErrEmptyInput and a send while another one is in flight with
// ErrRequestInFlight; neither changes any state. Failures of the service are
// recorded in the conversation and not returned.
func (o *Orchestrator) SendMessage(ctx context.Context, text, image string) error {
	return o.send(ctx, text, image, false)
}

// RetryLastMessage sends the input of the failed turn again. Like any send it
// replaces a trailing error message.
func (o *Orchestrator) RetryLastMessage(ctx context.Context) error {
	o.mu.RLock()
	input := o.lastInput
	o.mu.RUnlock()

	return o.send(ctx, input.Text, input.Image, true)
}

func (o *Orchestrator) send(ctx context.Context, text, image string, retry bool) error {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return ErrEmptyInput
	}
	if !o.requestGuard.CompareAndSwap(false, true) {
		return ErrRequestInFlight
	}
	defer func() {
		o.requestGuard.Store(false)
		o.notify()
	}()

	ctx, span := tracer.Start(ctx, "send message")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("message.has_image", image != ""),
		attribute.Bool("message.retry", retry),
	)

	o.mu.Lock()
	// An error message only ever ends the conversation, so the next turn
	// replaces it.
	if o.conversation.popTrailingError() {
		span.AddEvent("removed trailing error")
	}
	if o.session == SessionNone {
		o.session = SessionActive
	}
	o.conversation.append(Message{
		Role:      RoleUser,
		Content:   text,
		Timestamp: o.now(),
		HasImage:  image != "",
	})
	o.lastInput = PendingInput{Text: text, Image: image}
	o.pending = PendingInput{}
	o.banner = nil
	o.mu.Unlock()
	o.notify()

	callCtx, cancel := o.withTimeout(ctx)
	resp, err := o.client.Chat(callCtx, transport.ChatRequest{Text: text, Image: image})
	cancel()
	if err != nil {
		o.recordChatFailure(ctx, err, text, image)
		return nil
	}

	turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))

	o.mu.Lock()
	o.conversation.append(Message{
		Role:      RoleAssistant,
		Content:   resp.Response,
		Timestamp: o.now(),
	})
	if resp.SessionID != "" {
		o.sessionID = resp.SessionID
	}
	o.session = SessionActive
	o.lastInput = PendingInput{}
	translationEnabled := o.settings.TranslationEnabled
	window := o.conversation.window(o.contextWindow)
	o.mu.Unlock()
	o.notify()

	if translationEnabled {
		o.translate(ctx, resp.Response, window)
	}
	return nil
}

func (o *Orchestrator) recordChatFailure(ctx context.Context, err error, text, image string) {
	turnErr := Classify(err)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, turnErr.Message)
	span.SetAttributes(attribute.Bool("error.retryable", turnErr.Retryable))
	turnCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "failure"),
		attribute.String("error.kind", turnErr.Kind.String()),
	))
	logger.WarnContext(ctx, "chat request failed",
		"error", err,
		"kind", turnErr.Kind.String(),
		"retryable", turnErr.Retryable,
	)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.conversation.append(Message{
		Role:        RoleAssistant,
		Content:     turnErr.Message,
		Timestamp:   o.now(),
		IsError:     true,
		IsRetryable: turnErr.Retryable,
	})
	o.banner = &Banner{Message: turnErr.Message, Retryable: turnErr.Retryable}
	if turnErr.Retryable {
		o.pending = PendingInput{Text: text, Image: image}
	}
}

// CaptureNow grabs a frame of the shared screen as the pending image,
// replacing any previous one. It fails with capture.ErrNotSharing when no
// screen is shared.
func (o *Orchestrator) CaptureNow(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "capture screen")
	defer span.End()

	payload, err := o.capture.captureFrame(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		captureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failure")))

		message := "Screen capture failed"
		if errors.Is(err, capture.ErrNotSharing) {
			message = "Screen sharing is not active"
		}

		o.mu.Lock()
		o.pending.Image = ""
		o.banner = &Banner{Message: message}
		o.mu.Unlock()
		o.notify()
		return err
	}

	captureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))

	o.mu.Lock()
	o.pending.Image = payload
	o.mu.Unlock()
	o.notify()
	return nil
}

func (o *Orchestrator) StartSharing(ctx context.Context) error {
	if err := o.capture.start(ctx); err != nil {
		o.mu.Lock()
		o.banner = &Banner{Message: "Failed to start screen sharing"}
		o.mu.Unlock()
		o.notify()
		return fmt.Errorf("failed to start screen sharing: %w", err)
	}

	o.notify()
	return nil
}

// StopSharing ends screen sharing and drops the pending image, which would
// otherwise show a screen that is no longer shared.
func (o *Orchestrator) StopSharing() {
	if err := o.capture.stop(); err != nil {
		logger.Warn("failed to stop screen sharing", "error", err)
	}

	o.mu.Lock()
	o.pending.Image = ""
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) RemovePendingImage() {
	o.mu.Lock()
	o.pending.Image = ""
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) DismissBanner() {
	o.mu.Lock()
	o.banner = nil
	o.mu.Unlock()
	o.notify()
}

// SetTranslationEnabled starts every change of the toggle with an empty
// translation log. Disabling also turns speech off.
func (o *Orchestrator) SetTranslationEnabled(enabled bool) {
	o.mu.Lock()
	changed := o.settings.TranslationEnabled != enabled
	o.settings.TranslationEnabled = enabled
	if !enabled {
		o.settings.SpeechEnabled = false
	}
	if changed {
		o.translations.reset()
		o.translations.lastSpokenID = 0
	}
	o.mu.Unlock()

	if !enabled {
		o.speech.cancel()
	}
	o.notify()
}

func (o *Orchestrator) SetLanguage(code string) error {
	if _, err := languages.Lookup(code); err != nil {
		return err
	}

	o.mu.Lock()
	o.settings.Language = code
	o.mu.Unlock()
	o.notify()
	return nil
}

// SetSpeechEnabled toggles speaking translations. Speech can only be enabled
// while translation is. Enabling speaks the latest translation unless it has
// already been spoken.
func (o *Orchestrator) SetSpeechEnabled(ctx context.Context, enabled bool) error {
	o.mu.Lock()
	if enabled && !o.settings.TranslationEnabled {
		o.mu.Unlock()
		return ErrTranslationDisabled
	}
	o.settings.SpeechEnabled = enabled
	latest, ok := o.translations.latest()
	o.mu.Unlock()

	if !enabled {
		o.speech.cancel()
	} else if ok {
		o.speakTranslation(ctx, latest)
	}
	o.notify()
	return nil
}

func (o *Orchestrator) ClearTranslations() {
	o.mu.Lock()
	o.translations.reset()
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.requestTimeout)
}

func (o *Orchestrator) notify() {
	if o.onStateChanged == nil {
		return
	}
	o.onStateChanged(o.Snapshot())
}
