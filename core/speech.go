package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/koscakluka/ema-lens/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// speechBridge plays at most one utterance at a time. A new utterance
// cancels the current one instead of queueing behind it.
type speechBridge struct {
	engine texttospeech.Engine

	mu sync.Mutex
	// cancelCurrent stops the latest utterance.
	cancelCurrent context.CancelFunc
	// current closes once the latest utterance has finished.
	current chan struct{}

	speaking atomic.Bool
	onChange func()
}

func (s *speechBridge) speak(ctx context.Context, text, languageCode string) {
	if s == nil || s.engine == nil {
		return
	}

	plain := texttospeech.PlainText(text)
	if plain == "" {
		return
	}

	locale := languages.SpeechLocale(languageCode)
	voice, err := texttospeech.SelectVoice(s.engine.Voices(), locale)
	if err != nil {
		logger.WarnContext(ctx, "no voice to speak with", "error", err, "locale", locale)
		return
	}

	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	if s.cancelCurrent != nil {
		s.cancelCurrent()
	}
	previous := s.current
	s.cancelCurrent = cancel
	s.current = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		// The previous utterance clears its audio when cancelled, so it has to
		// be gone before this one starts playing.
		if previous != nil {
			<-previous
		}
		if speakCtx.Err() != nil {
			return
		}

		ctx, span := tracer.Start(speakCtx, "speak translation")
		defer span.End()
		span.SetAttributes(
			attribute.String("speech.locale", locale),
			attribute.String("speech.voice", voice.ID),
		)

		s.setSpeaking(true)
		err := s.engine.Speak(ctx, texttospeech.Utterance{Text: plain, Voice: voice, Locale: locale})
		s.setSpeaking(false)

		if err != nil && !errors.Is(err, context.Canceled) {
			recordedErr := fmt.Errorf("failed to speak translation: %w", err)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
			logger.ErrorContext(ctx, "speech failed", "error", err, "locale", locale)
		}
	}()
}

// cancel stops the current utterance, if any.
func (s *speechBridge) cancel() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
}

// wait blocks until the latest utterance has finished.
func (s *speechBridge) wait() {
	if s == nil {
		return
	}

	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current != nil {
		<-current
	}
}

func (s *speechBridge) isSpeaking() bool {
	if s == nil {
		return false
	}
	return s.speaking.Load()
}

func (s *speechBridge) setSpeaking(speaking bool) {
	if s.speaking.Swap(speaking) != speaking && s.onChange != nil {
		s.onChange()
	}
}
