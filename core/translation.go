package orchestration

import (
	"context"
	"strings"
	"time"

	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/koscakluka/ema-lens/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

type Translation struct {
	ID uint64
	// Original is the assistant reply that was translated.
	Original     string
	Translated   string
	LanguageName string
	LanguageCode string
	Timestamp    time.Time
}

// translationLog is mutated only while holding the orchestrator lock. Ids
// keep increasing across resets so an id is never spoken twice.
type translationLog struct {
	entries      []Translation
	lastID       uint64
	lastSpokenID uint64
}

func (l *translationLog) append(translation Translation) Translation {
	l.lastID++
	translation.ID = l.lastID
	l.entries = append(l.entries, translation)
	return translation
}

func (l *translationLog) latest() (Translation, bool) {
	if len(l.entries) == 0 {
		return Translation{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// markSpoken records id as spoken and reports whether it had not been
// spoken before.
func (l *translationLog) markSpoken(id uint64) bool {
	if id == 0 || id == l.lastSpokenID {
		return false
	}
	l.lastSpokenID = id
	return true
}

func (l *translationLog) reset() {
	l.entries = nil
}

func (l *translationLog) snapshot() []Translation {
	snapshot := make([]Translation, len(l.entries))
	copy(snapshot, l.entries)
	return snapshot
}

// translate requests a translation of text in the background. Failures are
// only logged; the turn that produced text is complete either way.
func (o *Orchestrator) translate(ctx context.Context, text string, window []Message) {
	if strings.TrimSpace(text) == "" {
		return
	}

	o.mu.RLock()
	enabled := o.settings.TranslationEnabled
	language := o.settings.Language
	o.mu.RUnlock()
	if !enabled {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if !languages.IsSupported(language) {
		logger.WarnContext(ctx, "skipping translation to unsupported language", "language", language)
		return
	}

	conversationContext, err := contextMessages(window)
	if err != nil {
		logger.WarnContext(ctx, "failed to build translation context", "error", err)
		conversationContext = nil
	}

	request := transport.TranslateRequest{
		Text:                text,
		TargetLanguage:      language,
		ConversationContext: conversationContext,
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		logger.DebugContext(ctx, "skipping translation after close")
		return
	}
	o.translators.Add(1)
	o.mu.Unlock()

	o.translating.Add(1)
	o.notify()

	go func() {
		defer o.translators.Done()
		defer func() {
			o.translating.Add(-1)
			o.notify()
		}()

		ctx, span := tracer.Start(ctx, "translate reply")
		defer span.End()
		span.SetAttributes(
			attribute.String("translation.language", language),
			attribute.Int("translation.context_size", len(request.ConversationContext)),
		)

		callCtx, cancel := o.withTimeout(ctx)
		resp, err := o.client.Translate(callCtx, request)
		cancel()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			translationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failure")))
			logger.ErrorContext(ctx, "translation failed", "error", err, "language", language)
			return
		}
		translationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))

		languageName := resp.LanguageName
		if languageName == "" {
			languageName = languages.Name(language)
		}

		o.mu.Lock()
		translation := o.translations.append(Translation{
			Original:     text,
			Translated:   resp.TranslatedText,
			LanguageName: languageName,
			LanguageCode: language,
			Timestamp:    o.now(),
		})
		o.mu.Unlock()
		o.notify()

		o.speakTranslation(ctx, translation)
	}()
}

// speakTranslation speaks translation if speech is on and it has not been
// spoken yet.
func (o *Orchestrator) speakTranslation(ctx context.Context, translation Translation) {
	o.mu.Lock()
	if !o.settings.TranslationEnabled || !o.settings.SpeechEnabled {
		o.mu.Unlock()
		return
	}
	if !o.translations.markSpoken(translation.ID) {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	o.speech.speak(ctx, translation.Translated, translation.LanguageCode)
}
