// Package texttospeech defines the contract between the assistant and a voice
// engine, together with the helpers every engine needs: picking a voice for a
// locale and turning formatted replies into text that can be read aloud.
package texttospeech

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-lens/core/languages"
)

var ErrNoVoices = errors.New("voice engine has no voices")

type Voice struct {
	ID   string
	Name string
	// Locale is a BCP 47 tag such as "ja-JP".
	Locale string
	// Default marks the voice used when no voice matches a locale.
	Default bool
}

type Utterance struct {
	// Text is plain text; engines read it literally.
	Text   string
	Voice  Voice
	Locale string
}

// Engine speaks one utterance at a time.
type Engine interface {
	Voices() []Voice
	// Speak blocks until the utterance has finished playing, ctx is done or
	// playback fails. Cancelling ctx must stop audio as soon as possible.
	Speak(ctx context.Context, utterance Utterance) error
}

// SelectVoice returns the first voice whose locale shares the base language
// of locale, falling back to the default voice (or the first voice if none is
// marked default).
func SelectVoice(voices []Voice, locale string) (Voice, error) {
	if len(voices) == 0 {
		return Voice{}, ErrNoVoices
	}

	for _, voice := range voices {
		if languages.SameBase(voice.Locale, locale) {
			return voice, nil
		}
	}

	for _, voice := range voices {
		if voice.Default {
			return voice, nil
		}
	}

	return voices[0], nil
}
