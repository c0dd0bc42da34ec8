// Package languages holds the fixed set of translation targets supported by
// the assistant service together with the locale used to pick a voice for
// each of them.
//
// Adding a language means extending both [Supported] and [SpeechLocales].
package languages

import (
	"fmt"
	"slices"

	"golang.org/x/text/language"
)

const Default = "en"

// Supported maps a language code to its display name.
var Supported = map[string]string{
	"en": "English",
	"ja": "Japanese",
	"es": "Spanish",
	"zh": "Chinese",
	"fr": "French",
	"it": "Italian",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"ru": "Russian",
	"id": "Indonesian",
	"pt": "Portuguese",
}

// SpeechLocales maps a language code to the locale tag used for voice
// selection.
var SpeechLocales = map[string]string{
	"en": "en-US",
	"ja": "ja-JP",
	"es": "es-ES",
	"zh": "zh-CN",
	"fr": "fr-FR",
	"it": "it-IT",
	"ko": "ko-KR",
	"ar": "ar-SA",
	"hi": "hi-IN",
	"ru": "ru-RU",
	"id": "id-ID",
	"pt": "pt-BR",
}

type Language struct {
	Code   string
	Name   string
	Locale string
}

func IsSupported(code string) bool {
	_, ok := Supported[code]
	return ok
}

func Lookup(code string) (Language, error) {
	name, ok := Supported[code]
	if !ok {
		return Language{}, fmt.Errorf("unsupported language: %q", code)
	}

	return Language{Code: code, Name: name, Locale: SpeechLocale(code)}, nil
}

// Name returns the display name for code, or code itself when unknown.
func Name(code string) string {
	if name, ok := Supported[code]; ok {
		return name
	}
	return code
}

// SpeechLocale returns the voice locale for code, falling back to the code
// itself so engines can still attempt a prefix match.
func SpeechLocale(code string) string {
	if locale, ok := SpeechLocales[code]; ok {
		return locale
	}
	return code
}

// All returns every supported language ordered by code.
func All() []Language {
	codes := make([]string, 0, len(Supported))
	for code := range Supported {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	all := make([]Language, 0, len(codes))
	for _, code := range codes {
		all = append(all, Language{Code: code, Name: Supported[code], Locale: SpeechLocale(code)})
	}
	return all
}

// SameBase reports whether two locale tags share a base language, so "ja"
// matches "ja-JP" and "pt-PT" matches "pt-BR".
func SameBase(a, b string) bool {
	tagA, err := language.Parse(a)
	if err != nil {
		return false
	}
	tagB, err := language.Parse(b)
	if err != nil {
		return false
	}

	baseA, _ := tagA.Base()
	baseB, _ := tagB.Base()
	return baseA == baseB
}
