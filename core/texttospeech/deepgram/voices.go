package deepgram

import "github.com/koscakluka/ema-lens/core/texttospeech"

type deepgramVoice string

const defaultVoice deepgramVoice = "aura-2-thalia-en"

// voiceLocales lists the Aura 2 voices together with the locale they speak.
var voiceLocales = []struct {
	voice  deepgramVoice
	name   string
	locale string
}{
	{"aura-2-thalia-en", "Thalia", "en-US"},
	{"aura-2-andromeda-en", "Andromeda", "en-US"},
	{"aura-2-apollo-en", "Apollo", "en-US"},
	{"aura-2-draco-en", "Draco", "en-GB"},
	{"aura-2-celeste-es", "Celeste", "es-CO"},
	{"aura-2-nestor-es", "Nestor", "es-ES"},
	{"aura-2-agathe-fr", "Agathe", "fr-FR"},
	{"aura-2-hector-fr", "Hector", "fr-FR"},
	{"aura-2-livia-it", "Livia", "it-IT"},
	{"aura-2-dionisio-it", "Dionisio", "it-IT"},
	{"aura-2-izanami-ja", "Izanami", "ja-JP"},
	{"aura-2-fujin-ja", "Fujin", "ja-JP"},
}

func GetAvailableVoices() []texttospeech.Voice {
	return availableVoices(defaultVoice)
}

func availableVoices(defaultVoice deepgramVoice) []texttospeech.Voice {
	voices := make([]texttospeech.Voice, 0, len(voiceLocales))
	for _, v := range voiceLocales {
		voices = append(voices, texttospeech.Voice{
			ID:      string(v.voice),
			Name:    v.name,
			Locale:  v.locale,
			Default: v.voice == defaultVoice,
		})
	}
	return voices
}

func isAvailable(voice deepgramVoice) bool {
	for _, v := range voiceLocales {
		if v.voice == voice {
			return true
		}
	}
	return false
}
