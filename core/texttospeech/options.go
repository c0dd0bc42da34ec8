package texttospeech

import "github.com/koscakluka/ema-lens/core/audio"

type SpeechOptions struct {
	// SpeechAudioCallback is called for every chunk of synthesized audio, in
	// generation order.
	SpeechAudioCallback func(audio []byte)
	// SpeechEndedCallback is called once all audio for the utterance has been
	// generated.
	SpeechEndedCallback func()
	// ErrorCallback is called when generation fails. This usually means the
	// generator has been cancelled.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type SpeechOption func(*SpeechOptions)

func NewSpeechOptions(opts ...SpeechOption) SpeechOptions {
	options := SpeechOptions{
		SpeechAudioCallback: func([]byte) {},
		SpeechEndedCallback: func() {},
		ErrorCallback:       func(error) {},
		EncodingInfo:        audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithSpeechAudioCallback(callback func([]byte)) SpeechOption {
	return func(o *SpeechOptions) {
		if callback != nil {
			o.SpeechAudioCallback = callback
		}
	}
}

func WithSpeechEndedCallback(callback func()) SpeechOption {
	return func(o *SpeechOptions) {
		if callback != nil {
			o.SpeechEndedCallback = callback
		}
	}
}

func WithErrorCallback(callback func(error)) SpeechOption {
	return func(o *SpeechOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeechOption {
	return func(o *SpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}
