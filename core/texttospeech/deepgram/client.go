// Package deepgram speaks utterances through the Deepgram streaming speech API
// and plays the result on an [audio.Output].
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-lens/core/audio"
	"github.com/koscakluka/ema-lens/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ texttospeech.Engine = (*TextToSpeechClient)(nil)

const playbackEndedMark = "utterance ended"

type TextToSpeechClient struct {
	apiKey   string
	endpoint url.URL
	dialer   *websocket.Dialer
	output   audio.Output

	voice deepgramVoice
}

type ClientOption func(*TextToSpeechClient)

func WithVoice(voice string) ClientOption {
	return func(c *TextToSpeechClient) { c.voice = deepgramVoice(voice) }
}

// WithEndpoint points the client at a different speak websocket, such as a
// proxy.
func WithEndpoint(endpoint url.URL) ClientOption {
	return func(c *TextToSpeechClient) { c.endpoint = endpoint }
}

func NewTextToSpeechClient(apiKey string, output audio.Output, opts ...ClientOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}
	if output == nil {
		return nil, fmt.Errorf("audio output is required")
	}

	client := &TextToSpeechClient{
		apiKey:   apiKey,
		endpoint: url.URL{Scheme: "wss", Host: "api.deepgram.com", Path: "/v1/speak"},
		dialer:   websocket.DefaultDialer,
		output:   output,
		voice:    defaultVoice,
	}
	for _, opt := range opts {
		opt(client)
	}

	if !isAvailable(client.voice) {
		return nil, fmt.Errorf("invalid voice: %s", client.voice)
	}

	return client, nil
}

func (c *TextToSpeechClient) Voices() []texttospeech.Voice {
	return availableVoices(c.voice)
}

func (c *TextToSpeechClient) Speak(ctx context.Context, utterance texttospeech.Utterance) (err error) {
	ctx, span := tracer.Start(ctx, "speak utterance")
	defer span.End()
	defer func() {
		if err != nil && !errors.Is(err, context.Canceled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	voice := deepgramVoice(utterance.Voice.ID)
	if !isAvailable(voice) {
		voice = c.voice
	}
	span.SetAttributes(
		attribute.String("request.voice", string(voice)),
		attribute.String("request.locale", utterance.Locale),
		attribute.Int("request.text_length", len(utterance.Text)),
	)

	generated := make(chan struct{})
	failed := make(chan error, 1)
	fail := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}

	req, err := c.newStreamingRequest(ctx, voice, texttospeech.NewSpeechOptions(
		texttospeech.WithSpeechAudioCallback(func(chunk []byte) {
			if err := c.output.SendAudio(chunk); err != nil {
				fail(fmt.Errorf("failed to play speech audio: %w", err))
			}
		}),
		texttospeech.WithSpeechEndedCallback(func() { close(generated) }),
		texttospeech.WithErrorCallback(fail),
		texttospeech.WithEncodingInfo(c.output.EncodingInfo()),
	))
	if err != nil {
		return err
	}

	if err := req.SendText(utterance.Text); err != nil {
		_ = req.Close()
		return err
	}
	if err := req.EndOfText(); err != nil {
		_ = req.Close()
		return err
	}

	select {
	case <-generated:
	case err := <-failed:
		_ = req.Cancel()
		c.output.ClearBuffer()
		return err
	case <-ctx.Done():
		_ = req.Cancel()
		c.output.ClearBuffer()
		return ctx.Err()
	}
	span.AddEvent("speech generated")

	played := make(chan struct{})
	var playedOnce sync.Once
	if err := c.output.Mark(playbackEndedMark, func(string) { playedOnce.Do(func() { close(played) }) }); err != nil {
		return fmt.Errorf("failed to mark end of utterance: %w", err)
	}

	select {
	case <-played:
		return nil
	case err := <-failed:
		c.output.ClearBuffer()
		return err
	case <-ctx.Done():
		c.output.ClearBuffer()
		return ctx.Err()
	}
}
