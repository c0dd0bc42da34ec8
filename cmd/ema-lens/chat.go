package main

import (
	"context"
	"fmt"

	orchestration "github.com/koscakluka/ema-lens/core"
	"github.com/koscakluka/ema-lens/core/audio"
	"github.com/koscakluka/ema-lens/core/audio/miniaudio"
	"github.com/koscakluka/ema-lens/core/capture"
	"github.com/koscakluka/ema-lens/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-lens/internal/config"
	"github.com/koscakluka/ema-lens/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation in the terminal.

Share a screen with --screen-source (an image file that stands in for the
display) and capture it with ctrl+p. Translations are spoken through Deepgram
when --speech is set and a Deepgram API key is configured.`,
	RunE: runChat,
}

func init() {
	flags := chatCmd.Flags()
	flags.Bool("translation", false, "Translate every reply")
	flags.String("language", "en", "Translation target language")
	flags.Bool("speech", false, "Speak translations")
	flags.Int("context-window", orchestration.DefaultContextWindow, "Number of latest messages sent along with a translation")
	flags.String("screen-source", "", "Image file shared as the screen")
	flags.String("deepgram-voice", "", "Default Deepgram voice model")
	flags.String("log-file", "", "File receiving debug output of the terminal UI")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	notifier := &tui.Notifier{}
	opts := []orchestration.OrchestratorOption{
		orchestration.WithRequestTimeout(cfg.RequestTimeout),
		orchestration.WithContextWindow(cfg.ContextWindow),
		orchestration.WithLanguage(cfg.Language),
		orchestration.WithTranslation(cfg.Translation),
		orchestration.WithSpeech(cfg.Speech),
		orchestration.WithCaptureOptions(cfg.CaptureOptions()),
		orchestration.WithStateChangedCallback(notifier.Notify),
	}
	if cfg.ScreenSource != "" {
		opts = append(opts, orchestration.WithScreen(capture.NewFileScreen(cfg.ScreenSource)))
	}

	closeSpeech := func() {}
	if cfg.DeepgramAPIKey != "" {
		engine, closeOutput, err := newSpeechEngine(cfg)
		if err != nil {
			return err
		}
		closeSpeech = closeOutput
		opts = append(opts, orchestration.WithSpeechEngine(engine))
	}

	o := orchestration.NewOrchestrator(client, opts...)
	o.StartSession()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return tui.Run(ctx, o, notifier, cfg.LogFile)
	})
	g.Go(func() error {
		<-ctx.Done()
		o.Close()
		closeSpeech()
		return nil
	})

	return g.Wait()
}

func newSpeechEngine(cfg *config.Config) (*deepgram.TextToSpeechClient, func(), error) {
	output, err := miniaudio.NewClient(audio.GetDefaultEncodingInfo())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio output: %w", err)
	}

	var opts []deepgram.ClientOption
	if cfg.DeepgramVoice != "" {
		opts = append(opts, deepgram.WithVoice(cfg.DeepgramVoice))
	}

	engine, err := deepgram.NewTextToSpeechClient(cfg.DeepgramAPIKey, output, opts...)
	if err != nil {
		output.Close()
		return nil, nil, fmt.Errorf("failed to create speech engine: %w", err)
	}
	return engine, output.Close, nil
}
