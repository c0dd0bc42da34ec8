package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/koscakluka/ema-lens/core/transport"
	"github.com/koscakluka/ema-lens/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "ema-lens",
	Short: "Chat with an assistant about your screen, with live translation and speech",
	Long: `ema-lens keeps a conversation with an assistant service, attaches
captures of a shared screen to your questions and can translate and speak
every reply.

Configuration is read from flags, EMA_LENS_* environment variables, a .env
file and ema-lens.yaml, in that order of precedence.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default ./ema-lens.yaml or <user config dir>/ema-lens/ema-lens.yaml)")
	flags.String("server-url", config.DefaultServerURL, "Base URL of the assistant service")
	flags.Duration("request-timeout", 60*time.Second, "Bound on every call to the assistant service, 0 disables it")

	rootCmd.AddCommand(chatCmd, statusCmd, languagesCmd, configCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	var dirs []string
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "ema-lens"))
	}
	return config.Load(v, configFile, dirs...)
}

func newClient(cfg *config.Config) (*transport.Client, error) {
	client, err := transport.NewClient(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant client: %w", err)
	}
	return client, nil
}

// withRequestTimeout bounds a one-off call the way the orchestrator bounds
// its own.
func withRequestTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.RequestTimeout)
}
