// Package config loads the client configuration from flags, the environment,
// a .env file and an optional ema-lens.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-lens/core/capture"
	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "EMA_LENS"
	FileName  = "ema-lens"

	DefaultServerURL = "http://localhost:5000"
)

const (
	KeyServerURL        = "server_url"
	KeyRequestTimeout   = "request_timeout"
	KeyContextWindow    = "context_window"
	KeyLanguage         = "language"
	KeyTranslation      = "translation"
	KeySpeech           = "speech"
	KeyDeepgramAPIKey   = "deepgram_api_key"
	KeyDeepgramVoice    = "deepgram_voice"
	KeyScreenSource     = "screen_source"
	KeyCaptureMaxWidth  = "capture_max_width"
	KeyCaptureMaxHeight = "capture_max_height"
	KeyLogFile          = "log_file"
)

type Config struct {
	ServerURL      string        `mapstructure:"server_url" json:"server_url" jsonschema:"title=Server URL,description=Base URL of the assistant service,format=uri"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" jsonschema:"type=string,description=Bound on every call to the assistant service (e.g. 60s). 0 disables it"`
	ContextWindow  int           `mapstructure:"context_window" json:"context_window" jsonschema:"minimum=0,description=Number of latest messages sent along with a translation"`
	Language       string        `mapstructure:"language" json:"language" jsonschema:"description=Translation target language,enum=en,enum=ja,enum=es,enum=zh,enum=fr,enum=it,enum=ko,enum=ar,enum=hi,enum=ru,enum=id,enum=pt"`
	Translation    bool          `mapstructure:"translation" json:"translation" jsonschema:"description=Translate every reply"`
	Speech         bool          `mapstructure:"speech" json:"speech" jsonschema:"description=Speak translations. Requires translation"`

	DeepgramAPIKey string `mapstructure:"deepgram_api_key" json:"deepgram_api_key,omitempty" jsonschema:"description=API key of the Deepgram speech engine"`
	DeepgramVoice  string `mapstructure:"deepgram_voice" json:"deepgram_voice,omitempty" jsonschema:"description=Default Deepgram voice model"`

	ScreenSource     string `mapstructure:"screen_source" json:"screen_source,omitempty" jsonschema:"description=Image file shared as the screen"`
	CaptureMaxWidth  int    `mapstructure:"capture_max_width" json:"capture_max_width" jsonschema:"minimum=1"`
	CaptureMaxHeight int    `mapstructure:"capture_max_height" json:"capture_max_height" jsonschema:"minimum=1"`

	LogFile string `mapstructure:"log_file" json:"log_file,omitempty" jsonschema:"description=File receiving debug output of the terminal UI"`
}

// New returns a viper instance with every key defaulted and bound to its
// EMA_LENS_ environment variable. The Deepgram key also falls back to
// DEEPGRAM_API_KEY.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyServerURL, DefaultServerURL)
	v.SetDefault(KeyRequestTimeout, 60*time.Second)
	v.SetDefault(KeyContextWindow, 6)
	v.SetDefault(KeyLanguage, languages.Default)
	v.SetDefault(KeyTranslation, false)
	v.SetDefault(KeySpeech, false)
	v.SetDefault(KeyDeepgramAPIKey, "")
	v.SetDefault(KeyDeepgramVoice, "")
	v.SetDefault(KeyScreenSource, "")
	v.SetDefault(KeyCaptureMaxWidth, capture.DefaultMaxWidth)
	v.SetDefault(KeyCaptureMaxHeight, capture.DefaultMaxHeight)
	v.SetDefault(KeyLogFile, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyDeepgramAPIKey, EnvPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY")

	return v
}

// BindFlags lets flags override the keys they are named after. Flags use
// dashes where keys use underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(flag *pflag.Flag) {
		key := strings.ReplaceAll(flag.Name, "-", "_")
		if err := v.BindPFlag(key, flag); err != nil {
			errs = append(errs, fmt.Errorf("failed to bind flag %q: %w", flag.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Load reads the .env files and the config file into v and decodes the
// result. Without configFile, ema-lens.yaml is looked up in the working
// directory and the user config directory; a missing file is not an error.
func Load(v *viper.Viper, configFile string, dirs ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	parsed, err := url.Parse(c.ServerURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", KeyServerURL, c.ServerURL))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyRequestTimeout))
	}
	if c.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyContextWindow))
	}
	if !languages.IsSupported(c.Language) {
		errs = append(errs, fmt.Errorf("%s %q is not supported", KeyLanguage, c.Language))
	}
	if c.Speech && !c.Translation {
		errs = append(errs, fmt.Errorf("%s requires %s", KeySpeech, KeyTranslation))
	}
	if c.CaptureMaxWidth <= 0 || c.CaptureMaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", KeyCaptureMaxWidth, KeyCaptureMaxHeight))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CaptureOptions returns the encoding bounds of screen captures.
func (c *Config) CaptureOptions() capture.EncodeOptions {
	opts := capture.DefaultEncodeOptions()
	opts.MaxWidth = c.CaptureMaxWidth
	opts.MaxHeight = c.CaptureMaxHeight
	return opts
}
