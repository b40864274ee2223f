// Package speech synthesizes reply text into audio files served from the
// static directory.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults used when no overrides are configured. The voice is fixed per
// deployment regardless of the reply's language.
var (
	DefaultModel = openai.SpeechModelTTS1
	DefaultVoice = openai.AudioSpeechNewParamsVoiceAlloy
)

// ErrAPIKeyMissing indicates no OpenAI API key was configured.
var ErrAPIKeyMissing = errors.New("OpenAI API key not provided")

// speechService defines the minimal interface for speech synthesis.
type speechService interface {
	Create(ctx context.Context, params openai.AudioSpeechNewParams) (*http.Response, error)
}

// openaiSpeechService adapts the OpenAI SDK to the speechService interface.
type openaiSpeechService struct {
	client openai.Client
}

func (s openaiSpeechService) Create(ctx context.Context, params openai.AudioSpeechNewParams) (*http.Response, error) {
	return s.client.Audio.Speech.New(ctx, params)
}

// Opts holds configuration options for the synthesis client.
type Opts struct {
	APIKey    string
	Model     openai.SpeechModel
	Voice     openai.AudioSpeechNewParamsVoice
	StaticDir string
}

// Option defines a configuration option for the synthesis client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default synthesis model.
func WithModel(model openai.SpeechModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithVoice overrides the default voice.
func WithVoice(voice openai.AudioSpeechNewParamsVoice) Option {
	return func(o *Opts) { o.Voice = voice }
}

// WithStaticDir sets the publicly served output directory.
func WithStaticDir(dir string) Option {
	return func(o *Opts) { o.StaticDir = dir }
}

// Client writes synthesized replies into the static directory.
type Client struct {
	speech    speechService
	model     openai.SpeechModel
	voice     openai.AudioSpeechNewParamsVoice
	staticDir string
}

// NewClient creates a synthesis client. The API key falls back to
// OPENAI_API_KEY; the static directory is created if missing.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static"
	}
	if err := os.MkdirAll(cfg.StaticDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create static directory: %w", err)
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		speech:    openaiSpeechService{client: cli},
		model:     cfg.Model,
		voice:     cfg.Voice,
		staticDir: cfg.StaticDir,
	}, nil
}

// Synthesize produces an mp3 for the given text and returns its filename
// within the static directory. Generated files are never cleaned up; names
// are collision-resistant UUIDs.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	resp, err := c.speech.Create(ctx, openai.AudioSpeechNewParams{
		Model:          c.model,
		Voice:          c.voice,
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		slog.Error("Speech synthesis request failed", "error", err)
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Speech synthesis read failed", "error", err)
		return "", fmt.Errorf("speech read failed: %w", err)
	}

	filename := "reply_" + uuid.NewString() + ".mp3"
	path := filepath.Join(c.staticDir, filename)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		slog.Error("Speech synthesis file write failed", "error", err, "path", path)
		return "", fmt.Errorf("speech file write failed: %w", err)
	}

	slog.Debug("Speech synthesis succeeded", "filename", filename, "bytes", len(audio))
	return filename, nil
}
