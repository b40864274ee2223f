// Package transcription resolves inbound voice notes to text.
//
// A media attachment is downloaded from Twilio, staged as a temporary file,
// and submitted to the Whisper transcription API. Every failure along the
// way is logged and degraded to an empty transcript; nothing propagates to
// the webhook path as an error.
package transcription

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/VoicePipe/internal/observability"
	"github.com/BTreeMap/VoicePipe/internal/twiliowhatsapp"
	"github.com/BTreeMap/VoicePipe/internal/util"
)

// DefaultModel is used when no transcription model is configured.
var DefaultModel = openai.AudioModelWhisper1

// ErrAPIKeyMissing indicates no OpenAI API key was configured.
var ErrAPIKeyMissing = errors.New("OpenAI API key not provided")

// audioService defines the minimal interface for audio transcriptions.
type audioService interface {
	Create(ctx context.Context, params openai.AudioTranscriptionNewParams) (openai.Transcription, error)
}

// openaiAudioService adapts the OpenAI SDK to the audioService interface.
type openaiAudioService struct {
	client openai.Client
}

func (s openaiAudioService) Create(ctx context.Context, params openai.AudioTranscriptionNewParams) (openai.Transcription, error) {
	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return openai.Transcription{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the transcription client.
type Opts struct {
	APIKey  string
	Model   openai.AudioModel
	TempDir string
	Metrics *observability.Metrics
}

// Option defines a configuration option for the transcription client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default transcription model.
func WithModel(model openai.AudioModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTempDir overrides the staging directory for downloaded audio.
func WithTempDir(dir string) Option {
	return func(o *Opts) { o.TempDir = dir }
}

// WithMetrics attaches the Prometheus instruments. A nil value records
// nothing.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Opts) { o.Metrics = m }
}

// Client turns Twilio media references into plain text.
type Client struct {
	audio   audioService
	media   twiliowhatsapp.MediaDownloader
	model   openai.AudioModel
	tempDir string
	metrics *observability.Metrics
}

// NewClient creates a transcription client backed by the given media
// downloader. The API key falls back to OPENAI_API_KEY.
func NewClient(media twiliowhatsapp.MediaDownloader, opts ...Option) (*Client, error) {
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
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		audio:   openaiAudioService{client: cli},
		media:   media,
		model:   cfg.Model,
		tempDir: cfg.TempDir,
		metrics: cfg.Metrics,
	}, nil
}

// extensionFor selects a file extension by content-type substring match.
// Voice notes arrive as audio/mp4 or audio/m4a from iPhones and audio/ogg
// from Android; unrecognized types default to .ogg.
func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "mp4"), strings.Contains(contentType, "m4a"):
		return ".m4a"
	case strings.Contains(contentType, "mp3"):
		return ".mp3"
	default:
		return ".ogg"
	}
}

// Transcribe downloads the media resource and returns its transcript.
// Any download or transcription failure yields an empty string.
func (c *Client) Transcribe(ctx context.Context, mediaURL, contentType string) string {
	if c == nil || c.media == nil {
		return ""
	}

	data, err := c.media.DownloadMedia(ctx, mediaURL)
	if err != nil {
		slog.Warn("Transcription media download failed", "error", err)
		c.metrics.IncProviderError(observability.ProviderTwilio)
		return ""
	}

	path := filepath.Join(c.tempDir, util.GenerateRandomID("in_", 16)+extensionFor(contentType))
	if err := os.WriteFile(path, data, 0600); err != nil {
		slog.Error("Transcription temp file write failed", "error", err)
		return ""
	}
	// The staged file never outlives this call, on any exit path.
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("Transcription temp file cleanup failed", "error", err, "path", path)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		slog.Error("Transcription temp file open failed", "error", err)
		return ""
	}
	defer f.Close()

	result, err := c.audio.Create(ctx, openai.AudioTranscriptionNewParams{
		Model: c.model,
		File:  f,
	})
	if err != nil {
		slog.Error("Transcription request failed", "error", err)
		c.metrics.IncProviderError(observability.ProviderTranscription)
		return ""
	}

	text := strings.TrimSpace(result.Text)
	slog.Debug("Transcription succeeded", "chars", len(text))
	return text
}
