// Package api provides the HTTP server and handlers for VoicePipe.
//
// It exposes the Twilio WhatsApp webhook, the informational home page, the
// generated-audio static directory, and health/metrics endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/VoicePipe/internal/conversation"
	"github.com/BTreeMap/VoicePipe/internal/genai"
	"github.com/BTreeMap/VoicePipe/internal/models"
	"github.com/BTreeMap/VoicePipe/internal/observability"
	"github.com/BTreeMap/VoicePipe/internal/speech"
	"github.com/BTreeMap/VoicePipe/internal/store"
	"github.com/BTreeMap/VoicePipe/internal/transcription"
	"github.com/BTreeMap/VoicePipe/internal/twiliowhatsapp"
)

// Default server configuration constants
const (
	// DefaultAddr is the default API server listen address
	DefaultAddr = ":8080"
	// DefaultStaticDir is the default directory for generated audio files
	DefaultStaticDir = "static"
	// DefaultShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM
	DefaultShutdownTimeout = 10 * time.Second
)

// Conversation runs persona-scoped exchanges for the webhook.
type Conversation interface {
	Reply(ctx context.Context, userID, text string) string
	Reset(ctx context.Context, userID string)
}

// Transcriber resolves a media reference to text, degrading to "".
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL, contentType string) string
}

// Synthesizer produces an audio file for reply text and returns its filename.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr               string
	StaticDir          string
	PublicBaseURL      string
	Persona            models.Persona
	ValidateSignatures bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStaticDir sets the directory served under /static/.
func WithStaticDir(dir string) Option {
	return func(o *Opts) { o.StaticDir = dir }
}

// WithPublicBaseURL sets the externally reachable base URL used in media
// links and signature validation. When unset, URLs are derived from the
// inbound request's Host header.
func WithPublicBaseURL(base string) Option {
	return func(o *Opts) { o.PublicBaseURL = base }
}

// WithPersona selects the active assistant persona.
func WithPersona(p models.Persona) Option {
	return func(o *Opts) { o.Persona = p }
}

// WithSignatureValidation enables X-Twilio-Signature checks on the webhook.
func WithSignatureValidation(enabled bool) Option {
	return func(o *Opts) { o.ValidateSignatures = enabled }
}

// Server holds the webhook dependencies and configuration.
type Server struct {
	conv          Conversation
	transcriber   Transcriber
	synth         Synthesizer
	validator     twiliowhatsapp.SignatureValidator
	metrics       *observability.Metrics
	staticDir     string
	publicBaseURL string
}

// NewServer creates a Server. The transcriber, synthesizer, validator, and
// metrics may each be nil; the corresponding capability is skipped.
func NewServer(conv Conversation, transcriber Transcriber, synth Synthesizer, validator twiliowhatsapp.SignatureValidator, metrics *observability.Metrics, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = DefaultStaticDir
	}
	return &Server{
		conv:          conv,
		transcriber:   transcriber,
		synth:         synth,
		validator:     validator,
		metrics:       metrics,
		staticDir:     cfg.StaticDir,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

// Routes registers all handlers on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/bot", s.botHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	return mux
}

// Run assembles the configured modules and serves HTTP until SIGINT/SIGTERM.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, twilioOpts []twiliowhatsapp.Option, transcriptionOpts []transcription.Option, speechOpts []speech.Option, apiOpts []Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = DefaultStaticDir
	}
	if cfg.Persona.Name == "" {
		cfg.Persona = models.NutritionistPersona
	}

	metrics := observability.NewMetrics("voicepipe")

	st, err := buildStore(storeOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("api.Run: store close failed", "error", err)
		}
	}()

	// Missing credentials degrade capability instead of failing startup:
	// no OpenAI key means fallback replies and no audio, no Twilio
	// credentials mean no voice-note transcription.
	var gen conversation.Generator
	if gaClient, err := genai.NewClient(genaiOpts...); err != nil {
		slog.Warn("api.Run: completion client unavailable, replies will degrade", "error", err)
	} else {
		gen = gaClient
	}

	var validator twiliowhatsapp.SignatureValidator
	var transcriber Transcriber
	twilioClient, err := twiliowhatsapp.NewClient(twilioOpts...)
	if err != nil {
		slog.Warn("api.Run: Twilio client unavailable, media download disabled", "error", err)
	} else {
		if cfg.ValidateSignatures {
			validator = twilioClient
		}
		transcriptionOpts = append(transcriptionOpts, transcription.WithMetrics(metrics))
		if trClient, err := transcription.NewClient(twilioClient, transcriptionOpts...); err != nil {
			slog.Warn("api.Run: transcription client unavailable", "error", err)
		} else {
			transcriber = trClient
		}
	}

	var synth Synthesizer
	speechOpts = append(speechOpts, speech.WithStaticDir(cfg.StaticDir))
	if spClient, err := speech.NewClient(speechOpts...); err != nil {
		slog.Warn("api.Run: speech client unavailable, replies will be text-only", "error", err)
	} else {
		synth = spClient
	}

	conv := conversation.NewService(st, gen, cfg.Persona, conversation.WithMetrics(metrics))
	server := NewServer(conv, transcriber, synth, validator, metrics, apiOpts...)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("VoicePipe API running", "addr", cfg.Addr, "persona", cfg.Persona.Name)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api.Run: shutdown failed", "error", err)
		return err
	}
	return nil
}

// buildStore selects a backend from the configured options. Without a DSN
// the service runs memoryless on the in-memory store.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("No database DSN configured, running in memoryless mode")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		st, err := store.NewPostgresStore(storeOpts...)
		if err != nil {
			// Degrade instead of crashing: an unreachable database yields
			// a stateless assistant, not a failed deployment.
			slog.Error("Postgres store unavailable, running in memoryless mode", "error", err)
			return store.NewInMemoryStore(), nil
		}
		return st, nil
	}
	st, err := store.NewSQLiteStore(storeOpts...)
	if err != nil {
		slog.Error("SQLite store unavailable, running in memoryless mode", "error", err)
		return store.NewInMemoryStore(), nil
	}
	return st, nil
}
