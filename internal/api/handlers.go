// Package api provides HTTP handlers for VoicePipe endpoints.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/VoicePipe/internal/models"
	"github.com/BTreeMap/VoicePipe/internal/observability"
)

// botHandler handles inbound Twilio WhatsApp webhooks (POST /bot).
//
// Per-request flow: receive form fields, resolve the message to text
// (transcribing media when present), branch on reset/empty/normal, attach
// synthesized audio best-effort, and always answer with well-formed TwiML.
// External failures never surface as webhook errors.
func (s *Server) botHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.botHandler: processing webhook", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.botHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.botHandler: failed to parse form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if s.validator != nil && !s.validateSignature(r) {
		slog.Warn("Server.botHandler: signature validation failed")
		s.metrics.IncWebhookRequest(observability.OutcomeRejected)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	from := r.FormValue("From")
	mediaURL := r.FormValue("MediaUrl0")
	mediaType := r.FormValue("MediaContentType0")
	body := strings.TrimSpace(r.FormValue("Body"))

	// Resolve the inbound message to text. A media attachment takes
	// precedence over the body; transcription failures come back as "".
	var input string
	switch {
	case mediaURL != "":
		if s.transcriber != nil {
			input = s.transcriber.Transcribe(r.Context(), mediaURL, mediaType)
		} else {
			slog.Warn("Server.botHandler: media received but transcription unavailable", "from", from)
		}
	default:
		input = body
	}

	switch {
	case input == "":
		slog.Debug("Server.botHandler: no usable input", "from", from, "had_media", mediaURL != "")
		s.metrics.IncWebhookRequest(observability.OutcomeNoInput)
		s.writeTwiML(w, models.CouldNotHearReply, "")

	case strings.EqualFold(input, models.ResetCommand):
		s.conv.Reset(r.Context(), from)
		slog.Info("Server.botHandler: reset command processed", "from", from)
		s.metrics.IncWebhookRequest(observability.OutcomeReset)
		s.writeTwiML(w, models.ResetReply, "")

	default:
		reply := s.conv.Reply(r.Context(), from, input)
		audioURL := s.attachAudio(r, reply)
		s.metrics.IncWebhookRequest(observability.OutcomeReply)
		s.writeTwiML(w, reply, audioURL)
	}
}

// attachAudio synthesizes the reply and returns its public URL, or "" when
// synthesis is unavailable or fails. The text reply always goes out.
func (s *Server) attachAudio(r *http.Request, reply string) string {
	if s.synth == nil {
		return ""
	}
	start := time.Now()
	filename, err := s.synth.Synthesize(r.Context(), reply)
	if err != nil {
		slog.Warn("Server.attachAudio: synthesis failed, sending text-only reply", "error", err)
		s.metrics.IncProviderError(observability.ProviderSpeech)
		return ""
	}
	s.metrics.ObserveSynthesisLatency(time.Since(start))
	return s.baseURL(r) + "/static/" + filename
}

// validateSignature checks X-Twilio-Signature against the request URL and
// its form parameters.
func (s *Server) validateSignature(r *http.Request) bool {
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	url := s.baseURL(r) + r.URL.RequestURI()
	return s.validator.Validate(url, params, r.Header.Get("X-Twilio-Signature"))
}

// baseURL returns the configured public base URL, falling back to the
// request's Host header. Twilio webhooks only arrive over HTTPS.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL
	}
	return "https://" + r.Host
}

// homeHandler renders the informational landing page (GET /).
func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(homePage); err != nil {
		slog.Error("Server.homeHandler: failed to write home page", "error", err)
	}
}

// healthHandler provides a health check endpoint for monitoring (GET /health).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(healthData))
}
