// Package api provides HTTP response utilities for VoicePipe.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/VoicePipe/internal/models"
	"github.com/BTreeMap/VoicePipe/internal/twiliowhatsapp"
)

// Pre-rendered fallbacks so every failure path still produces a valid
// document for the caller.
var (
	fallbackErrorResponse []byte
	fallbackTwiML         = `<?xml version="1.0" encoding="UTF-8"?><Response><Message><Body>` +
		models.FallbackReply + `</Body></Message></Response>`
)

// init validates that the fallback JSON response can be marshaled.
func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeTwiML writes a one-message TwiML document with the given body and
// optional media URL. Rendering failures fall back to a pre-built document.
func (s *Server) writeTwiML(w http.ResponseWriter, body, mediaURL string) {
	doc, err := twiliowhatsapp.MessageReply(body, mediaURL)
	if err != nil {
		slog.Error("Server.writeTwiML: failed to render TwiML", "error", err)
		doc = fallbackTwiML
	}
	w.Header().Set("Content-Type", "text/xml")
	if _, writeErr := w.Write([]byte(doc)); writeErr != nil {
		slog.Error("Server.writeTwiML: failed to write TwiML response", "error", writeErr)
	}
}
