// Package models defines the core data structures for VoicePipe.
//
// It includes conversation turns, the built-in assistant personas, and the
// API response envelope shared across modules.
package models

import "errors"

// Role identifies who authored a conversation turn.
type Role string

const (
	// RoleSystem marks the persona prompt. System turns are synthesized at
	// read time and never persisted.
	RoleSystem Role = "system"
	// RoleUser marks an inbound message from the participant.
	RoleUser Role = "user"
	// RoleAssistant marks a generated reply.
	RoleAssistant Role = "assistant"
)

// IsValidRole checks if the given role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrInvalidRole    = errors.New("invalid turn role")
	ErrEmptyContent   = errors.New("turn content cannot be empty")
	ErrUnknownPersona = errors.New("unknown persona")
)

// Turn represents one stored conversation message.
//
// Rows are append-only: a turn is written once per inbound user message and
// once per generated reply, never updated, and deleted only in bulk by a
// user-initiated reset.
type Turn struct {
	ID      int64  `json:"id"`
	UserID  string `json:"user_id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate performs validation on a Turn before it is persisted.
func (t *Turn) Validate() error {
	if t.UserID == "" {
		return ErrEmptyUserID
	}
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return ErrInvalidRole
	}
	if t.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// Fixed user-facing replies. These are sent verbatim; external failures are
// never surfaced as errors to the participant.
const (
	// ResetCommand clears a user's stored history when received verbatim
	// (case-insensitive).
	ResetCommand = "/reset"
	// ResetReply confirms a completed reset.
	ResetReply = "Memory cleared!"
	// CouldNotHearReply is sent when no usable text could be resolved from
	// the inbound message.
	CouldNotHearReply = "I couldn't hear you."
	// FallbackReply is sent when the completion service is unavailable.
	FallbackReply = "I'm having trouble thinking right now."
)

// API Response types for consistent JSON responses

// APIStatus represents the status field of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
