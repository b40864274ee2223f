// Package conversation orchestrates persona-scoped chat exchanges: bounded
// history retrieval, completion calls, and best-effort persistence.
package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/VoicePipe/internal/models"
	"github.com/BTreeMap/VoicePipe/internal/observability"
	"github.com/BTreeMap/VoicePipe/internal/store"
)

// DefaultHistoryLimit is the number of stored turns included in a
// completion request, before the synthetic system row.
const DefaultHistoryLimit = 10

// Generator produces a completion for an exact message sequence.
type Generator interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Service runs the exchange flow for one persona deployment. The store and
// generator may each be nil: without a store the assistant is stateless,
// without a generator every reply is the fixed fallback sentence.
type Service struct {
	st      store.Store
	gen     Generator
	persona models.Persona
	metrics *observability.Metrics

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// Option defines a configuration option for the conversation service.
type Option func(*Service)

// WithMetrics attaches the Prometheus instruments. A nil value records
// nothing.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a conversation service for the given persona.
func NewService(st store.Store, gen Generator, persona models.Persona, opts ...Option) *Service {
	s := &Service{
		st:        st,
		gen:       gen,
		persona:   persona,
		userLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockUser returns the mutex serializing exchanges for one user. Concurrent
// webhooks from the same sender would otherwise interleave their
// append/fetch/append sequences and corrupt history ordering.
func (s *Service) lockUser(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// record persists one turn. Persistence is best-effort by design: failures
// are logged and the exchange continues as if the write succeeded.
func (s *Service) record(userID string, role models.Role, content string) {
	if s.st == nil {
		return
	}
	turn := models.Turn{UserID: userID, Role: role, Content: content}
	if err := s.st.AddTurn(turn); err != nil {
		slog.Warn("Service.record: turn write failed, continuing without persistence",
			"error", err, "userID", userID, "role", role)
	}
}

// history builds the completion message sequence: the synthetic system row,
// then up to DefaultHistoryLimit stored turns in chronological order. The
// second return reports whether stored history was actually read; a missing
// or failing store degrades to the system row alone.
func (s *Service) history(userID string) ([]openai.ChatCompletionMessageParamUnion, bool) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(s.persona.SystemPrompt),
	}
	if s.st == nil {
		return messages, false
	}

	turns, err := s.st.RecentTurns(userID, DefaultHistoryLimit)
	if err != nil {
		slog.Warn("Service.history: turn fetch failed, replying statelessly", "error", err, "userID", userID)
		return messages, false
	}
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}
	return messages, true
}

// Reply runs one exchange: persist the user turn, fetch bounded history,
// generate the assistant reply, persist it, and return it. Completion
// failures yield the fixed fallback sentence; the user turn already written
// is deliberately not rolled back.
func (s *Service) Reply(ctx context.Context, userID, userText string) string {
	if s.gen == nil {
		slog.Warn("Service.Reply: no completion client configured", "userID", userID)
		return models.FallbackReply
	}

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	s.record(userID, models.RoleUser, userText)
	messages, fromStore := s.history(userID)
	if !fromStore {
		// Stateless mode: the recorded user turn is not in the fetched
		// history, so the current message must be carried explicitly.
		messages = append(messages, openai.UserMessage(userText))
	}

	reply, err := s.gen.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Service.Reply: completion failed", "error", err, "userID", userID)
		s.metrics.IncProviderError(observability.ProviderCompletion)
		return models.FallbackReply
	}

	s.record(userID, models.RoleAssistant, reply)
	slog.Debug("Service.Reply: exchange complete", "userID", userID, "history", len(messages))
	return reply
}

// Reset deletes the user's stored history. Store failures are swallowed like
// every other persistence failure; a second reset is a no-op.
func (s *Service) Reset(ctx context.Context, userID string) {
	if s.st == nil {
		return
	}
	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.st.DeleteTurns(userID); err != nil {
		slog.Warn("Service.Reset: delete failed", "error", err, "userID", userID)
		return
	}
	slog.Info("Service.Reset: history cleared", "userID", userID)
}

// Persona exposes the active persona.
func (s *Service) Persona() models.Persona {
	return s.persona
}
