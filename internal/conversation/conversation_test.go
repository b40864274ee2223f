package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BTreeMap/VoicePipe/internal/models"
	"github.com/BTreeMap/VoicePipe/internal/observability"
	"github.com/BTreeMap/VoicePipe/internal/store"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	reply       string
	err         error
	gotMessages []openai.ChatCompletionMessageParamUnion
	calls       int
}

func (m *mockGenerator) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.gotMessages = messages
	m.calls++
	return m.reply, m.err
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) AddTurn(models.Turn) error { return errors.New("db down") }
func (failingStore) RecentTurns(string, int) ([]models.Turn, error) {
	return nil, errors.New("db down")
}
func (failingStore) DeleteTurns(string) error { return errors.New("db down") }
func (failingStore) Close() error             { return nil }

func testPersona() models.Persona {
	return models.Persona{Name: "test", SystemPrompt: "You are a test assistant."}
}

func TestReply_PersistsBothTurns(t *testing.T) {
	st := store.NewInMemoryStore()
	gen := &mockGenerator{reply: "Nice, keep it up!"}
	svc := NewService(st, gen, testPersona())

	out := svc.Reply(context.Background(), "+1555", "I ate two eggs")
	if out != "Nice, keep it up!" {
		t.Fatalf("unexpected reply: %q", out)
	}

	turns, err := st.RecentTurns("+1555", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[0].Content != "I ate two eggs" {
		t.Errorf("unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != models.RoleAssistant || turns[1].Content != "Nice, keep it up!" {
		t.Errorf("unexpected assistant turn: %+v", turns[1])
	}
}

func TestReply_HistoryIncludesSystemAndCurrentMessage(t *testing.T) {
	st := store.NewInMemoryStore()
	gen := &mockGenerator{reply: "ok"}
	svc := NewService(st, gen, testPersona())

	svc.Reply(context.Background(), "u1", "first message")

	// System row plus the just-recorded user turn.
	if len(gen.gotMessages) != 2 {
		t.Fatalf("expected 2 messages in first exchange, got %d", len(gen.gotMessages))
	}
}

func TestReply_HistoryBounded(t *testing.T) {
	st := store.NewInMemoryStore()
	gen := &mockGenerator{reply: "ok"}
	svc := NewService(st, gen, testPersona())

	for i := 0; i < 8; i++ {
		svc.Reply(context.Background(), "u1", fmt.Sprintf("message %d", i))
	}

	// 8 exchanges leave 16 turns in the store; the window caps the
	// completion at system row + 10 stored turns.
	if len(gen.gotMessages) != 1+DefaultHistoryLimit {
		t.Errorf("expected %d messages, got %d", 1+DefaultHistoryLimit, len(gen.gotMessages))
	}
}

func TestReply_NilGenerator(t *testing.T) {
	svc := NewService(store.NewInMemoryStore(), nil, testPersona())
	if out := svc.Reply(context.Background(), "u1", "hello"); out != models.FallbackReply {
		t.Errorf("expected fallback reply, got %q", out)
	}
}

func TestReply_GeneratorError(t *testing.T) {
	st := store.NewInMemoryStore()
	gen := &mockGenerator{err: errors.New("completion failed")}
	svc := NewService(st, gen, testPersona())

	if out := svc.Reply(context.Background(), "u1", "hello"); out != models.FallbackReply {
		t.Errorf("expected fallback reply, got %q", out)
	}

	// The user turn is kept; no assistant turn is written.
	turns, _ := st.RecentTurns("u1", 10)
	if len(turns) != 1 || turns[0].Role != models.RoleUser {
		t.Errorf("expected only the user turn persisted, got %+v", turns)
	}
}

func TestReply_NilStoreCarriesCurrentMessage(t *testing.T) {
	gen := &mockGenerator{reply: "ok"}
	svc := NewService(nil, gen, testPersona())

	if out := svc.Reply(context.Background(), "u1", "hello"); out != "ok" {
		t.Errorf("unexpected reply: %q", out)
	}
	// System row plus the explicitly appended current message.
	if len(gen.gotMessages) != 2 {
		t.Errorf("expected 2 messages in stateless mode, got %d", len(gen.gotMessages))
	}
}

func TestReply_FailingStoreDegradesStateless(t *testing.T) {
	gen := &mockGenerator{reply: "ok"}
	svc := NewService(failingStore{}, gen, testPersona())

	if out := svc.Reply(context.Background(), "u1", "hello"); out != "ok" {
		t.Errorf("unexpected reply: %q", out)
	}
	if len(gen.gotMessages) != 2 {
		t.Errorf("expected 2 messages when history fetch fails, got %d", len(gen.gotMessages))
	}
}

func TestReply_GeneratorErrorCountsProviderError(t *testing.T) {
	m := observability.NewMetrics("voicepipe_conversation_test")
	gen := &mockGenerator{err: errors.New("completion failed")}
	svc := NewService(store.NewInMemoryStore(), gen, testPersona(), WithMetrics(m))

	svc.Reply(context.Background(), "u1", "hello")

	got := testutil.ToFloat64(m.ProviderErrors.WithLabelValues(observability.ProviderCompletion))
	if got != 1 {
		t.Errorf("expected 1 completion provider error, got %v", got)
	}
}

func TestReset_ClearsHistory(t *testing.T) {
	st := store.NewInMemoryStore()
	gen := &mockGenerator{reply: "ok"}
	svc := NewService(st, gen, testPersona())

	svc.Reply(context.Background(), "u1", "remember this")
	svc.Reset(context.Background(), "u1")

	turns, _ := st.RecentTurns("u1", 10)
	if len(turns) != 0 {
		t.Errorf("expected no turns after reset, got %d", len(turns))
	}

	// Resetting again is a no-op.
	svc.Reset(context.Background(), "u1")
}

func TestReset_NilStore(t *testing.T) {
	svc := NewService(nil, &mockGenerator{reply: "ok"}, testPersona())
	svc.Reset(context.Background(), "u1")
}

func TestPersona(t *testing.T) {
	svc := NewService(nil, nil, testPersona())
	if svc.Persona().Name != "test" {
		t.Errorf("unexpected persona: %+v", svc.Persona())
	}
}
