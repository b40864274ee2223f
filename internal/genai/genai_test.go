package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp       openai.ChatCompletion
	err        error
	gotParams  openai.ChatCompletionNewParams
	callsCount int
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.gotParams = params
	m.callsCount++
	return m.resp, m.err
}

func messagesFixture() []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("system prompt"),
		openai.UserMessage("user prompt"),
	}
}

func TestGenerateWithMessages_Success(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Hello World"}},
		},
	}
	mock := &mockChatService{resp: mockResp}
	client := &Client{chat: mock, model: DefaultModel}

	out, err := client.GenerateWithMessages(context.Background(), messagesFixture())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", out)
	}
	if len(mock.gotParams.Messages) != 2 {
		t.Errorf("expected 2 messages forwarded, got %d", len(mock.gotParams.Messages))
	}
	if mock.gotParams.Model != DefaultModel {
		t.Errorf("expected model %q, got %q", DefaultModel, mock.gotParams.Model)
	}
}

func TestGenerateWithMessages_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}, model: DefaultModel}
	_, err := client.GenerateWithMessages(context.Background(), messagesFixture())
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}, model: DefaultModel}
	_, err := client.GenerateWithMessages(context.Background(), messagesFixture())
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.model != DefaultModel {
		t.Errorf("expected default model, got %q", cli.model)
	}
}

func TestNewClient_WithModel(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel(openai.ChatModelGPT4o))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cli.model != openai.ChatModelGPT4o {
		t.Errorf("expected overridden model, got %q", cli.model)
	}
}
