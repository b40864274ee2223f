package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockSpeechService implements speechService for testing.
type mockSpeechService struct {
	audio     []byte
	err       error
	gotParams openai.AudioSpeechNewParams
}

func (m *mockSpeechService) Create(ctx context.Context, params openai.AudioSpeechNewParams) (*http.Response, error) {
	m.gotParams = params
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(m.audio)),
	}, nil
}

func TestSynthesize_Success(t *testing.T) {
	dir := t.TempDir()
	mock := &mockSpeechService{audio: []byte("mp3-bytes")}
	client := &Client{speech: mock, model: DefaultModel, voice: DefaultVoice, staticDir: dir}

	filename, err := client.Synthesize(context.Background(), "Great job logging your meal!")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !strings.HasPrefix(filename, "reply_") || !strings.HasSuffix(filename, ".mp3") {
		t.Errorf("unexpected filename shape: %q", filename)
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("reading synthesized file failed: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("file content mismatch: %q", data)
	}

	if mock.gotParams.Input != "Great job logging your meal!" {
		t.Errorf("unexpected input forwarded: %q", mock.gotParams.Input)
	}
	if mock.gotParams.Voice != DefaultVoice {
		t.Errorf("expected voice %q, got %q", DefaultVoice, mock.gotParams.Voice)
	}
	if mock.gotParams.ResponseFormat != openai.AudioSpeechNewParamsResponseFormatMP3 {
		t.Errorf("expected mp3 response format, got %q", mock.gotParams.ResponseFormat)
	}
}

func TestSynthesize_UniqueFilenames(t *testing.T) {
	dir := t.TempDir()
	client := &Client{speech: &mockSpeechService{audio: []byte("a")}, model: DefaultModel, voice: DefaultVoice, staticDir: dir}

	first, err := client.Synthesize(context.Background(), "one")
	if err != nil {
		t.Fatalf("first Synthesize failed: %v", err)
	}
	second, err := client.Synthesize(context.Background(), "two")
	if err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}
	if first == second {
		t.Errorf("expected unique filenames, got %q twice", first)
	}
}

func TestSynthesize_ServiceError(t *testing.T) {
	client := &Client{speech: &mockSpeechService{err: errors.New("tts unavailable")}, model: DefaultModel, voice: DefaultVoice, staticDir: t.TempDir()}

	if _, err := client.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("expected error from failed synthesis")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestNewClient_CreatesStaticDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static")
	cli, err := NewClient(WithAPIKey("test-key"), WithStaticDir(dir))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if cli.voice != DefaultVoice {
		t.Errorf("expected default voice, got %q", cli.voice)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("expected static directory to exist, err=%v", err)
	}
}
