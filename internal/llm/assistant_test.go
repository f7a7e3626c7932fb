package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/testament/internal/cache"
	"github.com/ppiankov/testament/internal/model"
)

// MockProvider is a mock implementation of Provider for testing
type MockProvider struct {
	calls    int32
	reply    string
	err      error
	lastReq  CompleteRequest
	disabled bool
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	atomic.AddInt32(&m.calls, 1)
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	reply, hints := ParseReply(m.reply)
	return &CompleteResponse{Reply: reply, Hints: hints, Model: "mock-1", TokensUsed: 10}, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return !m.disabled
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAssistant_Offline(t *testing.T) {
	a := NewAssistant(nil, nil, nil, quietLogger())
	if a.Online() {
		t.Error("Expected offline assistant")
	}

	resp, err := a.Reply(context.Background(), CompleteRequest{Stage: model.StageInformation})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(resp.Reply, "full legal name") {
		t.Errorf("Expected first offline question to ask for the name, got %q", resp.Reply)
	}
	if resp.Model != "offline" {
		t.Errorf("Expected offline model, got %s", resp.Model)
	}
}

func TestAssistant_CachesIdenticalConversations(t *testing.T) {
	mock := &MockProvider{reply: "Who is your executor?"}
	a := NewAssistant(mock, cache.NewMemoryCache(time.Minute, time.Minute), nil, quietLogger())

	req := CompleteRequest{
		History: []model.Message{{Role: model.MessageUser, Text: "I'm Jane Doe"}},
		Facts:   model.Facts{FullName: "Jane Doe"},
	}

	first, err := a.Reply(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.Cached {
		t.Error("Expected first reply to come from the provider")
	}

	second, err := a.Reply(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !second.Cached || second.Reply != first.Reply {
		t.Errorf("Expected cached reply %q, got %+v", first.Reply, second)
	}
	if atomic.LoadInt32(&mock.calls) != 1 {
		t.Errorf("Expected 1 provider call, got %d", mock.calls)
	}

	req.History = append(req.History, model.Message{Role: model.MessageUser, Text: "My executor is Bob"})
	if _, err := a.Reply(context.Background(), req); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if atomic.LoadInt32(&mock.calls) != 2 {
		t.Errorf("Expected a new conversation to reach the provider, got %d calls", mock.calls)
	}
}

func TestAssistant_ProviderError(t *testing.T) {
	mock := &MockProvider{err: errors.New("upstream down")}
	a := NewAssistant(mock, nil, nil, quietLogger())

	if _, err := a.Reply(context.Background(), CompleteRequest{}); err == nil {
		t.Fatal("Expected provider error to be returned")
	}
}

func TestAssistant_CancelledContextStopsAtLimiter(t *testing.T) {
	mock := &MockProvider{reply: "hi"}
	a := NewAssistant(mock, nil, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Reply(ctx, CompleteRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if atomic.LoadInt32(&mock.calls) != 0 {
		t.Errorf("Expected no provider call, got %d", mock.calls)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("Expected nil provider for empty config, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "carrier-pigeon"}); err == nil {
		t.Error("Expected error for unknown provider")
	}

	p, err = NewProvider(Config{Provider: "Ollama", Model: "mistral"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %s", p.Name())
	}
}

func TestNewAssistantFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false

	a, err := NewAssistantFromConfig(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a.Online() || a.Name() != "offline" {
		t.Errorf("Expected offline assistant by default, got %s", a.Name())
	}

	cfg.LLM.Provider = "ollama"
	cfg.LLM.BaseURL = "http://gpu-box:11434"
	a, err = NewAssistantFromConfig(cfg, quietLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a.limitKey != "gpu-box:11434" {
		t.Errorf("Expected limiter keyed by host, got %s", a.limitKey)
	}
}
