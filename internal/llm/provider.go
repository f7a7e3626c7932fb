package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// Provider defines the interface for conversational model providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete produces the next assistant turn for a will conversation
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompleteRequest contains the conversation state sent to the model
type CompleteRequest struct {
	// History is the transcript so far, oldest first
	History []model.Message

	// Template and Stage steer which questions the model asks
	Template model.TemplateKind
	Stage    model.Stage

	// Facts is what has been collected; the model should not re-ask for it
	Facts model.Facts

	// System overrides the generated system prompt when set
	System string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompleteResponse is one assistant turn
type CompleteResponse struct {
	// Reply is the text shown to the user, with any hint block removed
	Reply string `json:"reply"`

	// Hints are facts the model claims to have heard. They are untrusted
	// and must be sanitized before merging.
	Hints *model.Delta `json:"hints,omitempty"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// TokensUsed tracks token consumption
	TokensUsed int `json:"tokens_used"`

	// Cached is set when the reply was served from the reply cache
	Cached bool `json:"-"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Offline by default
		Timeout:   30,
		MaxTokens: 600,
	}
}

func (r CompleteRequest) systemPrompt() string {
	if r.System != "" {
		return r.System
	}
	return BuildSystemPrompt(r.Template, r.Stage, r.Facts)
}

func resolveModel(req, configured, fallback string) string {
	if req != "" {
		return req
	}
	if configured != "" {
		return configured
	}
	return fallback
}

func resolveMaxTokens(req, configured int) int {
	if req > 0 {
		return req
	}
	if configured > 0 {
		return configured
	}
	return 600
}

// turn is one chat message in provider-neutral form
type turn struct {
	role    string
	content string
}

// turns converts the transcript into alternating user/assistant turns.
// Consecutive messages from the same side are joined and the
// conversation always opens with a user turn.
func turns(history []model.Message) []turn {
	var out []turn
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := "user"
		if m.Role == model.MessageAssistant {
			role = "assistant"
		}
		if n := len(out); n > 0 && out[n-1].role == role {
			out[n-1].content += "\n\n" + text
			continue
		}
		out = append(out, turn{role: role, content: text})
	}
	if len(out) == 0 || out[0].role != "user" {
		out = append([]turn{{role: "user", content: "Hello, I'd like to start my will."}}, out...)
	}
	return out
}
