package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	// Requests carry their own deadline
	clientConfig.HTTPClient = newHTTPClient(config, 0)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Complete generates the next assistant turn using the Chat Completions API
func (p *OpenAIProvider) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	modelName := resolveModel(req.Model, p.config.Model, openai.GPT4oMini)

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.systemPrompt()},
	}
	for _, t := range turns(req.History) {
		role := openai.ChatMessageRoleUser
		if t.role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.content})
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    messages,
		MaxTokens:   resolveMaxTokens(req.MaxTokens, p.config.MaxTokens),
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	reply, hints := ParseReply(resp.Choices[0].Message.Content)
	if reply == "" {
		return nil, fmt.Errorf("empty reply from OpenAI")
	}

	return &CompleteResponse{
		Reply:      reply,
		Hints:      hints,
		Model:      modelName,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
