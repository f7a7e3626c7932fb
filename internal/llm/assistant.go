package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/testament/internal/cache"
	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/worker"
)

// Assistant wraps a Provider with a reply cache and a rate limiter.
// Without a provider it answers with deterministic offline questions.
type Assistant struct {
	provider Provider
	cache    cache.Cache
	limiter  *worker.Limiter
	limitKey string
	ttl      time.Duration
	log      *slog.Logger
}

// NewAssistant creates an assistant. provider may be nil for offline mode
// and c may be nil to disable caching.
func NewAssistant(provider Provider, c cache.Cache, limiter *worker.Limiter, log *slog.Logger) *Assistant {
	if c == nil {
		c = cache.Noop{}
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 1)
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Assistant{
		provider: provider,
		cache:    c,
		limiter:  limiter,
		log:      log,
	}
	if provider != nil {
		a.limitKey = provider.Name()
	}
	return a
}

// NewAssistantFromConfig wires provider, cache and limiter from cfg
func NewAssistantFromConfig(cfg *model.Config, log *slog.Logger) (*Assistant, error) {
	provider, err := NewProvider(ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	a := NewAssistant(provider, cache.New(cfg.Cache), worker.NewLimiter(cfg.LLM.RequestsPerSecond, 1), log)
	a.ttl = cfg.Cache.DiskTTL
	if cfg.LLM.BaseURL != "" {
		if host, err := worker.HostKey(cfg.LLM.BaseURL); err == nil && host != "" {
			a.limitKey = host
		}
	}
	return a, nil
}

// Online reports whether a model provider is configured
func (a *Assistant) Online() bool {
	return a.provider != nil
}

// Name returns the provider name, or "offline"
func (a *Assistant) Name() string {
	if a.provider == nil {
		return "offline"
	}
	return a.provider.Name()
}

// Reply produces the next assistant turn. Identical conversations are
// served from the cache; provider calls wait on the limiter.
func (a *Assistant) Reply(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	if a.provider == nil {
		return Offline(req), nil
	}

	key := a.cacheKey(req)
	if data, ok := a.cache.Get(key); ok {
		var cached CompleteResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		}
		_ = a.cache.Delete(key)
	}

	if err := a.limiter.Wait(ctx, a.limitKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		a.log.Warn("model reply failed", "provider", a.provider.Name(), "error", err)
		return nil, err
	}
	a.log.Debug("model reply", "provider", a.provider.Name(), "model", resp.Model,
		"tokens", resp.TokensUsed, "duration", time.Since(start))

	if data, err := json.Marshal(resp); err == nil {
		if err := a.cache.Set(key, data, a.ttl); err != nil {
			a.log.Warn("cache write failed", "error", err)
		}
	}
	return resp, nil
}

// Offline returns the deterministic reply for req
func Offline(req CompleteRequest) *CompleteResponse {
	return &CompleteResponse{
		Reply: NextQuestion(req.Template, req.Stage, req.Facts),
		Model: "offline",
	}
}

func (a *Assistant) cacheKey(req CompleteRequest) string {
	parts := []string{
		a.provider.Name(),
		req.Model,
		string(req.Template),
		req.Stage.String(),
		req.systemPrompt(),
	}
	for _, m := range req.History {
		parts = append(parts, string(m.Role), m.Text)
	}
	return cache.Key(parts...)
}
