package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/readlevel/internal/store"
)

// NewProvider builds the provider named by cfg. Calls pass through
// retry, then validation, then a per-attempt timeout, then request logging
// (when events is non-nil) before reaching the API.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var p Provider
	switch cfg.Provider {
	case Anthropic:
		p = newAnthropicProvider(cfg)
	case OpenAI, OpenRouter:
		p = newOpenAIProvider(cfg)
	case Gemini:
		g, err := newGeminiProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p = g
	case Mock:
		p = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	if events != nil {
		p = WithLogging(p, cfg.Provider, events, logger)
	}
	p = withTimeout(p, cfg.Timeout)
	p = WithValidation(p)
	return WithRetry(p, cfg.Retry), nil
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

func withTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }
