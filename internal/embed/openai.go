package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/abhisek/readlevel/internal/retry"
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
// It also serves OpenAI-compatible servers (Ollama, vLLM) via BaseURL.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates a new OpenAI embedder.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderOpenAI)
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: cfg.Dimension,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimension > 0 {
		req.Dimensions = e.dimension
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, &ErrCountMismatch{Want: len(texts), Got: len(resp.Data)}
	}

	// The API documents Index as the position in the input list; place by
	// index rather than trusting response order.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (e *OpenAIEmbedder) ModelID() string { return e.model }

func (e *OpenAIEmbedder) Provider() string { return ProviderOpenAI }

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return mapStatus(ProviderOpenAI, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return mapStatus(ProviderOpenAI, reqErr.HTTPStatusCode, err)
	}
	if retry.IsContextError(err) {
		return err
	}
	return &retry.ErrUnavailable{Service: ProviderOpenAI, Err: err}
}

// mapStatus turns throttling and server errors into retryable errors and
// leaves other client errors as permanent failures.
func mapStatus(service string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return retry.FromStatus(service, status, err)
	case status >= 400:
		return fmt.Errorf("%s embeddings: %w", service, err)
	default:
		return &retry.ErrUnavailable{Service: service, Err: err}
	}
}
