package embed

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/abhisek/readlevel/internal/retry"
)

// GeminiEmbedder implements Embedder using the Google Gemini SDK.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder creates a new Gemini embedder.
func NewGeminiEmbedder(ctx context.Context, cfg Config) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderGemini)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: cfg.Dimension,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: t}},
		}
	}

	config := &genai.EmbedContentConfig{
		TaskType: "CLASSIFICATION",
	}
	if e.dimension > 0 {
		dim := int32(e.dimension)
		config.OutputDimensionality = &dim
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, &ErrCountMismatch{Want: len(texts), Got: len(result.Embeddings)}
	}

	out := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini embeddings: missing vector %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GeminiEmbedder) ModelID() string { return e.model }

func (e *GeminiEmbedder) Provider() string { return ProviderGemini }

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return mapStatus(ProviderGemini, apiErr.Code, err)
	}
	if retry.IsContextError(err) {
		return err
	}
	return &retry.ErrUnavailable{Service: ProviderGemini, Err: err}
}
