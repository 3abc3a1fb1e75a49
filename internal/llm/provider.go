// Package llm sends single-turn, schema-constrained prompts to hosted chat
// models. Providers are composed from a base client and decorators for
// retries, output validation, timeouts and request logging.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one completion per request.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a single-turn prompt. When Schema is set the provider asks the
// model for JSON matching it.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema is a named JSON Schema document. Compiled schemas are cached by
// Name, so two different definitions must not share one.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the raw model output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// Truncated is set when generation stopped at MaxTokens.
	Truncated bool
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

type purposeKey struct{}

// WithPurpose tags requests made with ctx, e.g. "label". The tag is stored
// with each logged request.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the tag set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p, ok := ctx.Value(purposeKey{}).(string); ok && p != "" {
		return p
	}
	return "unknown"
}
