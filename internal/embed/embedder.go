// Package embed turns passages into fixed-length sentence embeddings.
package embed

import (
	"context"
	"fmt"

	"github.com/abhisek/readlevel/internal/retry"
)

// Embedder is the core abstraction for embedding providers.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID returns the embedding model identifier. Vectors from
	// different models are not comparable.
	ModelID() string

	// Provider returns the provider name ("openai", "gemini", "hash", "mock").
	Provider() string
}

// Provider errors that RetryEmbedder retries.
type (
	ErrRateLimit           = retry.ErrRateLimit
	ErrProviderUnavailable = retry.ErrUnavailable
)

// ErrDimensionMismatch indicates that a vector's length differs from the
// others in the same batch or from the length a model expects.
type ErrDimensionMismatch struct {
	Index int
	Want  int
	Got   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding %d has dimension %d, want %d", e.Index, e.Got, e.Want)
}

// ErrCountMismatch indicates that a provider returned a different number
// of vectors than texts it was given.
type ErrCountMismatch struct {
	Want int
	Got  int
}

func (e *ErrCountMismatch) Error() string {
	return fmt.Sprintf("provider returned %d embeddings for %d texts", e.Got, e.Want)
}

// CheckDimensions verifies that every vector has the same length and
// returns it. want may be 0 to accept the length of the first vector.
func CheckDimensions(vecs [][]float32, want int) (int, error) {
	for i, v := range vecs {
		if want == 0 {
			want = len(v)
		}
		if len(v) != want || len(v) == 0 {
			return 0, &ErrDimensionMismatch{Index: i, Want: want, Got: len(v)}
		}
	}
	return want, nil
}

// ToFloat64 widens embeddings for the classifier.
func ToFloat64(vecs [][]float32) [][]float64 {
	out := make([][]float64, len(vecs))
	for i, v := range vecs {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out
}
