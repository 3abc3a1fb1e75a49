package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension is the vector length of the offline embedder.
const DefaultHashDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// HashEmbedder is a local, deterministic embedder. It hashes word
// unigrams, word bigrams and a few surface statistics into a fixed number
// of signed buckets and L2-normalizes the result. It needs no network and
// is what the CLI falls back to when no API key is configured.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder. A non-positive dimension uses
// DefaultHashDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// HashModelID is the model ID reported for a given dimension.
func HashModelID(dimension int) string {
	return fmt.Sprintf("hash-%d", dimension)
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *HashEmbedder) ModelID() string { return HashModelID(e.dimension) }

func (e *HashEmbedder) Provider() string { return ProviderHash }

// Dimension returns the vector length.
func (e *HashEmbedder) Dimension() int { return e.dimension }

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dimension)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	for i, tok := range tokens {
		e.add(vec, "u:"+tok, 1)
		if i > 0 {
			e.add(vec, "b:"+tokens[i-1]+" "+tok, 0.5)
		}
		// Word length buckets carry some of the difficulty signal that
		// bag-of-words alone loses.
		e.add(vec, fmt.Sprintf("len:%d", min(len([]rune(tok)), 15)), 0.25)
	}

	if n := len(tokens); n > 0 {
		sentences := max(1, strings.Count(text, ".")+strings.Count(text, "!")+strings.Count(text, "?"))
		e.add(vec, fmt.Sprintf("wps:%d", min(n/sentences, 40)), 0.5)
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimension)
	for i, v := range vec {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}

// add hashes feature into a bucket, using one hash bit for the sign so
// collisions tend to cancel rather than accumulate.
func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
