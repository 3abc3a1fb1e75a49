package embed

import (
	"context"
	"sync"
)

// MockEmbedder is a deterministic Embedder for testing. Texts found in
// Vectors get that vector; anything else falls back to a hash embedding
// of length Dim. All calls are recorded.
type MockEmbedder struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Dim     int
	Model   string
	Err     error
	Calls   [][]string

	fallback *HashEmbedder
}

// NewMockEmbedder creates a MockEmbedder producing vectors of length dim.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		Vectors:  make(map[string][]float32),
		Dim:      dim,
		Model:    "mock",
		fallback: NewHashEmbedder(dim),
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]string(nil), texts...))
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.Vectors[t]; ok {
			out[i] = v
			continue
		}
		v, err := m.fallback.Embed(ctx, []string{t})
		if err != nil {
			return nil, err
		}
		out[i] = v[0]
	}
	return out, nil
}

func (m *MockEmbedder) ModelID() string { return m.Model }

func (m *MockEmbedder) Provider() string { return ProviderMock }

// CallCount returns the number of Embed calls made.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// EmbeddedTexts returns the total number of texts passed to Embed.
func (m *MockEmbedder) EmbeddedTexts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		n += len(c)
	}
	return n
}
