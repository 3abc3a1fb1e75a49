package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// MockResponse is one canned reply.
type MockResponse struct {
	Content   json.RawMessage
	Usage     Usage
	Truncated bool
	Err       error
}

// MockProvider replies from a queue, or from Respond when it is set.
// Respond suits concurrent callers whose request order is not fixed.
type MockProvider struct {
	Respond func(Request) MockResponse

	mu    sync.Mutex
	queue []MockResponse
	Calls []Request
}

func NewMockProvider(replies ...MockResponse) *MockProvider {
	return &MockProvider{queue: replies}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var r MockResponse
	switch {
	case m.Respond != nil:
		r = m.Respond(req)
	case len(m.queue) > 0:
		r, m.queue = m.queue[0], m.queue[1:]
	default:
		r.Err = &ErrProviderUnavailable{Service: Mock, Err: errors.New("no replies queued")}
	}
	m.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	return &Response{Content: r.Content, Usage: r.Usage, Model: Mock, Truncated: r.Truncated}, nil
}

func (m *MockProvider) ModelID() string { return Mock }

func (m *MockProvider) Enqueue(replies ...MockResponse) {
	m.mu.Lock()
	m.queue = append(m.queue, replies...)
	m.mu.Unlock()
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
