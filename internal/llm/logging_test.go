package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/readlevel/internal/store"
)

func openEventRepo(t *testing.T) store.EventRepo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.EventRepo()
}

func TestLogging_RecordsSuccessAndFailure(t *testing.T) {
	repo := openEventRepo(t)
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"difficulty":"easy"}`), Usage: Usage{InputTokens: 12, OutputTokens: 3}},
		MockResponse{Err: errors.New("boom")},
	)
	p := WithLogging(mock, "mock", repo, nil)
	ctx := WithPurpose(context.Background(), "label")

	req := Request{System: "Grade this.", Prompt: "The dog ran."}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected second call to fail")
	}

	events, err := repo.QueryLLMEvents(context.Background(), store.QueryOpts{Purpose: "label"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	failed, ok := events[0], events[1]
	if failed.Success || failed.ErrorMessage != "boom" {
		t.Errorf("failed event = %+v", failed)
	}
	if !ok.Success || ok.InputTokens != 12 || ok.Model != "mock" || ok.Provider != "mock" {
		t.Errorf("ok event = %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nGrade this.") || !strings.Contains(ok.RequestBody, "[user]\nThe dog ran.") {
		t.Errorf("request body = %q", ok.RequestBody)
	}
	if ok.ResponseBody != `{"difficulty":"easy"}` {
		t.Errorf("response body = %q", ok.ResponseBody)
	}
}

func TestTranscript_IncludesSchema(t *testing.T) {
	out := transcript(Request{
		Schema: &Schema{Name: "difficulty-label", Definition: map[string]any{"type": "object"}},
	})
	if !strings.Contains(out, "[schema: difficulty-label]") || !strings.Contains(out, `{"type":"object"}`) {
		t.Errorf("transcript = %q", out)
	}
}

func TestNewProvider(t *testing.T) {
	repo := openEventRepo(t)
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Provider: Mock}, repo, nil)
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if _, ok := p.(*retryProvider); !ok {
		t.Errorf("expected retry wrapper outermost, got %T", p)
	}
	if p.ModelID() != Mock {
		t.Errorf("model = %q", p.ModelID())
	}

	cfg := DefaultConfig()
	cfg.Provider = OpenRouter
	cfg.APIKey = "sk-or-test"
	p, err = NewProvider(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatalf("openrouter: %v", err)
	}
	if p.ModelID() != "google/gemini-2.5-flash" {
		t.Errorf("model = %q", p.ModelID())
	}

	if _, err := NewProvider(ctx, Config{Provider: OpenAI}, repo, nil); err == nil {
		t.Error("expected validation error without API key")
	}
}

func TestNewProvider_ValidatesAndLogs(t *testing.T) {
	repo := openEventRepo(t)
	cfg := Config{Provider: Mock, Retry: fastRetry()}
	p, err := NewProvider(context.Background(), cfg, repo, nil)
	if err != nil {
		t.Fatal(err)
	}

	// The mock inside the chain has an empty queue, so every attempt fails
	// as unavailable and is logged.
	_, err = p.Generate(WithPurpose(context.Background(), "label"), Request{Prompt: "x"})
	var down *ErrProviderUnavailable
	if !errors.As(err, &down) {
		t.Fatalf("err = %v", err)
	}
	events, err := repo.QueryLLMEvents(context.Background(), store.QueryOpts{Purpose: "label"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("logged %d attempts, want 3", len(events))
	}
}

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		input float64
		found bool
	}{
		{"gpt-4o-mini", 0.15, true},
		{"gpt-4o-mini-2024-07-18", 0.15, true},
		{"gpt-4o-2024-08-06", 2.5, true},
		{"openai/gpt-4o-mini", 0.15, true},
		{"claude-haiku-4-5-20251001", 1, true},
		{"gemini-2.0-flash", 0.1, true},
		{"some-unknown-model", 0, false},
	}
	for _, tt := range tests {
		c := LookupCost(tt.model)
		if (c != nil) != tt.found {
			t.Errorf("LookupCost(%q) found = %v, want %v", tt.model, c != nil, tt.found)
			continue
		}
		if c != nil && c.InputPerMTok != tt.input {
			t.Errorf("LookupCost(%q) input = %v, want %v", tt.model, c.InputPerMTok, tt.input)
		}
	}

	cost := ModelCost{InputPerMTok: 1, OutputPerMTok: 5}.Cost(1_000_000, 200_000)
	if math.Abs(cost-2) > 1e-9 {
		t.Errorf("cost = %v, want 2", cost)
	}
}
