package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/readlevel/internal/pipeline"
)

type stubPredictor struct {
	label string
	err   error
	texts []string
}

func (s *stubPredictor) Predict(_ context.Context, texts []string) ([]pipeline.Prediction, error) {
	s.texts = append(s.texts, texts...)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]pipeline.Prediction, len(texts))
	for i, t := range texts {
		out[i] = pipeline.Prediction{Text: t, Label: s.label, Votes: map[string]int{s.label: 2, "easy": 1}}
	}
	return out, nil
}

func (s *stubPredictor) Classes() []string { return []string{"easy", "hard", "medium"} }

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestHandlePredict(t *testing.T) {
	p := &stubPredictor{label: "hard"}
	s := New("test", p, nil)

	res, err := s.handlePredict(context.Background(), callRequest(map[string]any{
		"text": "Photosynthesis converts light energy into chemical energy.",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got predictResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "hard", got.Label)
	assert.Equal(t, 2, got.Votes["hard"])
	assert.Equal(t, []string{"easy", "hard", "medium"}, got.Classes)
	assert.Len(t, p.texts, 1)
}

func TestHandlePredict_Errors(t *testing.T) {
	p := &stubPredictor{err: errors.New("embedder offline")}
	s := New("test", p, nil)

	res, err := s.handlePredict(context.Background(), callRequest(map[string]any{"text": "A passage."}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "embedder offline")

	res, err = s.handlePredict(context.Background(), callRequest(map[string]any{"text": 42.0}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "text")
	assert.Len(t, p.texts, 1)
}

func TestHandleAnalyze(t *testing.T) {
	s := New("test", nil, nil)

	res, err := s.handleAnalyze(context.Background(), callRequest(map[string]any{
		"text": "The cat sat on the mat. The dog ran.",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, 1.0, got["reading_level"])
	metrics := got["metrics"].(map[string]any)
	assert.Equal(t, 9.0, metrics["total_words"])
	assert.Equal(t, 2.0, metrics["total_sentences"])

	res, err = s.handleAnalyze(context.Background(), callRequest(map[string]any{"text": "Hi."}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "too short")

	res, err = s.handleAnalyze(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestToolsList(t *testing.T) {
	list := func(s *Server) string {
		msg := s.MCP().HandleMessage(context.Background(),
			json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		return string(data)
	}

	withModel := list(New("test", &stubPredictor{label: "easy"}, nil))
	assert.Contains(t, withModel, ToolPredict)
	assert.Contains(t, withModel, ToolAnalyze)
	assert.Contains(t, withModel, "easy, hard, medium")

	withoutModel := list(New("test", nil, nil))
	assert.NotContains(t, withoutModel, ToolPredict)
	assert.Contains(t, withoutModel, ToolAnalyze)
}
