// Package mcpserver exposes the trained classifier and the readability
// analyzer as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/readability"
)

const (
	Name = "readlevel"

	ToolPredict = "predict_difficulty"
	ToolAnalyze = "analyze_readability"
)

// Predictor labels passages. *pipeline.Predictor satisfies it.
type Predictor interface {
	Predict(ctx context.Context, texts []string) ([]pipeline.Prediction, error)
	Classes() []string
}

// Server wraps an MCP server with the readlevel tools registered.
type Server struct {
	mcp       *server.MCPServer
	predictor Predictor
	logger    *slog.Logger
}

// New builds the server. predictor may be nil, in which case only the
// readability tool is registered.
func New(version string, predictor Predictor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		mcp: server.NewMCPServer(Name, version,
			server.WithLogging(),
			server.WithRecovery(),
		),
		predictor: predictor,
		logger:    logger,
	}

	if predictor != nil {
		s.mcp.AddTool(mcp.NewTool(ToolPredict,
			mcp.WithDescription(fmt.Sprintf(
				"Predict the reading difficulty of a passage with the trained classifier. Labels: %s.",
				strings.Join(predictor.Classes(), ", "))),
			mcp.WithString("text",
				mcp.Description("The passage to grade."),
				mcp.Required(),
			),
		), s.handlePredict)
	}

	s.mcp.AddTool(mcp.NewTool(ToolAnalyze,
		mcp.WithDescription("Compute readability statistics for a passage: Flesch-Kincaid grade, reading ease, reading level 1-12 and complexity scores."),
		mcp.WithString("text",
			mcp.Description("The passage to analyze. At least 10 characters."),
			mcp.Required(),
		),
	), s.handleAnalyze)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve speaks MCP over the given reader and writer until ctx is done or
// the input is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", "predict", s.predictor != nil)
	err := stdio.Listen(ctx, in, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

// predictResult is the JSON body returned by predict_difficulty.
type predictResult struct {
	Label   string         `json:"label"`
	Votes   map[string]int `json:"votes"`
	Classes []string       `json:"classes"`
}

func (s *Server) handlePredict(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := textArg(request)
	if err != nil {
		return errorResult(err), nil
	}

	preds, err := s.predictor.Predict(ctx, []string{text})
	if err != nil {
		s.logger.Warn("predict failed", "error", err)
		return errorResult(fmt.Errorf("predict: %w", err)), nil
	}

	s.logger.Debug("predicted", "label", preds[0].Label, "chars", len(text))
	return jsonResult(predictResult{
		Label:   preds[0].Label,
		Votes:   preds[0].Votes,
		Classes: s.predictor.Classes(),
	})
}

func (s *Server) handleAnalyze(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := textArg(request)
	if err != nil {
		return errorResult(err), nil
	}

	r, err := readability.Analyze(text)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(r)
}

func textArg(request mcp.CallToolRequest) (string, error) {
	text, ok := request.Params.Arguments["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", errors.New("missing or invalid required argument: text (string)")
	}
	return text, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

// errorResult reports a tool-level failure to the client without failing
// the JSON-RPC call.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: err.Error()},
		},
		IsError: true,
	}
}
