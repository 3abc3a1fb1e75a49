package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/readlevel/internal/store"
)

type loggingProvider struct {
	inner  Provider
	name   string
	events store.EventRepo
	logger *slog.Logger
}

// WithLogging stores every request and its outcome in events. A failure
// to store is logged and otherwise ignored.
func WithLogging(p Provider, name string, events store.EventRepo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &loggingProvider{inner: p, name: name, events: events, logger: logger}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	l.logger.Debug("llm request", "provider", ev.Provider, "model", ev.Model, "purpose", ev.Purpose,
		"latency_ms", ev.LatencyMs, "tokens", resp.usage().Total(), "error", err)

	if serr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); serr != nil {
		l.logger.Warn("store llm request event", "error", serr)
	}
	return resp, err
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }

func (r *Response) usage() Usage {
	if r == nil {
		return Usage{}
	}
	return r.Usage
}

// transcript renders req as plain text for the event log.
func transcript(req Request) string {
	var b strings.Builder
	section := func(title, body string) {
		b.WriteString("[" + title + "]\n" + body + "\n\n")
	}
	if req.System != "" {
		section("system", req.System)
	}
	section("user", req.Prompt)
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			section("schema: "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
