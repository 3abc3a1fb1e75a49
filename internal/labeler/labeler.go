// Package labeler suggests difficulty labels for unlabeled passages with an
// LLM, so a partially labeled CSV can be completed before training.
package labeler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/llm"
)

// Label sources written to the label_source column.
const (
	SourceHuman = "human"
	SourceLLM   = "llm"
)

// Purpose tags LLM events made by the labeler.
const Purpose = "label"

// Config holds configuration for the labeler.
type Config struct {
	MaxTokens   int
	Temperature float64

	// Concurrency bounds in-flight LLM requests. Default: 4.
	Concurrency int

	// ExamplesPerLabel is how many labeled passages per label are shown
	// to the model as reference. Default: 2.
	ExamplesPerLabel int

	// MaxExampleChars truncates reference passages. Default: 400.
	MaxExampleChars int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        256,
		Temperature:      0,
		Concurrency:      4,
		ExamplesPerLabel: 2,
		MaxExampleChars:  400,
	}
}

// Suggestion is the model's label for one passage.
type Suggestion struct {
	Label      string  `json:"difficulty"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// RowError records a row the labeler could not label.
type RowError struct {
	Row int
	Err error
}

// Result is the outcome of LabelDataset.
type Result struct {
	// Dataset is a copy of the input with labels filled in.
	Dataset *dataset.Dataset

	Labeled int
	Failed  []RowError

	// Suggestions by row index, for rows labeled in this run.
	Suggestions map[int]Suggestion
}

// ProgressFunc receives the number of rows attempted so far.
type ProgressFunc func(done, total int)

type example struct {
	Label string
	Text  string
}

// Labeler assigns labels from a fixed set.
type Labeler struct {
	provider llm.Provider
	cfg      Config
	labels   []string
	schema   *llm.Schema
	logger   *slog.Logger

	mu       sync.RWMutex
	examples []example
}

// New creates a labeler restricted to labels.
func New(provider llm.Provider, labels []string, cfg Config, logger *slog.Logger) (*Labeler, error) {
	set := slices.Clone(labels)
	slices.Sort(set)
	set = slices.Compact(set)
	set = slices.DeleteFunc(set, func(s string) bool { return s == "" })
	if len(set) < 2 {
		return nil, fmt.Errorf("labeler needs at least two labels, got %v", labels)
	}

	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxExampleChars <= 0 {
		cfg.MaxExampleChars = def.MaxExampleChars
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Labeler{
		provider: provider,
		cfg:      cfg,
		labels:   set,
		schema:   buildSchema(set),
		logger:   logger,
	}, nil
}

// Labels returns the allowed label set, sorted.
func (l *Labeler) Labels() []string {
	return slices.Clone(l.labels)
}

// UseExamples picks reference passages from the labeled rows of ds: the
// first ExamplesPerLabel rows of each allowed label.
func (l *Labeler) UseExamples(ds *dataset.Dataset) {
	per := make(map[string]int)
	var ex []example
	for _, r := range ds.Rows {
		if r.Label == "" || per[r.Label] >= l.cfg.ExamplesPerLabel || !slices.Contains(l.labels, r.Label) {
			continue
		}
		per[r.Label]++
		ex = append(ex, example{Label: r.Label, Text: truncate(r.Text, l.cfg.MaxExampleChars)})
	}

	l.mu.Lock()
	l.examples = ex
	l.mu.Unlock()
}

// Suggest asks the model for the label of one passage.
func (l *Labeler) Suggest(ctx context.Context, text string) (*Suggestion, error) {
	ctx = llm.WithPurpose(ctx, Purpose)

	prompt, err := l.buildPrompt(text)
	if err != nil {
		return nil, fmt.Errorf("build label prompt: %w", err)
	}

	s, resp, err := llm.GenerateJSON[Suggestion](ctx, l.provider, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Schema:      l.schema,
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: l.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest label: %w", err)
	}
	// Providers without native enum support can still drift.
	if !slices.Contains(l.labels, s.Label) {
		return nil, &llm.ErrInvalidResponse{
			Content: resp.Content,
			Err:     fmt.Errorf("label %q is not one of %v", s.Label, l.labels),
		}
	}
	return s, nil
}

// LabelDataset fills in every missing label of ds. Rows that already have
// a label are marked as human-labeled. A row whose request fails keeps an
// empty label and is reported in Result.Failed, including per-request
// timeouts. Only cancellation of ctx aborts the batch.
func (l *Labeler) LabelDataset(ctx context.Context, ds *dataset.Dataset, progress ProgressFunc) (*Result, error) {
	all := make([]int, ds.Len())
	for i := range all {
		all[i] = i
	}
	out := ds.Subset(all)
	for i := range out.Rows {
		if out.Rows[i].Label != "" && out.Rows[i].Source == "" {
			out.Rows[i].Source = SourceHuman
		}
	}

	todo := out.Unlabeled()
	res := &Result{Dataset: out, Suggestions: make(map[int]Suggestion)}
	if len(todo) == 0 {
		return res, nil
	}

	l.logger.Info("labeling rows", "rows", len(todo), "labels", l.labels, "concurrency", l.cfg.Concurrency)

	var mu sync.Mutex
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Concurrency)

	for _, idx := range todo {
		g.Go(func() error {
			s, err := l.Suggest(gctx, out.Rows[idx].Text)

			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(todo))
			}

			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				l.logger.Warn("row not labeled", "row", idx, "error", err)
				mu.Lock()
				res.Failed = append(res.Failed, RowError{Row: idx, Err: err})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			out.Rows[idx].Label = s.Label
			out.Rows[idx].Source = SourceLLM
			res.Suggestions[idx] = *s
			res.Labeled++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(res.Failed, func(a, b RowError) int { return a.Row - b.Row })
	return res, nil
}

const systemPrompt = `You are an experienced reading specialist who grades passages for a children's reading app.

Instructions:
- Choose exactly one difficulty label from the allowed list.
- Judge vocabulary, sentence length, sentence structure and the background knowledge a child needs.
- If reference passages are given, grade consistently with them.
- Provide a confidence score (0.0–1.0).
- Keep the rationale to one sentence.`

var userTemplate = template.Must(template.New("label").Parse(`Allowed labels: {{range $i, $l := .Labels}}{{if $i}}, {{end}}{{$l}}{{end}}
{{if .Examples}}
Reference passages:
{{range .Examples}}[{{.Label}}] {{.Text}}
{{end}}{{end}}
Passage to grade:
{{.Text}}`))

func (l *Labeler) buildPrompt(text string) (string, error) {
	l.mu.RLock()
	examples := l.examples
	l.mu.RUnlock()

	var buf bytes.Buffer
	err := userTemplate.Execute(&buf, struct {
		Labels   []string
		Examples []example
		Text     string
	}{l.labels, examples, text})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
