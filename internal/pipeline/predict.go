package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/abhisek/readlevel/internal/artifact"
	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/embed"
	"github.com/abhisek/readlevel/internal/metrics"
)

// ErrEmbedderMismatch indicates that an embedder differs from the one a
// classifier was trained with.
type ErrEmbedderMismatch struct {
	Want artifact.EmbedderInfo
	Got  artifact.EmbedderInfo
}

func (e *ErrEmbedderMismatch) Error() string {
	if e.Want.String() == e.Got.String() {
		return fmt.Sprintf("embedder %s produces dimension %d, the model expects %d",
			e.Got, e.Got.Dimension, e.Want.Dimension)
	}
	return fmt.Sprintf("model was trained with embedder %s, got %s", e.Want, e.Got)
}

// dimensioned is implemented by embedders with a known output size.
type dimensioned interface {
	Dimension() int
}

// CheckEmbedder reports whether e matches the embedder recorded in a.
// The dimension is only checked when e exposes it.
func CheckEmbedder(a *artifact.Artifact, e embed.Embedder) error {
	got := artifact.EmbedderInfo{Provider: e.Provider(), Model: e.ModelID(), Dimension: a.Embedder.Dimension}
	if d, ok := e.(dimensioned); ok {
		got.Dimension = d.Dimension()
	}
	if got != a.Embedder {
		return &ErrEmbedderMismatch{Want: a.Embedder, Got: got}
	}
	return nil
}

// EmbedConfigFor returns base adjusted to build the embedder a was
// trained with. Credentials and endpoints are kept from base.
func EmbedConfigFor(a *artifact.Artifact, base embed.Config) embed.Config {
	cfg := base
	cfg.Provider = a.Embedder.Provider
	cfg.Model = a.Embedder.Model
	if cfg.Provider == embed.ProviderHash || cfg.Provider == embed.ProviderMock {
		cfg.Dimension = a.Embedder.Dimension
	}
	return cfg
}

// Prediction is the predicted label for one text.
type Prediction struct {
	Text  string         `json:"text"`
	Label string         `json:"label"`
	Votes map[string]int `json:"votes"`
}

// Predictor labels new texts with a trained artifact.
type Predictor struct {
	art      *artifact.Artifact
	embedder embed.Embedder
	batch    embed.BatchOptions
}

// NewPredictor creates a predictor. It fails if e is not the embedder the
// artifact was trained with.
func NewPredictor(a *artifact.Artifact, e embed.Embedder) (*Predictor, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := CheckEmbedder(a, e); err != nil {
		return nil, err
	}
	return &Predictor{art: a, embedder: e, batch: embed.DefaultBatchOptions()}, nil
}

// Artifact returns the underlying artifact.
func (p *Predictor) Artifact() *artifact.Artifact { return p.art }

// Classes returns the labels the classifier can predict.
func (p *Predictor) Classes() []string { return slices.Clone(p.art.Classifier.Classes) }

// Predict returns one prediction per text, in order.
func (p *Predictor) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	X, err := p.embed(ctx, texts, nil)
	if err != nil {
		return nil, err
	}

	out := make([]Prediction, len(texts))
	for i, x := range X {
		pred, err := p.art.Classifier.PredictOne(x)
		if err != nil {
			return nil, err
		}
		out[i] = Prediction{Text: texts[i], Label: pred.Label, Votes: pred.Votes}
	}
	return out, nil
}

func (p *Predictor) embed(ctx context.Context, texts []string, progress embed.ProgressFunc) ([][]float64, error) {
	vecs, err := embed.EmbedAll(ctx, p.embedder, texts, p.batch, progress)
	if err != nil {
		return nil, err
	}
	if _, err := embed.CheckDimensions(vecs, p.art.Embedder.Dimension); err != nil {
		return nil, err
	}
	return embed.ToFloat64(vecs), nil
}

// EvalResult is the outcome of scoring a model on a labeled dataset.
type EvalResult struct {
	Rows        int
	Predictions []string
	Report      *metrics.Report
}

// Evaluate scores a saved model on every labeled row of ds.
func Evaluate(ctx context.Context, a *artifact.Artifact, ds *dataset.Dataset, e embed.Embedder, progress embed.ProgressFunc) (*EvalResult, error) {
	p, err := NewPredictor(a, e)
	if err != nil {
		return nil, err
	}
	if err := ds.RequireLabelColumn(); err != nil {
		return nil, err
	}
	labeled, err := ds.Labeled()
	if err != nil {
		return nil, err
	}

	X, err := p.embed(ctx, labeled.Texts(), progress)
	if err != nil {
		return nil, err
	}
	preds, err := a.Classifier.Predict(X)
	if err != nil {
		return nil, err
	}
	report, err := metrics.ClassificationReport(labeled.Labels(), preds)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Rows: labeled.Len(), Predictions: preds, Report: report}, nil
}
