package svm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pair is the binary model separating Classes[Positive] (decision > 0)
// from Classes[Negative].
type Pair struct {
	Positive   int       `json:"positive"`
	Negative   int       `json:"negative"`
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
}

// Classifier is a one-vs-one multiclass linear SVM. The zero value is not
// usable; create one with New. A fitted Classifier is safe for concurrent
// prediction.
type Classifier struct {
	Params  Params   `json:"params"`
	Classes []string `json:"classes"`
	Dim     int      `json:"dim"`
	Pairs   []Pair   `json:"pairs"`
}

// Prediction is the outcome for one sample.
type Prediction struct {
	Label string         `json:"label"`
	Votes map[string]int `json:"votes"`
}

// New creates an untrained classifier.
func New(p Params) *Classifier {
	return &Classifier{Params: p}
}

// Fitted reports whether the classifier has been trained.
func (c *Classifier) Fitted() bool {
	return len(c.Pairs) > 0 && len(c.Classes) >= 2
}

// Fit trains one binary model per class pair. Pairs train concurrently;
// each goroutine writes only its own slot.
func (c *Classifier) Fit(ctx context.Context, X [][]float64, y []string) error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if len(X) == 0 {
		return ErrEmptyInput
	}
	if len(X) != len(y) {
		return &ErrShape{Row: -1, Want: len(X), Got: len(y)}
	}
	dim := len(X[0])
	if dim == 0 {
		return &ErrShape{Row: 0, Want: 1, Got: 0}
	}
	for i, x := range X {
		if len(x) != dim {
			return &ErrShape{Row: i, Want: dim, Got: len(x)}
		}
	}

	classes := uniqueSorted(y)
	if len(classes) < 2 {
		return ErrTooFewClasses
	}
	index := make(map[string]int, len(classes))
	for i, cl := range classes {
		index[cl] = i
	}

	byClass := make([][]int, len(classes))
	for i, label := range y {
		k := index[label]
		byClass[k] = append(byClass[k], i)
	}

	var pairs []Pair
	for a := 0; a < len(classes); a++ {
		for b := a + 1; b < len(classes); b++ {
			pairs = append(pairs, Pair{Positive: a, Negative: b})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for pi := range pairs {
		g.Go(func() error {
			pr := &pairs[pi]
			rows := make([][]float64, 0, len(byClass[pr.Positive])+len(byClass[pr.Negative]))
			signs := make([]float64, 0, cap(rows))
			for _, i := range byClass[pr.Positive] {
				rows = append(rows, X[i])
				signs = append(signs, 1)
			}
			for _, i := range byClass[pr.Negative] {
				rows = append(rows, X[i])
				signs = append(signs, -1)
			}

			rng := rand.New(rand.NewPCG(c.Params.Seed, uint64(pi)))
			res, err := trainBinary(gctx, rows, signs, c.Params, rng)
			if err != nil {
				return fmt.Errorf("training %s vs %s: %w", classes[pr.Positive], classes[pr.Negative], err)
			}
			pr.Weights = res.weights
			pr.Bias = res.bias
			pr.Iterations = res.iterations
			pr.Converged = res.converged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.Classes = classes
	c.Dim = dim
	c.Pairs = pairs
	return nil
}

// Unconverged returns the pairs that hit MaxIter before reaching Tol.
func (c *Classifier) Unconverged() []Pair {
	var out []Pair
	for _, p := range c.Pairs {
		if !p.Converged {
			out = append(out, p)
		}
	}
	return out
}

// DecisionFunction returns the signed score of x for every pair, in
// Pairs order.
func (c *Classifier) DecisionFunction(x []float64) ([]float64, error) {
	if err := c.check(x); err != nil {
		return nil, err
	}
	out := make([]float64, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = dot(p.Weights, x) + p.Bias
	}
	return out, nil
}

// Votes counts pairwise wins for x. Every class appears in the map.
func (c *Classifier) Votes(x []float64) (map[string]int, error) {
	votes, err := c.votes(x)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(c.Classes))
	for i, cl := range c.Classes {
		out[cl] = votes[i]
	}
	return out, nil
}

// PredictOne classifies a single sample. Ties go to the class that sorts
// first.
func (c *Classifier) PredictOne(x []float64) (Prediction, error) {
	votes, err := c.votes(x)
	if err != nil {
		return Prediction{}, err
	}
	best := 0
	for i := 1; i < len(votes); i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	m := make(map[string]int, len(c.Classes))
	for i, cl := range c.Classes {
		m[cl] = votes[i]
	}
	return Prediction{Label: c.Classes[best], Votes: m}, nil
}

// Predict classifies every row of X. Rows are split into chunks scored
// in parallel. The result has one label per row.
func (c *Classifier) Predict(X [][]float64) ([]string, error) {
	if !c.Fitted() {
		return nil, ErrNotFitted
	}
	for i, x := range X {
		if len(x) != c.Dim {
			return nil, &ErrShape{Row: i, Want: c.Dim, Got: len(x)}
		}
	}

	out := make([]string, len(X))
	if len(X) == 0 {
		return out, nil
	}

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				// Shapes were checked above, so this cannot fail.
				p, _ := c.PredictOne(X[i])
				out[i] = p.Label
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

func (c *Classifier) votes(x []float64) ([]int, error) {
	scores, err := c.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	votes := make([]int, len(c.Classes))
	for i, p := range c.Pairs {
		if scores[i] > 0 {
			votes[p.Positive]++
		} else {
			votes[p.Negative]++
		}
	}
	return votes, nil
}

func (c *Classifier) check(x []float64) error {
	if !c.Fitted() {
		return ErrNotFitted
	}
	if len(x) != c.Dim {
		return &ErrShape{Row: 0, Want: c.Dim, Got: len(x)}
	}
	return nil
}

func uniqueSorted(labels []string) []string {
	out := slices.Clone(labels)
	slices.Sort(out)
	return slices.Compact(out)
}
