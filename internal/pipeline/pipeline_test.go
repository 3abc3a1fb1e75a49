package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/readlevel/internal/artifact"
	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/embed"
	"github.com/abhisek/readlevel/internal/store"
	"github.com/abhisek/readlevel/internal/svm"
)

var centers = map[string][]float32{
	"easy":   {5, 0, 0},
	"medium": {0, 5, 0},
	"hard":   {0, 0, 5},
}

// writeStories writes a CSV with perClass rows per label, one blank text
// and one unlabeled row, and returns its path and an embedder that maps
// every story near its label's center.
func writeStories(t *testing.T, perClass int) (string, *embed.MockEmbedder) {
	t.Helper()
	e := embed.NewMockEmbedder(3)

	var b strings.Builder
	b.WriteString("id,text,final_difficulty\n")
	id := 0
	for _, label := range []string{"easy", "medium", "hard"} {
		for i := range perClass {
			text := fmt.Sprintf("%s story number %d", label, i)
			off := float32(i%5) * 0.05
			c := centers[label]
			e.Vectors[text] = []float32{c[0] + off, c[1] + off, c[2] + off}
			fmt.Fprintf(&b, "%d,%s,%s\n", id, text, label)
			id++
		}
	}
	fmt.Fprintf(&b, "%d,   ,easy\n", id)
	fmt.Fprintf(&b, "%d,an unlabeled story,\n", id+1)

	path := filepath.Join(t.TempDir(), "stories.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path, e
}

func openRuns(t *testing.T) store.RunRepo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "readlevel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.RunRepo()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) started() []Stage {
	var out []Stage
	for _, e := range r.events {
		if e.Kind == EventStageStarted {
			out = append(out, e.Stage)
		}
	}
	return out
}

func TestTrainer_Run(t *testing.T) {
	path, e := writeStories(t, 10)
	runs := openRuns(t)
	out := filepath.Join(t.TempDir(), "models", "svm_model.json")

	rec := &recorder{}
	opts := DefaultTrainOptions()
	opts.DatasetPath = path
	opts.Output = out
	opts.Batch = embed.BatchOptions{BatchSize: 7, Concurrency: 2}
	opts.Observer = rec.observe

	res, err := NewTrainer(e, runs, artifact.AzureConfig{}, nil).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 30, res.Rows)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Unlabeled)
	assert.Len(t, res.Preview, DefaultPreview)
	assert.Equal(t, []string{"easy", "hard", "medium"}, res.Classes)
	assert.Equal(t, 24, res.TrainRows)
	assert.Equal(t, 6, res.TestRows)
	assert.Len(t, res.Predictions, res.TestRows)
	assert.Equal(t, 1.0, res.Report.Accuracy)
	assert.Empty(t, res.Unconverged)

	assert.Equal(t, Stages, rec.started())
	var last Event
	for _, ev := range rec.events {
		if ev.Kind == EventProgress {
			last = ev
		}
	}
	assert.Equal(t, 30, last.Total)

	saved, err := artifact.FileStore{}.Get(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, saved.RunID)
	assert.Equal(t, artifact.EmbedderInfo{Provider: "mock", Model: "mock", Dimension: 3}, saved.Embedder)
	assert.Equal(t, artifact.SplitInfo{TestSize: 0.2, Seed: 42, TrainRows: 24, TestRows: 6}, saved.Split)

	run, err := runs.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, store.RunSucceeded, run.Status)
	require.NotNil(t, run.Accuracy)
	assert.Equal(t, 1.0, *run.Accuracy)
	assert.Equal(t, 30, run.Rows)
	assert.Equal(t, out, run.Artifact)
	assert.Equal(t, "mock/mock", run.Embedder)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestTrainer_RunIsDeterministic(t *testing.T) {
	path, e := writeStories(t, 8)
	opts := DefaultTrainOptions()
	opts.DatasetPath = path

	tr := NewTrainer(e, nil, artifact.AzureConfig{}, nil)
	a, err := tr.Run(context.Background(), opts)
	require.NoError(t, err)
	b, err := tr.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Predictions, b.Predictions)
	assert.Equal(t, a.Artifact.Classifier.Pairs, b.Artifact.Classifier.Pairs)
	_, saved := a.Durations[StageSave]
	assert.False(t, saved, "no output means no save stage")
}

func TestTrainer_FailureIsRecorded(t *testing.T) {
	ctx := context.Background()

	t.Run("single class", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "one.csv")
		require.NoError(t, os.WriteFile(path, []byte("text,final_difficulty\na cat,easy\na dog,easy\n"), 0o644))
		runs := openRuns(t)

		opts := DefaultTrainOptions()
		opts.DatasetPath = path
		_, err := NewTrainer(embed.NewMockEmbedder(3), runs, artifact.AzureConfig{}, nil).Run(ctx, opts)
		require.ErrorIs(t, err, svm.ErrTooFewClasses)

		list, err := runs.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, store.RunFailed, list[0].Status)
		assert.Contains(t, list[0].Error, "two classes")
		assert.Nil(t, list[0].Accuracy)
	})

	t.Run("embedder error", func(t *testing.T) {
		path, e := writeStories(t, 4)
		e.Err = errors.New("quota exhausted")
		runs := openRuns(t)

		opts := DefaultTrainOptions()
		opts.DatasetPath = path
		_, err := NewTrainer(e, runs, artifact.AzureConfig{}, nil).Run(ctx, opts)
		require.Error(t, err)

		list, err := runs.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, store.RunFailed, list[0].Status)
		assert.Contains(t, list[0].Error, "quota exhausted")
	})

	t.Run("missing column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("body,final_difficulty\nx,easy\n"), 0o644))

		opts := DefaultTrainOptions()
		opts.DatasetPath = path
		_, err := NewTrainer(embed.NewMockEmbedder(3), nil, artifact.AzureConfig{}, nil).Run(ctx, opts)
		var missing *dataset.ErrMissingColumn
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("missing label column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "d.csv")
		require.NoError(t, os.WriteFile(path, []byte("text,difficulty\na cat,easy\na theorem,hard\n"), 0o644))
		runs := openRuns(t)

		opts := DefaultTrainOptions()
		opts.DatasetPath = path
		_, err := NewTrainer(embed.NewMockEmbedder(3), runs, artifact.AzureConfig{}, nil).Run(ctx, opts)
		var missing *dataset.ErrMissingColumn
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "final_difficulty", missing.Column)
		assert.Equal(t, []string{"text", "difficulty"}, missing.Available)
		assert.NotErrorIs(t, err, dataset.ErrEmpty)

		list, err := runs.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, store.RunFailed, list[0].Status)
	})
}

func TestPredictor(t *testing.T) {
	path, e := writeStories(t, 10)
	opts := DefaultTrainOptions()
	opts.DatasetPath = path
	res, err := NewTrainer(e, nil, artifact.AzureConfig{}, nil).Run(context.Background(), opts)
	require.NoError(t, err)

	e.Vectors["a brand new easy one"] = []float32{4.8, 0.1, 0.2}
	e.Vectors["a brand new hard one"] = []float32{0.3, 0.1, 5.2}

	p, err := NewPredictor(res.Artifact, e)
	require.NoError(t, err)
	assert.Equal(t, []string{"easy", "hard", "medium"}, p.Classes())

	preds, err := p.Predict(context.Background(), []string{"a brand new easy one", "a brand new hard one"})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "easy", preds[0].Label)
	assert.Equal(t, 2, preds[0].Votes["easy"])
	assert.Equal(t, "hard", preds[1].Label)

	empty, err := p.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPredictor_RejectsOtherEmbedder(t *testing.T) {
	path, e := writeStories(t, 6)
	opts := DefaultTrainOptions()
	opts.DatasetPath = path
	res, err := NewTrainer(e, nil, artifact.AzureConfig{}, nil).Run(context.Background(), opts)
	require.NoError(t, err)

	other := embed.NewMockEmbedder(3)
	other.Model = "another-model"
	_, err = NewPredictor(res.Artifact, other)
	var mismatch *ErrEmbedderMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, err.Error(), "mock/mock")

	// Same model ID but a vector size the classifier cannot use.
	wide := embed.NewMockEmbedder(5)
	p, err := NewPredictor(res.Artifact, wide)
	require.NoError(t, err)
	_, err = p.Predict(context.Background(), []string{"unknown text"})
	var dim *embed.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dim)
}

func TestCheckEmbedder_HashDimension(t *testing.T) {
	a := &artifact.Artifact{Embedder: artifact.EmbedderInfo{
		Provider: embed.ProviderHash, Model: embed.HashModelID(64), Dimension: 64,
	}}
	assert.NoError(t, CheckEmbedder(a, embed.NewHashEmbedder(64)))
	assert.Error(t, CheckEmbedder(a, embed.NewHashEmbedder(128)))

	cfg := EmbedConfigFor(a, embed.Config{Provider: embed.ProviderOpenAI, APIKey: "sk-test"})
	assert.Equal(t, embed.ProviderHash, cfg.Provider)
	assert.Equal(t, 64, cfg.Dimension)
	assert.Equal(t, "sk-test", cfg.APIKey)
}

func TestEvaluate(t *testing.T) {
	path, e := writeStories(t, 10)
	opts := DefaultTrainOptions()
	opts.DatasetPath = path
	res, err := NewTrainer(e, nil, artifact.AzureConfig{}, nil).Run(context.Background(), opts)
	require.NoError(t, err)

	ds, err := dataset.Load(path, dataset.DefaultColumns())
	require.NoError(t, err)

	var done int
	ev, err := Evaluate(context.Background(), res.Artifact, ds, e, func(d, total int) { done = max(done, d) })
	require.NoError(t, err)
	assert.Equal(t, 30, ev.Rows)
	assert.Len(t, ev.Predictions, 30)
	assert.Equal(t, 1.0, ev.Report.Accuracy)
	assert.Equal(t, 30, done)
}

func TestEvaluate_MissingLabelColumn(t *testing.T) {
	path, e := writeStories(t, 4)
	opts := DefaultTrainOptions()
	opts.DatasetPath = path
	res, err := NewTrainer(e, nil, artifact.AzureConfig{}, nil).Run(context.Background(), opts)
	require.NoError(t, err)

	ds, err := dataset.Read(strings.NewReader("text,level\neasy story number 0,easy\n"), dataset.DefaultColumns())
	require.NoError(t, err)

	_, err = Evaluate(context.Background(), res.Artifact, ds, e, nil)
	var missing *dataset.ErrMissingColumn
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "final_difficulty", missing.Column)
}
