package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/readlevel/internal/artifact"
	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/embed"
	"github.com/abhisek/readlevel/internal/metrics"
	"github.com/abhisek/readlevel/internal/store"
	"github.com/abhisek/readlevel/internal/svm"
)

// Defaults for a training run.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
	DefaultPreview  = 5
)

// TrainOptions configures one training run.
type TrainOptions struct {
	DatasetPath string
	Columns     dataset.Columns

	TestSize float64
	Seed     uint64

	SVM   svm.Params
	Batch embed.BatchOptions

	// Output is the artifact location: a file path or an azblob:// key.
	// Empty skips the save stage.
	Output string

	// Preview is how many loaded rows to return in TrainResult.Preview.
	Preview int

	Observer Observer
}

// DefaultTrainOptions returns the options of the reference training run.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Columns:  dataset.DefaultColumns(),
		TestSize: DefaultTestSize,
		Seed:     DefaultSeed,
		SVM:      svm.DefaultParams(),
		Batch:    embed.DefaultBatchOptions(),
		Preview:  DefaultPreview,
	}
}

// TrainResult is everything a finished run produced.
type TrainResult struct {
	RunID string

	// Rows is the number of labeled rows used. Skipped counts blank texts,
	// Unlabeled rows without a label; neither is used.
	Rows      int
	Skipped   int
	Unlabeled int
	Preview   []dataset.Row
	Classes   []string

	TrainRows int
	TestRows  int

	Predictions []string
	Report      *metrics.Report
	Unconverged []svm.Pair

	Artifact *artifact.Artifact
	Location string

	Durations map[Stage]time.Duration
	Elapsed   time.Duration
}

// Trainer runs the training pipeline.
type Trainer struct {
	embedder embed.Embedder
	runs     store.RunRepo
	azure    artifact.AzureConfig
	logger   *slog.Logger
}

// NewTrainer creates a trainer. runs may be nil, in which case no run
// history is recorded. azure is used for azblob:// outputs.
func NewTrainer(e embed.Embedder, runs store.RunRepo, azure artifact.AzureConfig, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Trainer{embedder: e, runs: runs, azure: azure, logger: logger}
}

// Run loads the dataset, embeds every labeled text, splits, fits the
// classifier, evaluates it on the held-out rows and saves the artifact.
func (t *Trainer) Run(ctx context.Context, opts TrainOptions) (_ *TrainResult, err error) {
	started := time.Now()
	res := &TrainResult{
		RunID:     uuid.NewString(),
		Location:  opts.Output,
		Durations: make(map[Stage]time.Duration, len(Stages)),
	}
	logger := t.logger.With("run", res.RunID)

	run := &store.TrainingRun{
		ID:        res.RunID,
		StartedAt: started,
		Status:    store.RunRunning,
		Dataset:   opts.DatasetPath,
		Embedder:  embed.Namespace(t.embedder),
		Artifact:  opts.Output,
	}
	if t.runs != nil {
		if err := t.runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
		defer func() {
			t.finishRun(ctx, run, res, err)
		}()
	}

	obs := opts.Observer

	// load
	st := obs.begin(StageLoad, opts.DatasetPath)
	all, err := dataset.Load(opts.DatasetPath, opts.Columns)
	if err != nil {
		return nil, err
	}
	if err := all.RequireLabelColumn(); err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.DatasetPath, err)
	}
	ds, err := all.Labeled()
	if err != nil {
		return nil, fmt.Errorf("no labeled rows in %s: %w", opts.DatasetPath, err)
	}
	res.Rows = ds.Len()
	res.Skipped = all.Skipped
	res.Unlabeled = len(all.Unlabeled())
	res.Preview = ds.Head(opts.Preview)
	res.Classes = ds.Classes()
	run.Rows, run.Classes = res.Rows, res.Classes
	if len(res.Classes) < 2 {
		return nil, fmt.Errorf("%w: found %v", svm.ErrTooFewClasses, res.Classes)
	}
	if res.Unlabeled > 0 {
		logger.Warn("ignoring unlabeled rows", "rows", res.Unlabeled)
	}
	res.Durations[StageLoad] = st.end(fmt.Sprintf("%d rows, %d classes", res.Rows, len(res.Classes)))
	logger.Info("dataset loaded", "rows", res.Rows, "skipped", res.Skipped, "classes", res.Classes)

	// embed
	st = obs.begin(StageEmbed, embed.Namespace(t.embedder))
	vecs, err := embed.EmbedAll(ctx, t.embedder, ds.Texts(), opts.Batch, func(done, total int) {
		obs.emit(Event{Kind: EventProgress, Stage: StageEmbed, Done: done, Total: total})
	})
	if err != nil {
		return nil, err
	}
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	res.Durations[StageEmbed] = st.end(fmt.Sprintf("%d vectors of dimension %d", len(vecs), dim))
	logger.Info("texts embedded", "embedder", embed.Namespace(t.embedder), "dimension", dim)

	// split
	st = obs.begin(StageSplit, fmt.Sprintf("test size %g, seed %d", opts.TestSize, opts.Seed))
	trainIdx, testIdx, err := dataset.SplitIndices(ds.Len(), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	X := embed.ToFloat64(vecs)
	labels := ds.Labels()
	xTrain, yTrain := gather(X, labels, trainIdx)
	xTest, yTest := gather(X, labels, testIdx)
	res.TrainRows, res.TestRows = len(trainIdx), len(testIdx)
	run.TrainRows, run.TestRows = res.TrainRows, res.TestRows
	res.Durations[StageSplit] = st.end(fmt.Sprintf("%d train, %d test", res.TrainRows, res.TestRows))

	// fit
	clf := svm.New(opts.SVM)
	st = obs.begin(StageFit, fmt.Sprintf("%d pairwise models", len(res.Classes)*(len(res.Classes)-1)/2))
	if err := clf.Fit(ctx, xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("fitting classifier: %w", err)
	}
	res.Unconverged = clf.Unconverged()
	for _, p := range res.Unconverged {
		logger.Warn("pairwise model did not converge",
			"positive", clf.Classes[p.Positive],
			"negative", clf.Classes[p.Negative],
			"iterations", p.Iterations)
	}
	res.Durations[StageFit] = st.end("")

	// evaluate
	st = obs.begin(StageEvaluate, fmt.Sprintf("%d rows", len(xTest)))
	res.Predictions, err = clf.Predict(xTest)
	if err != nil {
		return nil, err
	}
	res.Report, err = metrics.ClassificationReport(yTest, res.Predictions)
	if err != nil {
		return nil, err
	}
	res.Durations[StageEvaluate] = st.end(fmt.Sprintf("accuracy %.4f", res.Report.Accuracy))
	logger.Info("classifier evaluated", "accuracy", res.Report.Accuracy, "macro_f1", res.Report.MacroAvg.F1)

	res.Artifact = &artifact.Artifact{
		FormatVersion: artifact.FormatVersion,
		RunID:         res.RunID,
		CreatedAt:     time.Now().UTC(),
		Dataset:       opts.DatasetPath,
		Columns:       opts.Columns,
		Embedder: artifact.EmbedderInfo{
			Provider:  t.embedder.Provider(),
			Model:     t.embedder.ModelID(),
			Dimension: dim,
		},
		Split: artifact.SplitInfo{
			TestSize:  opts.TestSize,
			Seed:      opts.Seed,
			TrainRows: res.TrainRows,
			TestRows:  res.TestRows,
		},
		Classifier: clf,
		Report:     res.Report,
	}

	// save
	if opts.Output != "" {
		st = obs.begin(StageSave, opts.Output)
		if err := t.save(ctx, opts.Output, res.Artifact); err != nil {
			return nil, err
		}
		res.Durations[StageSave] = st.end("")
		logger.Info("artifact saved", "location", opts.Output)
	}

	res.Elapsed = time.Since(started)
	return res, nil
}

func (t *Trainer) save(ctx context.Context, location string, a *artifact.Artifact) error {
	st, key, err := artifact.Open(location, t.azure, t.logger)
	if err != nil {
		return err
	}
	if err := st.Put(ctx, key, a); err != nil {
		return fmt.Errorf("saving artifact to %s: %w", location, err)
	}
	return nil
}

func (t *Trainer) finishRun(ctx context.Context, run *store.TrainingRun, res *TrainResult, runErr error) {
	run.FinishedAt = time.Now()
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			run.Error = "cancelled"
		}
	} else {
		run.Status = store.RunSucceeded
		acc, f1 := res.Report.Accuracy, res.Report.MacroAvg.F1
		run.Accuracy, run.MacroF1 = &acc, &f1
	}

	if err := t.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		t.logger.Warn("failed to record run result", "run", run.ID, "error", err)
	}
}

func gather(X [][]float64, y []string, idx []int) ([][]float64, []string) {
	xs := make([][]float64, len(idx))
	ys := make([]string, len(idx))
	for i, j := range idx {
		xs[i], ys[i] = X[j], y[j]
	}
	return xs, ys
}
