package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/embed"
	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/tui"
	"github.com/abhisek/readlevel/internal/ui/components"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the difficulty classifier on a labelled CSV",
	Long: `Loads the dataset, embeds every passage, holds out a test split, fits a
linear SVM, prints accuracy and the classification report, and saves the
model. Output may be a file path or azblob://<key>.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := cmd.Flags()

		applyDataFlags(cmd)
		applyEmbedFlags(cmd)
		if f.Changed("output") {
			cfg.Model.Output, _ = f.GetString("output")
		}
		if f.Changed("test-size") {
			cfg.Train.TestSize, _ = f.GetFloat64("test-size")
		}
		if f.Changed("seed") {
			cfg.Train.Seed, _ = f.GetUint64("seed")
		}
		if f.Changed("c") {
			cfg.Train.C, _ = f.GetFloat64("c")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		e, err := embed.New(ctx, cfg.EmbedConfig(), st.EmbeddingCache(), logger)
		if err != nil {
			return fmt.Errorf("create embedder: %w", err)
		}

		opts := cfg.TrainOptions()
		if noSave, _ := f.GetBool("no-save"); noSave {
			opts.Output = ""
		}
		trainer := pipeline.NewTrainer(e, st.RunRepo(), cfg.Storage, logger)

		progress, _ := f.GetBool("progress")
		var res *pipeline.TrainResult
		if progress {
			res, err = tui.RunTrain(ctx, trainer, opts)
		} else {
			opts.Observer = logObserver()
			res, err = trainer.Run(ctx, opts)
		}
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}

		printTrainResult(cmd.OutOrStdout(), res, progress)
		return nil
	},
}

// logObserver logs stage transitions at debug level.
func logObserver() pipeline.Observer {
	return func(e pipeline.Event) {
		switch e.Kind {
		case pipeline.EventStageStarted:
			logger.Debug("stage started", "stage", e.Stage, "detail", e.Detail)
		case pipeline.EventStageFinished:
			logger.Debug("stage finished", "stage", e.Stage, "detail", e.Detail, "elapsed", e.Elapsed.Round(time.Millisecond))
		}
	}
}

func printTrainResult(w io.Writer, res *pipeline.TrainResult, styled bool) {
	fmt.Fprintln(w, "Dataset preview")
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%-4s  %-60s  %s\n", "#", "Text", "Label")
	for i, row := range res.Preview {
		fmt.Fprintf(w, "%-4d  %-60s  %s\n", i, excerpt(row.Text, 60), row.Label)
	}
	fmt.Fprintf(w, "\n%d rows (%d blank skipped, %d unlabeled ignored), classes: %s\n",
		res.Rows, res.Skipped, res.Unlabeled, strings.Join(res.Classes, ", "))
	fmt.Fprintf(w, "%d train / %d test\n\n", res.TrainRows, res.TestRows)

	fmt.Fprintf(w, "Accuracy: %.4f\n\n", res.Report.Accuracy)
	fmt.Fprintln(w, "Classification Report:")
	if styled {
		fmt.Fprintln(w, components.Report(res.Report))
		fmt.Fprintln(w, components.Confusion(res.Report.Confusion))
	} else {
		fmt.Fprintln(w, res.Report.String())
	}

	if len(res.Unconverged) > 0 {
		fmt.Fprintf(w, "Warning: %d pairwise model(s) hit the iteration limit; consider raising train.max_iter.\n\n", len(res.Unconverged))
	}

	if res.Location != "" {
		fmt.Fprintf(w, "Model saved to %s\n", res.Location)
	} else {
		fmt.Fprintln(w, "Model not saved.")
	}
	fmt.Fprintf(w, "Run %s finished in %s\n", res.RunID, res.Elapsed.Round(time.Millisecond))
}

// excerpt flattens whitespace and cuts s to n runes.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	addDataFlags(trainCmd)
	addEmbedFlags(trainCmd)
	trainCmd.Flags().StringP("output", "o", "", "Model output: file path or azblob://<key>")
	trainCmd.Flags().Float64("test-size", pipeline.DefaultTestSize, "Fraction of rows held out for testing")
	trainCmd.Flags().Uint64("seed", pipeline.DefaultSeed, "Random seed for the split and solver")
	trainCmd.Flags().Float64("c", 1, "SVM regularization parameter C")
	trainCmd.Flags().Bool("no-save", false, "Train and evaluate without saving the model")
	trainCmd.Flags().Bool("progress", false, "Show a live progress view")
}
