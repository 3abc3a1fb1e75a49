package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/labeler"
	"github.com/abhisek/readlevel/internal/llm"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Suggest labels for unlabelled rows with an LLM",
	Long: `Asks the configured LLM to grade every row that has text but no label,
choosing from a fixed label set, and writes a copy of the CSV with the
labels filled in and a label_source column (human or llm). Rows that fail
keep an empty label and are listed at the end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := cmd.Flags()
		applyDataFlags(cmd)

		ds, err := dataset.Load(cfg.Data.Path, cfg.Columns())
		if err != nil {
			return err
		}

		labels, _ := f.GetStringSlice("labels")
		if len(labels) == 0 {
			labels = ds.Classes()
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		lcfg, err := llmConfig()
		if err != nil {
			return fmt.Errorf("LLM provider not configured: %w", err)
		}
		provider, err := llm.NewProvider(ctx, lcfg, st.EventRepo(), logger)
		if err != nil {
			return err
		}

		c := cfg.LabelerConfig()
		if f.Changed("concurrency") {
			c.Concurrency, _ = f.GetInt("concurrency")
		}
		l, err := labeler.New(provider, labels, c, logger)
		if err != nil {
			return err
		}
		if noExamples, _ := f.GetBool("no-examples"); !noExamples {
			l.UseExamples(ds)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Labelling %d of %d rows with %s (labels: %s)\n",
			len(ds.Unlabeled()), ds.Len(), provider.ModelID(), strings.Join(l.Labels(), ", "))

		res, err := l.LabelDataset(ctx, ds, func(done, total int) {
			logger.Debug("labelled", "done", done, "total", total)
		})
		if err != nil {
			return fmt.Errorf("label: %w", err)
		}

		out, _ := f.GetString("out")
		if out == "" {
			out = labeledPath(cfg.Data.Path)
		}
		if err := res.Dataset.Save(out); err != nil {
			return err
		}

		fmt.Fprintf(w, "Labelled %d row(s), %d failed. Wrote %s\n", res.Labeled, len(res.Failed), out)
		for _, fe := range res.Failed {
			fmt.Fprintf(w, "  row %d: %v\n", fe.Row, fe.Err)
		}
		return nil
	},
}

// llmConfig prefers READLEVEL_LLM_* settings and falls back to the standard
// API key variables.
func llmConfig() (llm.Config, error) {
	c := llm.ConfigFromEnv()
	err := c.Validate()
	if err == nil {
		return c, nil
	}
	if d, ok := llm.DiscoverConfig(); ok {
		return d, nil
	}
	return llm.Config{}, errors.Join(err, errors.New("set READLEVEL_LLM_PROVIDER and READLEVEL_LLM_API_KEY, or one of GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY"))
}

// labeledPath turns data/stories.csv into data/stories.labeled.csv.
func labeledPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".labeled" + ext
}

func init() {
	addDataFlags(labelCmd)
	labelCmd.Flags().StringSlice("labels", nil, "Allowed labels (default: labels already in the dataset)")
	labelCmd.Flags().StringP("out", "o", "", "Output CSV (default <data>.labeled.csv)")
	labelCmd.Flags().Int("concurrency", 4, "Concurrent LLM requests")
	labelCmd.Flags().Bool("no-examples", false, "Do not show labelled rows to the model as examples")
}
