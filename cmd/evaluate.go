package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/ui/components"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a saved model on a labelled CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyDataFlags(cmd)

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		location := modelLocation(cmd)
		a, err := loadArtifact(ctx, location)
		if err != nil {
			return err
		}

		// The model's own column names apply unless overridden.
		cols := a.Columns
		if cmd.Flags().Changed("text-column") {
			cols.Text = cfg.Data.TextColumn
		}
		if cmd.Flags().Changed("label-column") {
			cols.Label = cfg.Data.LabelColumn
		}
		if cols.Text == "" || cols.Label == "" {
			cols = cfg.Columns()
		}

		ds, err := dataset.Load(cfg.Data.Path, cols)
		if err != nil {
			return err
		}
		e, err := embedderFor(ctx, a, st)
		if err != nil {
			return err
		}

		res, err := pipeline.Evaluate(ctx, a, ds, e, nil)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Model:    %s (run %s, %s)\n", location, a.RunID, a.Embedder)
		fmt.Fprintf(w, "Dataset:  %s (%d labelled rows)\n\n", cfg.Data.Path, res.Rows)
		fmt.Fprintf(w, "Accuracy: %.4f\n\n", res.Report.Accuracy)
		fmt.Fprintln(w, "Classification Report:")
		if styled, _ := cmd.Flags().GetBool("styled"); styled {
			fmt.Fprintln(w, components.Report(res.Report))
			fmt.Fprintln(w, components.Confusion(res.Report.Confusion))
		} else {
			fmt.Fprintln(w, res.Report.String())
		}
		return nil
	},
}

func init() {
	addDataFlags(evaluateCmd)
	evaluateCmd.Flags().StringP("model", "m", "", "Model location: file path or azblob://<key>")
	evaluateCmd.Flags().Bool("styled", false, "Render the report with colors and a confusion matrix")
}
