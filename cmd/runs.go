package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect training run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent training runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.RunRepo().List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "No training runs recorded yet.")
			return nil
		}

		rows := make([][]string, len(runs))
		for i, r := range runs {
			rows[i] = []string{
				shortID(r.ID),
				r.StartedAt.Local().Format(time.DateTime),
				r.Status,
				itoa(r.Rows),
				optFloat(r.Accuracy),
				formatDuration(r.Duration()),
				truncate(r.Embedder, 24),
				r.Dataset,
			}
		}
		printTable(w, []string{"ID", "Started", "Status", "Rows", "Accuracy", "Duration", "Embedder", "Dataset"}, rows)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one training run (ID prefixes are accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		r, err := st.RunRepo().Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if r == nil {
			return fmt.Errorf("run %s not found", args[0])
		}
		printRun(cmd, r)
		return nil
	},
}

func printRun(cmd *cobra.Command, r *store.TrainingRun) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	fmt.Fprintf(w, "Status:    %s\n", r.Status)
	fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Local().Format(time.DateTime))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished:  %s (%s)\n", r.FinishedAt.Local().Format(time.DateTime), formatDuration(r.Duration()))
	}
	fmt.Fprintf(w, "Dataset:   %s\n", r.Dataset)
	fmt.Fprintf(w, "Rows:      %d (%d train / %d test)\n", r.Rows, r.TrainRows, r.TestRows)
	fmt.Fprintf(w, "Classes:   %s\n", strings.Join(r.Classes, ", "))
	fmt.Fprintf(w, "Embedder:  %s\n", r.Embedder)
	fmt.Fprintf(w, "Accuracy:  %s\n", optFloat(r.Accuracy))
	fmt.Fprintf(w, "Macro F1:  %s\n", optFloat(r.MacroF1))
	if r.Artifact != "" {
		fmt.Fprintf(w, "Artifact:  %s\n", r.Artifact)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", r.Error)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func init() {
	runsListCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
