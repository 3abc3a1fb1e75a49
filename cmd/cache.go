package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached embeddings per model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.EmbeddingCache().Stats(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(stats) == 0 {
			fmt.Fprintln(w, "Embedding cache is empty.")
			return nil
		}

		var entries int
		var size int64
		rows := make([][]string, 0, len(stats)+1)
		for _, s := range stats {
			rows = append(rows, []string{s.Model, itoa(s.Entries), itoa(s.Dim), formatBytes(s.Bytes)})
			entries += s.Entries
			size += s.Bytes
		}
		rows = append(rows, []string{"total", itoa(entries), "", formatBytes(size)})
		printTable(w, []string{"Model", "Entries", "Dim", "Size"}, rows)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [model]",
	Short: "Delete cached embeddings for one model, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var model string
		if len(args) == 1 {
			model = args[0]
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.EmbeddingCache().Purge(cmd.Context(), model)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cached embedding(s).\n", n)
		return nil
	},
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
