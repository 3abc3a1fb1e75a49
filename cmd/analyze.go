package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/readability"
	"github.com/abhisek/readlevel/internal/ui/components"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Show readability statistics for a passage",
	Long: `Computes Flesch-Kincaid grade, reading ease and complexity scores. Needs
no model. With no argument the passage is read from standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}

		r, err := readability.Analyze(strings.TrimSpace(text))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		fmt.Fprintln(w, components.Readability(r))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print the result as JSON")
}
