package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/tui"
)

var tryCmd = &cobra.Command{
	Use:   "try",
	Short: "Interactively grade passages with a saved model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := openPredictor(ctx, modelLocation(cmd), st)
		if err != nil {
			return err
		}
		return tui.RunTry(ctx, p, p.Artifact().Embedder.String())
	},
}

func init() {
	tryCmd.Flags().StringP("model", "m", "", "Model location: file path or azblob://<key>")
}
