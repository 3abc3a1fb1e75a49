package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/mcpserver"
)

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve predict and readability tools over MCP (stdio)",
	Long: `Starts an MCP server on stdin/stdout with the tools predict_difficulty and
analyze_readability. If the model cannot be loaded only the readability
tool is offered. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var p mcpserver.Predictor
		if pred, err := openPredictor(ctx, modelLocation(cmd), st); err != nil {
			logger.Warn("model unavailable, serving readability only", "error", err)
		} else {
			p = pred
		}

		return mcpserver.New(version, p, logger).Serve(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	serveMCPCmd.Flags().StringP("model", "m", "", "Model location: file path or azblob://<key>")
}
