package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/artifact"
	"github.com/abhisek/readlevel/internal/config"
	"github.com/abhisek/readlevel/internal/embed"
	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/store"
)

// Loaded by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "readlevel",
	Short: "Text difficulty classifier for a children's reading app",
	Long: `readlevel trains a linear SVM on sentence embeddings of labelled passages
and uses it to grade the difficulty of new text.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg = c
		logger = config.NewLogger(cmd.ErrOrStderr(), c.Log.Level, verbose)
		return nil
	},
}

func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI; cancelling ctx cancels the running command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides READLEVEL_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default readlevel.toml if present)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(tryCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveMCPCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then READLEVEL_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, os.MkdirAll(filepath.Dir(p), 0o755)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("opened store", "path", dbPath)
	return st, nil
}

// applyEmbedFlags overlays the --embed-* flags of cmd onto the config.
func applyEmbedFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("embed-provider") {
		cfg.Embedding.Provider, _ = f.GetString("embed-provider")
	}
	if f.Changed("embed-model") {
		cfg.Embedding.Model, _ = f.GetString("embed-model")
	}
	if f.Changed("embed-dimension") {
		cfg.Embedding.Dimension, _ = f.GetInt("embed-dimension")
	}
}

func addEmbedFlags(cmd *cobra.Command) {
	cmd.Flags().String("embed-provider", "", "Embedding provider: openai, gemini, hash")
	cmd.Flags().String("embed-model", "", "Embedding model (provider default if empty)")
	cmd.Flags().Int("embed-dimension", 0, "Embedding dimension (hash provider vector length)")
}

// applyDataFlags overlays --data, --text-column and --label-column.
func applyDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("data") {
		cfg.Data.Path, _ = f.GetString("data")
	}
	if f.Changed("text-column") {
		cfg.Data.TextColumn, _ = f.GetString("text-column")
	}
	if f.Changed("label-column") {
		cfg.Data.LabelColumn, _ = f.GetString("label-column")
	}
}

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("data", "d", "", "Path to the CSV dataset")
	cmd.Flags().String("text-column", "", "Name of the text column (default text)")
	cmd.Flags().String("label-column", "", "Name of the label column (default final_difficulty)")
}

// modelLocation returns --model if set, else the configured output.
func modelLocation(cmd *cobra.Command) string {
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		return m
	}
	return cfg.Model.Output
}

func loadArtifact(ctx context.Context, location string) (*artifact.Artifact, error) {
	s, key, err := artifact.Open(location, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	a, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", location, err)
	}
	logger.Debug("loaded model", "location", location, "run", a.RunID, "embedder", a.Embedder.String())
	return a, nil
}

// embedderFor builds the embedder a was trained with. st may be nil, in
// which case embeddings are not cached.
func embedderFor(ctx context.Context, a *artifact.Artifact, st *store.Store) (embed.Embedder, error) {
	var cache embed.Cache
	if st != nil {
		cache = st.EmbeddingCache()
	}
	e, err := embed.New(ctx, pipeline.EmbedConfigFor(a, cfg.EmbedConfig()), cache, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return e, nil
}

// openPredictor loads the model at location and pairs it with its
// embedder.
func openPredictor(ctx context.Context, location string, st *store.Store) (*pipeline.Predictor, error) {
	a, err := loadArtifact(ctx, location)
	if err != nil {
		return nil, err
	}
	e, err := embedderFor(ctx, a, st)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPredictor(a, e)
}
