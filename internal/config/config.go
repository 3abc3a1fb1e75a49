// Package config loads readlevel settings from an optional TOML file and
// READLEVEL_* environment variables. Command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/abhisek/readlevel/internal/artifact"
	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/embed"
	"github.com/abhisek/readlevel/internal/labeler"
	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/retry"
	"github.com/abhisek/readlevel/internal/svm"
)

// DefaultConfigFile is read from the working directory when no path is
// given.
const DefaultConfigFile = "readlevel.toml"

// Environment variables.
const (
	EnvConfig                  = "READLEVEL_CONFIG"
	EnvData                    = "READLEVEL_DATA"
	EnvTextColumn              = "READLEVEL_TEXT_COLUMN"
	EnvLabelColumn             = "READLEVEL_LABEL_COLUMN"
	EnvModel                   = "READLEVEL_MODEL"
	EnvTestSize                = "READLEVEL_TEST_SIZE"
	EnvSeed                    = "READLEVEL_SEED"
	EnvSVMC                    = "READLEVEL_SVM_C"
	EnvEmbedProvider           = "READLEVEL_EMBED_PROVIDER"
	EnvEmbedModel              = "READLEVEL_EMBED_MODEL"
	EnvEmbedAPIKey             = "READLEVEL_EMBED_API_KEY"
	EnvEmbedBaseURL            = "READLEVEL_EMBED_BASE_URL"
	EnvEmbedDimension          = "READLEVEL_EMBED_DIMENSION"
	EnvStorageContainerName    = "READLEVEL_STORAGE_CONTAINER_NAME"
	EnvStorageConnectionString = artifact.EnvConnectionString
	EnvLogLevel                = "READLEVEL_LOG_LEVEL"
)

// Config is the root configuration.
type Config struct {
	Data      DataConfig           `toml:"data"`
	Model     ModelConfig          `toml:"model"`
	Train     TrainConfig          `toml:"train"`
	Embedding EmbeddingConfig      `toml:"embedding"`
	Storage   artifact.AzureConfig `toml:"storage"`
	Labeler   LabelerConfig        `toml:"labeler"`
	Log       LogConfig            `toml:"log"`
}

// DataConfig locates the training CSV.
type DataConfig struct {
	Path        string `toml:"path"`
	TextColumn  string `toml:"text_column"`
	LabelColumn string `toml:"label_column"`
}

// ModelConfig locates the artifact: a file path or azblob://<key>.
type ModelConfig struct {
	Output string `toml:"output"`
}

// TrainConfig holds split, solver and batching settings.
type TrainConfig struct {
	TestSize         float64 `toml:"test_size"`
	Seed             uint64  `toml:"seed"`
	C                float64 `toml:"c"`
	Tol              float64 `toml:"tol"`
	MaxIter          int     `toml:"max_iter"`
	BatchSize        int     `toml:"batch_size"`
	EmbedConcurrency int     `toml:"embed_concurrency"`
}

// EmbeddingConfig selects the embedding provider. The API key is only
// read from the environment.
type EmbeddingConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	Dimension int    `toml:"dimension"`

	APIKey string `toml:"-"`
}

// LabelerConfig tunes the LLM labeler.
type LabelerConfig struct {
	Concurrency      int `toml:"concurrency"`
	ExamplesPerLabel int `toml:"examples_per_label"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	svmp := svm.DefaultParams()
	batch := embed.DefaultBatchOptions()
	lab := labeler.DefaultConfig()
	cols := dataset.DefaultColumns()

	return &Config{
		Data: DataConfig{
			Path:        "adaptive_algorithm/data/cleaned_stories_dataset.csv",
			TextColumn:  cols.Text,
			LabelColumn: cols.Label,
		},
		Model: ModelConfig{Output: "adaptive_algorithm/models/svm_model.json"},
		Train: TrainConfig{
			TestSize:         pipeline.DefaultTestSize,
			Seed:             pipeline.DefaultSeed,
			C:                svmp.C,
			Tol:              svmp.Tol,
			MaxIter:          svmp.MaxIter,
			BatchSize:        batch.BatchSize,
			EmbedConcurrency: batch.Concurrency,
		},
		Storage: artifact.AzureConfig{ContainerName: artifact.DefaultContainer},
		Labeler: LabelerConfig{
			Concurrency:      lab.Concurrency,
			ExamplesPerLabel: lab.ExamplesPerLabel,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load returns the defaults overlaid with the config file and then the
// environment. A .env file in the working directory is loaded first if
// present. path may be empty, in which case READLEVEL_CONFIG or
// readlevel.toml is used when it exists.
func Load(path string) (*Config, error) {
	// Best-effort; variables already set win.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Data.Path, EnvData)
	setString(&c.Data.TextColumn, EnvTextColumn)
	setString(&c.Data.LabelColumn, EnvLabelColumn)
	setString(&c.Model.Output, EnvModel)
	setString(&c.Embedding.Provider, EnvEmbedProvider)
	setString(&c.Embedding.Model, EnvEmbedModel)
	setString(&c.Embedding.APIKey, EnvEmbedAPIKey)
	setString(&c.Embedding.BaseURL, EnvEmbedBaseURL)
	setString(&c.Storage.ContainerName, EnvStorageContainerName)
	setString(&c.Storage.ConnectionString, EnvStorageConnectionString)
	setString(&c.Log.Level, EnvLogLevel)

	if v := os.Getenv(EnvTestSize); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTestSize, err)
		}
		c.Train.TestSize = f
	}
	if v := os.Getenv(EnvSeed); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Train.Seed = n
	}
	if v := os.Getenv(EnvSVMC); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSVMC, err)
		}
		c.Train.C = f
	}
	if v := os.Getenv(EnvEmbedDimension); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEmbedDimension, err)
		}
		c.Embedding.Dimension = n
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Train.TestSize <= 0 || c.Train.TestSize >= 1 {
		return fmt.Errorf("train.test_size must be in (0, 1), got %g", c.Train.TestSize)
	}
	if err := c.SVMParams().Validate(); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if c.Data.TextColumn == "" || c.Data.LabelColumn == "" {
		return fmt.Errorf("data.text_column and data.label_column must not be empty")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Columns returns the dataset column names.
func (c *Config) Columns() dataset.Columns {
	return dataset.Columns{Text: c.Data.TextColumn, Label: c.Data.LabelColumn}
}

// SVMParams returns the solver parameters.
func (c *Config) SVMParams() svm.Params {
	return svm.Params{C: c.Train.C, Tol: c.Train.Tol, MaxIter: c.Train.MaxIter, Seed: c.Train.Seed}
}

// TrainOptions returns pipeline options for the configured data and model.
func (c *Config) TrainOptions() pipeline.TrainOptions {
	opts := pipeline.DefaultTrainOptions()
	opts.DatasetPath = c.Data.Path
	opts.Columns = c.Columns()
	opts.TestSize = c.Train.TestSize
	opts.Seed = c.Train.Seed
	opts.SVM = c.SVMParams()
	opts.Batch = embed.BatchOptions{BatchSize: c.Train.BatchSize, Concurrency: c.Train.EmbedConcurrency}
	opts.Output = c.Model.Output
	return opts
}

// EmbedConfig returns the embedding provider configuration. An empty
// provider is discovered from standard API key variables.
func (c *Config) EmbedConfig() embed.Config {
	cfg := embed.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Dimension: c.Embedding.Dimension,
		Retry:     retry.DefaultConfig(),
	}
	return cfg.Discover()
}

// LabelerConfig returns the labeler configuration.
func (c *Config) LabelerConfig() labeler.Config {
	cfg := labeler.DefaultConfig()
	cfg.Concurrency = c.Labeler.Concurrency
	cfg.ExamplesPerLabel = c.Labeler.ExamplesPerLabel
	return cfg
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// NewLogger returns a text logger writing to w. verbose forces debug.
func NewLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	if verbose {
		l = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
