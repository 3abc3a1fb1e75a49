package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match ("" = any)
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates token usage for one purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage aggregates token usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// TrainingRun is one invocation of the training pipeline.
type TrainingRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Dataset    string
	Rows       int
	TrainRows  int
	TestRows   int
	Classes    []string
	Accuracy   *float64
	MacroF1    *float64
	Embedder   string
	Artifact   string
	Error      string
}

// Duration is the wall time of a finished run.
func (r *TrainingRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRepo records training runs.
type RunRepo interface {
	// Create inserts a run.
	Create(ctx context.Context, run *TrainingRun) error

	// Update overwrites every mutable field of an existing run.
	Update(ctx context.Context, run *TrainingRun) error

	// Get returns the run whose ID equals or starts with id, or nil if
	// none does. An ambiguous prefix is an error.
	Get(ctx context.Context, id string) (*TrainingRun, error)

	// List returns runs newest first.
	List(ctx context.Context, limit int) ([]TrainingRun, error)
}
