// Package pipeline wires the dataset, embedding, classifier, metrics and
// artifact packages into the train, evaluate and predict procedures.
package pipeline

import "time"

// Stage names a step of a training run.
type Stage string

// Training stages, in order.
const (
	StageLoad     Stage = "load"
	StageEmbed    Stage = "embed"
	StageSplit    Stage = "split"
	StageFit      Stage = "fit"
	StageEvaluate Stage = "evaluate"
	StageSave     Stage = "save"
)

// Stages lists every stage in run order.
var Stages = []Stage{StageLoad, StageEmbed, StageSplit, StageFit, StageEvaluate, StageSave}

// EventKind distinguishes observer events.
type EventKind int

const (
	EventStageStarted EventKind = iota
	EventStageFinished
	EventProgress
)

// Event reports run progress. Done and Total are set for EventProgress,
// Elapsed for EventStageFinished. Detail is a short human-readable note.
type Event struct {
	Kind    EventKind
	Stage   Stage
	Detail  string
	Done    int
	Total   int
	Elapsed time.Duration
}

// Observer receives events. It is called from the goroutine running the
// pipeline, except EventProgress which may come from embedding workers.
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}

// stageTimer emits the start and finish events of one stage.
type stageTimer struct {
	obs   Observer
	stage Stage
	start time.Time
}

func (o Observer) begin(s Stage, detail string) *stageTimer {
	o.emit(Event{Kind: EventStageStarted, Stage: s, Detail: detail})
	return &stageTimer{obs: o, stage: s, start: time.Now()}
}

func (t *stageTimer) end(detail string) time.Duration {
	d := time.Since(t.start)
	t.obs.emit(Event{Kind: EventStageFinished, Stage: t.stage, Detail: detail, Elapsed: d})
	return d
}
