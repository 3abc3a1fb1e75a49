// Package tui holds the Bubble Tea programs behind `train --progress`
// and `try`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/ui/components"
	"github.com/abhisek/readlevel/internal/ui/theme"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// eventMsg carries a pipeline event into the program.
type eventMsg pipeline.Event

// trainDoneMsg is sent when the run returns.
type trainDoneMsg struct {
	Result *pipeline.TrainResult
	Err    error
}

// spinnerTickMsg animates the active stage.
type spinnerTickMsg time.Time

type stageState struct {
	started  bool
	finished bool
	detail   string
	elapsed  time.Duration
}

// TrainModel shows the stages of a training run and embedding progress.
type TrainModel struct {
	stages     map[pipeline.Stage]*stageState
	progress   components.ProgressBar
	frame      int
	width      int
	cancel     context.CancelFunc
	cancelling bool

	result *pipeline.TrainResult
	err    error
	done   bool
}

// NewTrainModel creates the model. cancel is called on Ctrl+C.
func NewTrainModel(cancel context.CancelFunc) TrainModel {
	st := make(map[pipeline.Stage]*stageState, len(pipeline.Stages))
	for _, s := range pipeline.Stages {
		st[s] = &stageState{}
	}
	return TrainModel{
		stages:   st,
		progress: components.NewProgressBar("", 50),
		cancel:   cancel,
		width:    80,
	}
}

func (m TrainModel) Init() tea.Cmd {
	return spinnerTick()
}

func (m TrainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-10, 20), 70)
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case eventMsg:
		m.apply(pipeline.Event(msg))
		return m, nil

	case trainDoneMsg:
		m.result, m.err, m.done = msg.Result, msg.Err, true
		return m, tea.Quit

	case spinnerTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, spinnerTick()
	}
	return m, nil
}

func (m *TrainModel) apply(e pipeline.Event) {
	st, ok := m.stages[e.Stage]
	if !ok {
		return
	}
	switch e.Kind {
	case pipeline.EventStageStarted:
		st.started = true
		st.detail = e.Detail
	case pipeline.EventStageFinished:
		st.finished = true
		st.elapsed = e.Elapsed
		if e.Detail != "" {
			st.detail = e.Detail
		}
	case pipeline.EventProgress:
		// Workers report out of order.
		m.progress.Done, m.progress.Total = max(m.progress.Done, e.Done), e.Total
	}
}

func (m TrainModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m TrainModel) render() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Training difficulty classifier"))
	b.WriteString("\n\n")

	for _, s := range pipeline.Stages {
		st := m.stages[s]
		var icon, line string
		switch {
		case st.finished:
			icon = theme.Good.Render("✓")
			line = theme.Body.Render(fmt.Sprintf("%-9s", s))
			if st.detail != "" {
				line += theme.Hint.Render("  " + st.detail)
			}
			line += theme.Subtitle.Render(fmt.Sprintf("  %s", st.elapsed.Round(time.Millisecond)))
		case st.started && m.done && m.err != nil:
			icon = theme.Bad.Render("✗")
			line = theme.Bad.Render(fmt.Sprintf("%-9s", s))
		case st.started:
			icon = theme.Active.Render(spinnerFrames[m.frame])
			line = theme.Active.Render(fmt.Sprintf("%-9s", s))
			if st.detail != "" {
				line += theme.Hint.Render("  " + st.detail)
			}
		default:
			icon = theme.Pending.Render("·")
			line = theme.Pending.Render(string(s))
		}
		b.WriteString("  " + icon + " " + line + "\n")

		if s == pipeline.StageEmbed && st.started && !st.finished && m.progress.Total > 0 {
			b.WriteString("      " + m.progress.View() + "\n")
		}
	}

	if m.cancelling && !m.done {
		b.WriteString("\n" + theme.Hint.Render("Cancelling..."))
	}
	return b.String()
}

// Result returns the outcome once the program has exited.
func (m TrainModel) Result() (*pipeline.TrainResult, error) {
	return m.result, m.err
}

func spinnerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// Runner trains a model. *pipeline.Trainer satisfies it.
type Runner interface {
	Run(ctx context.Context, opts pipeline.TrainOptions) (*pipeline.TrainResult, error)
}

// RunTrain runs a training run under a progress view and returns its
// result. opts.Observer is replaced.
func RunTrain(ctx context.Context, r Runner, opts pipeline.TrainOptions) (*pipeline.TrainResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewTrainModel(cancel))
	opts.Observer = func(e pipeline.Event) { p.Send(eventMsg(e)) }

	go func() {
		res, err := r.Run(ctx, opts)
		p.Send(trainDoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m, ok := final.(TrainModel)
	if !ok || !m.done {
		return nil, fmt.Errorf("progress view exited before training finished")
	}
	return m.Result()
}
