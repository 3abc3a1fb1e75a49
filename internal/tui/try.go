package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/readlevel/internal/pipeline"
	"github.com/abhisek/readlevel/internal/readability"
	"github.com/abhisek/readlevel/internal/ui/components"
	"github.com/abhisek/readlevel/internal/ui/layout"
	"github.com/abhisek/readlevel/internal/ui/theme"
)

// Predictor labels passages. *pipeline.Predictor satisfies it.
type Predictor interface {
	Predict(ctx context.Context, texts []string) ([]pipeline.Prediction, error)
	Classes() []string
}

// predictedMsg is sent when a prediction for the submitted passage is
// ready.
type predictedMsg struct {
	Text        string
	Prediction  *pipeline.Prediction
	Readability *readability.Result
	Err         error
}

// TryModel is an interactive loop: type a passage, press Enter, see its
// predicted difficulty and readability statistics.
type TryModel struct {
	ctx       context.Context
	predictor Predictor
	info      string

	input   components.TextInput
	pending bool
	last    *predictedMsg
	count   int

	width  int
	height int
}

// NewTryModel creates the model. info is shown in the header, usually the
// embedder the model was trained with.
func NewTryModel(ctx context.Context, p Predictor, info string) TryModel {
	return TryModel{
		ctx:       ctx,
		predictor: p,
		info:      info,
		input:     components.NewTextInput("Type or paste a passage and press Enter", 60),
	}
}

func (m TryModel) Init() tea.Cmd {
	return m.input.Init()
}

func (m TryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(msg.Width - 8)
		return m, nil

	case predictedMsg:
		m.pending = false
		m.last = &msg
		if msg.Err == nil {
			m.count++
		}
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := m.input.Value()
			if text == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.input.Reset()
			return m, m.predict(text)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m TryModel) predict(text string) tea.Cmd {
	ctx, p := m.ctx, m.predictor
	return func() tea.Msg {
		out := predictedMsg{Text: text}

		preds, err := p.Predict(ctx, []string{text})
		if err != nil {
			out.Err = err
			return out
		}
		out.Prediction = &preds[0]

		// Short passages still get a label; only the statistics are skipped.
		r, err := readability.Analyze(text)
		if err != nil && !errors.Is(err, readability.ErrTextTooShort) {
			out.Err = err
			return out
		}
		out.Readability = r
		return out
	}
}

func (m TryModel) View() tea.View {
	if m.width == 0 || m.height == 0 {
		return tea.NewView(m.body(80))
	}
	frame := layout.Frame{
		Title: "try",
		Info:  m.info,
		Hints: []layout.KeyHint{{Key: "Enter", Desc: "Predict"}, {Key: "Esc", Desc: "Quit"}},
	}
	v := tea.NewView(frame.Render(m.body(m.width), m.width, m.height))
	v.AltScreen = true
	return v
}

func (m TryModel) body(width int) string {
	var b strings.Builder
	b.WriteString("\n  " + m.input.View() + "\n\n")

	switch {
	case m.pending:
		b.WriteString("  " + theme.Hint.Render("Predicting...") + "\n")
	case m.last == nil:
		b.WriteString("  " + theme.Hint.Render(fmt.Sprintf("Labels: %s", strings.Join(m.predictor.Classes(), ", "))) + "\n")
	case m.last.Err != nil:
		b.WriteString("  " + theme.Bad.Render("Error: "+m.last.Err.Error()) + "\n")
	default:
		b.WriteString(m.result(width))
	}
	return b.String()
}

func (m TryModel) result(width int) string {
	r := m.last
	var b strings.Builder

	excerpt := r.Text
	if len([]rune(excerpt)) > 120 {
		excerpt = string([]rune(excerpt)[:120]) + "..."
	}
	b.WriteString(theme.Hint.Render(excerpt) + "\n\n")
	b.WriteString(components.Prediction(r.Prediction.Label, r.Prediction.Votes, m.predictor.Classes()))
	if r.Readability != nil {
		b.WriteString("\n\n" + components.Readability(r.Readability))
	} else {
		b.WriteString("\n\n" + theme.Hint.Render("Too short for readability statistics."))
	}

	return theme.Card.Width(min(max(width-4, 40), 90)).Render(b.String()) + "\n" +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  %d passage(s) graded", m.count))
}

// RunTry starts the interactive loop.
func RunTry(ctx context.Context, p Predictor, info string) error {
	_, err := tea.NewProgram(NewTryModel(ctx, p, info), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
