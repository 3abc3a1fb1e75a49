package components

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/readlevel/internal/metrics"
	"github.com/abhisek/readlevel/internal/readability"
	"github.com/abhisek/readlevel/internal/ui/theme"
)

// Report renders a classification report as a styled table. Per-class F1
// is colored by score.
func Report(r *metrics.Report) string {
	if r == nil {
		return ""
	}

	width := len("weighted avg")
	for _, c := range r.Classes {
		width = max(width, len(c.Label))
	}

	cell := func(s string, w int) string { return theme.TableCell.Render(fmt.Sprintf("%*s", w, s)) }
	num := func(v float64) string { return cell(fmt.Sprintf("%.2f", v), 9) }

	var b strings.Builder
	b.WriteString(theme.TableHeader.Render(fmt.Sprintf("%*s", width, "")))
	for _, h := range []string{"precision", "recall", "f1-score", "support"} {
		b.WriteString(theme.TableHeader.Render(fmt.Sprintf("%9s", h)))
	}
	b.WriteString("\n")

	for _, c := range r.Classes {
		b.WriteString(cell(c.Label, width))
		b.WriteString(num(c.Precision))
		b.WriteString(num(c.Recall))
		b.WriteString(theme.TableCell.Foreground(theme.Score(c.F1)).Render(fmt.Sprintf("%9.2f", c.F1)))
		b.WriteString(cell(fmt.Sprintf("%d", c.Support), 9))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	total := func(s string) string { return theme.TableTotal.Render(s) }
	b.WriteString(total(fmt.Sprintf("%*s", width, "accuracy")))
	b.WriteString(total(fmt.Sprintf("%9s%9s", "", "")))
	b.WriteString(theme.TableCell.Foreground(theme.Score(r.Accuracy)).Bold(true).Render(fmt.Sprintf("%9.2f", r.Accuracy)))
	b.WriteString(total(fmt.Sprintf("%9d", r.Total)))
	b.WriteString("\n")
	for _, avg := range []metrics.ClassScores{r.MacroAvg, r.WeightedAvg} {
		b.WriteString(total(fmt.Sprintf("%*s", width, avg.Label)))
		b.WriteString(total(fmt.Sprintf("%9.2f", avg.Precision)))
		b.WriteString(total(fmt.Sprintf("%9.2f", avg.Recall)))
		b.WriteString(total(fmt.Sprintf("%9.2f", avg.F1)))
		b.WriteString(total(fmt.Sprintf("%9d", avg.Support)))
		b.WriteString("\n")
	}
	return b.String()
}

// Confusion renders a confusion matrix with true labels as rows.
func Confusion(cm *metrics.ConfusionMatrix) string {
	if cm == nil || len(cm.Labels) == 0 {
		return ""
	}
	width := len("true \\ pred")
	for _, l := range cm.Labels {
		width = max(width, len(l))
	}

	var b strings.Builder
	b.WriteString(theme.TableHeader.Render(fmt.Sprintf("%-*s", width, "true \\ pred")))
	for _, l := range cm.Labels {
		b.WriteString(theme.TableHeader.Render(fmt.Sprintf("%*s", width, l)))
	}
	b.WriteString("\n")
	for i, l := range cm.Labels {
		b.WriteString(theme.TableHeader.Render(fmt.Sprintf("%-*s", width, l)))
		for j, n := range cm.Counts[i] {
			style := theme.TableCell
			if i == j && n > 0 {
				style = style.Foreground(theme.Success)
			} else if n > 0 {
				style = style.Foreground(theme.Error)
			}
			b.WriteString(style.Render(fmt.Sprintf("%*d", width, n)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Prediction renders a predicted label with its votes, highest first.
func Prediction(label string, votes map[string]int, classes []string) string {
	idx := slices.Index(classes, label)
	badge := lipgloss.NewStyle().
		Foreground(theme.BgCard).
		Background(theme.LevelColor(idx)).
		Bold(true).
		Padding(0, 1).
		Render(label)

	order := slices.Clone(classes)
	slices.SortStableFunc(order, func(a, b string) int { return votes[b] - votes[a] })

	parts := make([]string, 0, len(order))
	for _, c := range order {
		parts = append(parts, fmt.Sprintf("%s %d", c, votes[c]))
	}
	return badge + "  " + theme.Hint.Render("votes: "+strings.Join(parts, ", "))
}

// Readability renders the readability statistics of a passage.
func Readability(r *readability.Result) string {
	if r == nil {
		return ""
	}
	rows := [][2]string{
		{"Reading level", fmt.Sprintf("grade %d", r.ReadingLevel)},
		{"Flesch-Kincaid grade", fmt.Sprintf("%.1f", r.GradeLevel)},
		{"Flesch reading ease", fmt.Sprintf("%.1f", r.ReadingEase)},
		{"Words / sentences", fmt.Sprintf("%d / %d", r.Metrics.TotalWords, r.Metrics.TotalSentences)},
		{"Avg sentence length", fmt.Sprintf("%.1f words", r.Metrics.AvgSentenceLength)},
		{"Syllables per word", fmt.Sprintf("%.2f", r.Metrics.SyllablesPerWord)},
		{"Vocabulary", fmt.Sprintf("%.2f", r.Complexity.Vocabulary)},
		{"Sentence structure", fmt.Sprintf("%.2f", r.Complexity.SentenceStructure)},
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(theme.Label.Render(row[0]))
		b.WriteString(theme.Body.Render(row[1]))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
