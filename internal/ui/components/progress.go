package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/readlevel/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar with an optional count.
type ProgressBar struct {
	Label string
	Done  int
	Total int
	Width int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, width int) ProgressBar {
	return ProgressBar{Label: label, Width: width}
}

// Percent returns the completed fraction in [0, 1].
func (p ProgressBar) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(max(float64(p.Done)/float64(p.Total), 0), 1)
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += theme.Body.Render(p.Label) + "  "
	}

	counter := ""
	if p.Total > 0 {
		counter = fmt.Sprintf("  %d/%d %3d%%", p.Done, p.Total, int(p.Percent()*100))
	}

	barWidth := max(p.Width-lipgloss.Width(result)-lipgloss.Width(counter), 4)
	filled := int(float64(barWidth) * p.Percent())
	empty := barWidth - filled

	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", empty))

	if counter != "" {
		result += theme.Subtitle.Render(counter)
	}
	return result
}
