// Package theme holds the colors and styles shared by the styled reports
// and the interactive views.
package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#0EA5E9")
	Accent    = lipgloss.Color("#F59E0B")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#FACC15")
	Error     = lipgloss.Color("#EF4444")
	Text      = lipgloss.Color("#E2E8F0")
	TextDim   = lipgloss.Color("#64748B")
	BgCard    = lipgloss.Color("#0F172A")
	Border    = lipgloss.Color("#475569")
)

func fg(c color.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	Title    = fg(Primary).Bold(true)
	Subtitle = fg(TextDim)
	Body     = fg(Text)
	Hint     = fg(TextDim).Italic(true)
	Label    = fg(TextDim).Width(22)

	Good    = fg(Success).Bold(true)
	Bad     = fg(Error).Bold(true)
	Pending = fg(TextDim)
	Active  = fg(Accent).Bold(true)

	Card = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Border).Padding(1, 2)

	TableHeader = fg(Primary).Bold(true).Padding(0, 1)
	TableCell   = fg(Text).Padding(0, 1)
	TableTotal  = fg(TextDim).Padding(0, 1)

	ProgressFilled = lipgloss.NewStyle().Background(Secondary)
	ProgressEmpty  = lipgloss.NewStyle().Background(Border)
)

// Score colors a metric in [0, 1]: green from 0.8, yellow from 0.5.
func Score(v float64) color.Color {
	switch {
	case v >= 0.8:
		return Success
	case v >= 0.5:
		return Warning
	}
	return Error
}

// Calm to hot.
var levelColors = []color.Color{Success, Secondary, Warning, Accent, Error, Primary}

// LevelColor is the color of the i-th label of a sorted label set.
func LevelColor(i int) color.Color {
	return levelColors[max(i, 0)%len(levelColors)]
}
