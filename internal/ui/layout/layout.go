// Package layout frames full-screen views with a title bar and a key hint
// bar.
package layout

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/readlevel/internal/ui/theme"
)

const (
	MinWidth  = 60
	MinHeight = 16
)

type KeyHint struct {
	Key  string
	Desc string
}

// Frame describes the chrome around a view's body.
type Frame struct {
	Title string
	Info  string // right-aligned in the title bar, e.g. the embedder
	Hints []KeyHint
}

// Fits reports whether a width x height terminal can show a frame.
func Fits(width, height int) bool {
	return width >= MinWidth && height >= MinHeight
}

// Render lays body out between the title and hint bars, filling height.
// Terminals that are too small get a resize notice instead.
func (f Frame) Render(body string, width, height int) string {
	if !Fits(width, height) {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Body.Render(fmt.Sprintf("Resize the terminal to at least %dx%d (now %dx%d).", MinWidth, MinHeight, width, height)))
	}

	bar := lipgloss.NewStyle().Width(width).Border(lipgloss.RoundedBorder()).BorderForeground(theme.Border)

	name := theme.Title.Render("readlevel") + theme.Body.Render("  "+f.Title)
	info := theme.Subtitle.Render(f.Info)
	gap := max(width-4-lipgloss.Width(name)-lipgloss.Width(info), 1)
	top := bar.Render(name + strings.Repeat(" ", gap) + info)

	keys := make([]string, len(f.Hints))
	for i, h := range f.Hints {
		keys[i] = fg(theme.Text).Bold(true).Render(h.Key) + " " + fg(theme.TextDim).Render(h.Desc)
	}
	bottom := bar.Render("  " + strings.Join(keys, "   "))

	h := max(height-lipgloss.Height(top)-lipgloss.Height(bottom), 0)
	return lipgloss.JoinVertical(lipgloss.Left, top, lipgloss.NewStyle().Width(width).Height(h).Render(body), bottom)
}

func fg(c color.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}
