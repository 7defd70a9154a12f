package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/ui"
)

// RenderScrollbar returns a vertical scrollbar track of the given height
// for content of total rows scrolled by offset. The thumb is proportional
// to the visible portion.
//
// Returns an empty string if all content fits (no scrolling needed).
func RenderScrollbar(styles ui.Styles, height, total, offset int) string {
	if total <= height || height < 1 {
		return ""
	}

	t := styles.Theme

	thumbSize := min(height, max(1, height*height/total))

	maxOffset := height - thumbSize
	thumbStart := 0
	if scrollable := total - height; scrollable > 0 {
		thumbStart = offset * maxOffset / scrollable
	}
	thumbStart = min(max(thumbStart, 0), maxOffset)

	thumbStyle := lipgloss.NewStyle().Foreground(t.Primary)
	trackStyle := lipgloss.NewStyle().Foreground(t.Border)

	var b strings.Builder
	b.Grow(height * 4)
	for i := range height {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i >= thumbStart && i < thumbStart+thumbSize {
			b.WriteString(thumbStyle.Render("█"))
		} else {
			b.WriteString(trackStyle.Render("░"))
		}
	}
	return b.String()
}
