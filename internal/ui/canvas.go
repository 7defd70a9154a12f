package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Canvas is a fixed-size block of terminal lines that styled blocks are
// stamped onto at absolute cells. Later stamps cover earlier ones.
type Canvas struct {
	w, h  int
	lines []string
}

// NewCanvas creates a blank w×h canvas.
func NewCanvas(w, h int) *Canvas {
	w, h = max(0, w), max(0, h)
	blank := strings.Repeat(" ", w)
	lines := make([]string, h)
	for i := range lines {
		lines[i] = blank
	}
	return &Canvas{w: w, h: h, lines: lines}
}

// Place stamps block with its top-left corner at (x, y). Parts outside the
// canvas are clipped; x and y may be negative.
func (c *Canvas) Place(x, y int, block string) {
	for i, seg := range strings.Split(block, "\n") {
		row := y + i
		if row < 0 || row >= c.h {
			continue
		}
		c.lines[row] = c.stamp(c.lines[row], x, seg)
	}
}

func (c *Canvas) stamp(line string, x int, seg string) string {
	if x < 0 {
		seg = ansi.TruncateLeft(seg, -x, "")
		x = 0
	}
	if x >= c.w {
		return line
	}
	seg = ansi.Truncate(seg, c.w-x, "")
	segW := ansi.StringWidth(seg)
	if segW == 0 {
		return line
	}
	left := ansi.Truncate(line, x, "")
	right := ansi.TruncateLeft(line, x+segW, "")
	return left + ansi.ResetStyle + seg + ansi.ResetStyle + right
}

// String joins the canvas lines.
func (c *Canvas) String() string {
	return strings.Join(c.lines, "\n")
}
