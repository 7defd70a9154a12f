// Package ui provides shared TUI styling, the tile grid geometry, an
// ANSI-aware canvas, and tile rendering.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/grid"
)

// Tile geometry in terminal cells, borders included.
const (
	TileW = 24
	TileH = 10
	GapX  = 2
	GapY  = 1
)

// Cover art area inside a tile: CoverW columns by CoverRows rows, each row
// painting two pixel rows with half blocks.
const (
	CoverW    = TileW - 4
	CoverRows = 4
	CoverH    = CoverRows * 2
)

// GridLayout places tiles in a wrapping grid inside a viewport. Origin is
// the viewport's top-left screen cell; Scroll is the number of content
// rows scrolled off the top.
type GridLayout struct {
	OriginX, OriginY int
	Width, Height    int
	Scroll           int
}

// Cols returns how many tiles fit in a row (at least one).
func (g GridLayout) Cols() int {
	return max(1, (g.Width+GapX)/(TileW+GapX))
}

// Origin returns the screen cell of tile i's top-left corner.
func (g GridLayout) Origin(i int) (x, y int) {
	cols := g.Cols()
	return g.OriginX + (i%cols)*(TileW+GapX),
		g.OriginY + (i/cols)*(TileH+GapY) - g.Scroll
}

// TileRect returns tile i's screen box. Bounds are inclusive cells.
func (g GridLayout) TileRect(i int) grid.Rect {
	x, y := g.Origin(i)
	return grid.RectAt(x, y, TileW-1, TileH-1)
}

// IndexAt returns the tile under screen cell (x, y) among n tiles.
func (g GridLayout) IndexAt(x, y, n int) (int, bool) {
	if x < g.OriginX || y < g.OriginY || x >= g.OriginX+g.Width || y >= g.OriginY+g.Height {
		return 0, false
	}
	cx, cy := x-g.OriginX, y-g.OriginY+g.Scroll
	col, row := cx/(TileW+GapX), cy/(TileH+GapY)
	if col >= g.Cols() || cx%(TileW+GapX) >= TileW || cy%(TileH+GapY) >= TileH {
		return 0, false
	}
	i := row*g.Cols() + col
	if i >= n {
		return 0, false
	}
	return i, true
}

// ContentHeight returns the rows n tiles occupy.
func (g GridLayout) ContentHeight(n int) int {
	if n == 0 {
		return 0
	}
	rows := (n + g.Cols() - 1) / g.Cols()
	return rows*(TileH+GapY) - GapY
}

// MaxScroll returns the largest useful Scroll for n tiles.
func (g GridLayout) MaxScroll(n int) int {
	return max(0, g.ContentHeight(n)-g.Height)
}

// Visible reports whether any row of tile i is inside the viewport.
func (g GridLayout) Visible(i int) bool {
	_, y := g.Origin(i)
	return y+TileH > g.OriginY && y < g.OriginY+g.Height
}

// ScrollTo returns the Scroll that brings tile i fully into view.
func (g GridLayout) ScrollTo(i int) int {
	top := (i / g.Cols()) * (TileH + GapY)
	switch {
	case top < g.Scroll:
		return top
	case top+TileH > g.Scroll+g.Height:
		return top + TileH - g.Height
	}
	return g.Scroll
}

// PlaceCentre centres content both horizontally and vertically within the given dimensions.
func PlaceCentre(width, height int, content string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Truncate truncates s to maxLen runes, appending "…" if truncated.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// PadRight pads s with spaces to the given width.
func PadRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// RenderKeyValue renders a "key: value" pair with styles.
func RenderKeyValue(styles Styles, key, value string) string {
	return styles.KeyBind.Render(key) + " " + styles.KeyDesc.Render(value)
}

// JoinHorizontal joins items horizontally with a separator.
func JoinHorizontal(sep string, items ...string) string {
	var filtered []string
	for _, item := range items {
		if item != "" {
			filtered = append(filtered, item)
		}
	}
	return strings.Join(filtered, sep)
}
