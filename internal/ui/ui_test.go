package ui

import (
	"image/color"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/crate/internal/covers"
	"github.com/Akashdeep-Patra/crate/internal/grid"
	"github.com/Akashdeep-Patra/crate/internal/library"
)

func TestGridLayoutGeometry(t *testing.T) {
	g := GridLayout{OriginX: 0, OriginY: 2, Width: 3*TileW + 2*GapX, Height: 30}
	require.Equal(t, 3, g.Cols())

	x, y := g.Origin(4)
	assert.Equal(t, TileW+GapX, x)
	assert.Equal(t, 2+TileH+GapY, y)

	r := g.TileRect(4)
	assert.Equal(t, float64(x+TileW-1), r.Right)
	assert.Equal(t, float64(y+TileH-1), r.Bottom)

	i, ok := g.IndexAt(x, y, 6)
	require.True(t, ok)
	assert.Equal(t, 4, i)
	i, ok = g.IndexAt(x+TileW-1, y+TileH-1, 6)
	require.True(t, ok)
	assert.Equal(t, 4, i)

	_, ok = g.IndexAt(x+TileW, y, 6) // gap
	assert.False(t, ok)
	_, ok = g.IndexAt(x, y, 4) // past the last tile
	assert.False(t, ok)
	_, ok = g.IndexAt(0, 0, 6) // above the viewport
	assert.False(t, ok)
}

func TestGridLayoutScrolling(t *testing.T) {
	g := GridLayout{Width: TileW, Height: TileH}
	assert.Equal(t, 1, g.Cols())
	assert.Equal(t, 3*TileH+2*GapY, g.ContentHeight(3))
	assert.Equal(t, 2*(TileH+GapY), g.MaxScroll(3))

	g.Scroll = g.ScrollTo(2)
	assert.Equal(t, 2*(TileH+GapY), g.Scroll)
	assert.True(t, g.Visible(2))
	assert.False(t, g.Visible(0))

	i, ok := g.IndexAt(0, 0, 3)
	require.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestCanvasPlace(t *testing.T) {
	c := NewCanvas(8, 3)
	c.Place(2, 1, "ab\ncd\nef")
	c.Place(-1, 0, "XYZ")
	c.Place(6, 2, lipgloss.NewStyle().Bold(true).Render("1234"))

	lines := strings.Split(ansi.Strip(c.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "YZ      ", lines[0])
	assert.Equal(t, "  ab    ", lines[1])
	assert.Equal(t, "  cd  12", lines[2])
	for _, l := range strings.Split(c.String(), "\n") {
		assert.Equal(t, 8, ansi.StringWidth(l))
	}
}

func TestRenderTileSize(t *testing.T) {
	s := DefaultStyles()
	items := []grid.Item{
		grid.ProjectToItem(library.Project{ID: 1, Name: "A very long project name that overflows"}),
		grid.FolderItem{ID: "folder-2", Name: "Mixes", FolderID: 2},
		grid.TrackToItem(library.SharedTrack{ID: 3, PublicID: "t3", Title: "Hook", Artist: "Kim", SharedByUsername: "kim"}),
	}
	for _, it := range items {
		out := RenderTile(s, TileState{Item: it})
		assert.Equal(t, TileW, lipgloss.Width(out), it.ItemID())
		assert.Equal(t, TileH, lipgloss.Height(out), it.ItemID())
	}
}

func TestRenderTileStates(t *testing.T) {
	s := DefaultStyles()
	it := grid.FolderItem{ID: "folder-2", Name: "Mixes", FolderID: 2}

	hover := ansi.Strip(RenderTile(s, TileState{Item: it, Hover: true, Ghost: "Demo"}))
	assert.Contains(t, hover, "drop to merge")
	assert.Contains(t, hover, "+ Demo")
	assert.Contains(t, hover, "Mixes")

	assert.Contains(t, ansi.Strip(RenderTile(s, TileState{Item: it, Dropping: true})), "merging")
	assert.Contains(t, ansi.Strip(RenderTile(s, TileState{Item: it, Fresh: true})), "new")

	th := covers.Thumb{W: CoverW, H: CoverH, Pix: make([]color.RGBA, CoverW*CoverH)}
	out := RenderTile(s, TileState{Item: it, Cover: &th})
	assert.Equal(t, TileH, lipgloss.Height(out))
	assert.Contains(t, out, "▀")
}
