package ui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/covers"
	"github.com/Akashdeep-Patra/crate/internal/grid"
)

// TileState is everything a tile's look depends on.
type TileState struct {
	Item     grid.Item
	Selected bool
	Dragging bool
	// Hover marks the tile under the dragged one.
	Hover bool
	// Ghost names the incoming tile while the stable hover lasts.
	Ghost    string
	Dropping bool
	Fresh    bool
	Restored bool
	Emptied  bool
	Cover    *covers.Thumb
}

const innerW = TileW - 4

// RenderTile draws one tile, exactly TileW×TileH cells.
func RenderTile(s Styles, st TileState) string {
	t := s.Theme
	icon, accent := kindGlyph(t, st.Item)

	var art string
	switch {
	case st.Ghost != "":
		art = lipgloss.NewStyle().Width(innerW).Height(CoverRows).
			Align(lipgloss.Center, lipgloss.Center).
			Render(s.Ghost.Render("+ " + Truncate(st.Ghost, innerW-2)))
	case st.Cover != nil && st.Cover.W == CoverW && st.Cover.H == CoverH:
		art = halfBlocks(*st.Cover)
	default:
		art = lipgloss.NewStyle().Width(innerW).Height(CoverRows).
			Background(t.Surface).Foreground(accent).
			Align(lipgloss.Center, lipgloss.Center).
			Render(icon)
	}

	name := lipgloss.NewStyle().Foreground(accent).Render(icon) + " " +
		s.TileName.Render(Truncate(st.Item.Label(), innerW-2))
	meta := s.TileMeta.Render(Truncate(subtitle(st.Item), innerW))

	body := strings.Join([]string{art, name, meta, statusLine(s, st)}, "\n")
	return tileStyle(s, st).Width(TileW - 2).Height(TileH - 2).Render(body)
}

func tileStyle(s Styles, st TileState) lipgloss.Style {
	switch {
	case st.Dropping:
		return s.TileDropping
	case st.Hover:
		return s.TileHover
	case st.Dragging:
		return s.TileDragging
	case st.Emptied:
		return s.TileEmptied
	case st.Selected:
		return s.TileSelected
	case st.Restored:
		return s.TileRestored
	case st.Fresh:
		return s.TileFresh
	}
	return s.Tile
}

func statusLine(s Styles, st TileState) string {
	t := s.Theme
	switch {
	case st.Dropping:
		return lipgloss.NewStyle().Foreground(t.DropTarget).Bold(true).Render("merging…")
	case st.Hover:
		return lipgloss.NewStyle().Foreground(t.DropTarget).Render("drop to merge")
	case st.Emptied:
		return s.Muted.Render("emptying…")
	case st.Restored:
		return lipgloss.NewStyle().Foreground(t.Restored).Render("restored")
	case st.Fresh:
		return lipgloss.NewStyle().Foreground(t.Fresh).Render("new")
	}
	return ""
}

func kindGlyph(t Theme, it grid.Item) (string, lipgloss.Color) {
	switch it := it.(type) {
	case grid.FolderItem:
		return "▤", t.Folder
	case grid.TrackItem:
		return "♪", t.Track
	case grid.ProjectItem:
		if it.Shared {
			return "◇", t.Shared
		}
		return "◆", t.Project
	}
	return "?", t.TextMuted
}

func subtitle(it grid.Item) string {
	switch it := it.(type) {
	case grid.FolderItem:
		switch n := len(it.Items); {
		case !it.Persisted():
			return fmt.Sprintf("%d items · unsaved", n)
		case n == 1:
			return "1 item"
		case n > 1:
			return fmt.Sprintf("%d items", n)
		}
		return "folder"
	case grid.TrackItem:
		if it.Track.Artist != "" {
			return it.Track.Artist + " · from " + it.SharedBy
		}
		return "from " + it.SharedBy
	case grid.ProjectItem:
		if it.Shared {
			return "shared by " + it.SharedBy
		}
		if it.Project.OwnerUsername != "" {
			return it.Project.OwnerUsername
		}
		return "project"
	}
	return ""
}

// halfBlocks paints a thumbnail with upper half blocks: each cell shows
// two pixels, the top one as foreground and the bottom one as background.
func halfBlocks(th covers.Thumb) string {
	rows := make([]string, 0, th.H/2)
	for y := 0; y+1 < th.H; y += 2 {
		var b strings.Builder
		for x := range th.W {
			b.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(th.At(x, y))).
				Background(hexColor(th.At(x, y+1))).
				Render("▀"))
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
