package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/ui"
)

// StatusBarData carries the info displayed in the bottom status bar.
type StatusBarData struct {
	Location string // library location (db file or server)
	Folders  int
	Projects int
	Tracks   int
	Dragging string // label of the tile being dragged
	Target   string // label of the tile under it
	Busy     bool   // a mutation holds the guard
	Message  string // transient info/error message
	IsError  bool
}

// RenderStatusBar renders the bottom status bar with visual sections
// separated by dim vertical bars.
//
// Wide (>= 60):   ▤ 2  ◆ 5  ♪ 1  │  ⇢ Demo → Mixes  │  ● saving     library.db
// Narrow (< 60):   ▤ 2  ◆ 5  ♪ 1  │  ⇢ Demo → Mixes
func RenderStatusBar(styles ui.Styles, data StatusBarData, width int) string {
	t := styles.Theme

	sepStyle := lipgloss.NewStyle().Foreground(t.Border).Faint(true)
	sep := sepStyle.Render(" │ ")

	// ── Left sections ────────────────────────────────────────────

	counts := " " + strings.Join([]string{
		lipgloss.NewStyle().Foreground(t.Folder).Render(fmt.Sprintf("▤ %d", data.Folders)),
		lipgloss.NewStyle().Foreground(t.Project).Render(fmt.Sprintf("◆ %d", data.Projects)),
		lipgloss.NewStyle().Foreground(t.Track).Render(fmt.Sprintf("♪ %d", data.Tracks)),
	}, "  ")

	var dragSection string
	if data.Dragging != "" {
		text := "⇢ " + ui.Truncate(data.Dragging, 20)
		if data.Target != "" {
			text += " → " + ui.Truncate(data.Target, 20)
		}
		dragSection = sep + lipgloss.NewStyle().Foreground(t.DropTarget).Render(text)
	}

	var busySection string
	if data.Busy {
		busySection = sep + lipgloss.NewStyle().Foreground(t.Warning).Render("● saving")
	}

	left := counts + dragSection + busySection

	// ── Right section ────────────────────────────────────────────

	var right string
	if data.Message != "" {
		fg := t.Info
		if data.IsError {
			fg = t.Error
		}
		right = lipgloss.NewStyle().Foreground(fg).Render(data.Message) + " "
	} else if width >= 60 && data.Location != "" {
		right = lipgloss.NewStyle().Foreground(t.TextSubtle).Render(data.Location) + " "
	}

	// ── Assemble ─────────────────────────────────────────────────

	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(right)
	gap := width - 2 - leftW - rightW // StatusBar pads one cell each side
	if gap < 0 {
		gap = 1
		right = "" // drop right side if no room
	}

	content := left + strings.Repeat(" ", gap) + right

	return styles.StatusBar.Width(width).Render(content)
}
