package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/ui"
)

// Crumb is one folder on the path from the root to the current scope.
type Crumb struct {
	FolderID int64 // 0 = root
	Name     string
}

// CrumbZone maps a header X range to a crumb for mouse clicking.
type CrumbZone struct {
	FolderID int64
	Start    int // inclusive X
	End      int // exclusive X
}

const crumbSep = " › "

// crumbLabels shortens the path until it fits: middle crumbs collapse to
// "…" first, then every label is cut.
func crumbLabels(crumbs []Crumb, width int) []string {
	labels := make([]string, len(crumbs))
	for i, c := range crumbs {
		labels[i] = c.Name
	}
	fits := func() bool {
		w := 2 // header padding
		for i, l := range labels {
			if i > 0 {
				w += lipgloss.Width(crumbSep)
			}
			w += lipgloss.Width(l)
		}
		return w <= width
	}
	for i := 1; i < len(labels)-1 && !fits(); i++ {
		labels[i] = "…"
	}
	for limit := 16; limit > 1 && !fits(); limit-- {
		for i := range labels {
			labels[i] = ui.Truncate(labels[i], limit)
		}
	}
	return labels
}

// CrumbZones returns the clickable ranges of the header.
func CrumbZones(crumbs []Crumb, width int) []CrumbZone {
	labels := crumbLabels(crumbs, width)
	zones := make([]CrumbZone, 0, len(crumbs))
	col := 1 // left padding
	for i, c := range crumbs {
		if i > 0 {
			col += lipgloss.Width(crumbSep)
		}
		w := lipgloss.Width(labels[i])
		zones = append(zones, CrumbZone{FolderID: c.FolderID, Start: col, End: col + w})
		col += w
	}
	return zones
}

// CrumbAt returns the folder whose crumb covers header column x.
func CrumbAt(zones []CrumbZone, x int) (int64, bool) {
	for _, z := range zones {
		if x >= z.Start && x < z.End {
			return z.FolderID, true
		}
	}
	return 0, false
}

// RenderBreadcrumbs renders the one-line header with the folder path.
func RenderBreadcrumbs(styles ui.Styles, crumbs []Crumb, width int) string {
	labels := crumbLabels(crumbs, width)
	sep := styles.Crumb.Render(crumbSep)
	parts := make([]string, len(labels))
	for i, l := range labels {
		if i == len(labels)-1 {
			parts[i] = styles.CrumbLast.Render(l)
		} else {
			parts[i] = styles.Crumb.Render(l)
		}
	}
	return styles.Header.Width(width).MaxHeight(1).Render(strings.Join(parts, sep))
}
