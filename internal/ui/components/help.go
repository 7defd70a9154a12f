package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/ui"
)

// HelpEntry is a single key-description pair for the help overlay.
type HelpEntry struct {
	Key  string
	Desc string
}

// HelpSection is a titled group of entries.
type HelpSection struct {
	Title   string
	Entries []HelpEntry
}

// BindingEntries turns key bindings into entries using their help text.
// Disabled bindings are skipped.
func BindingEntries(bindings ...key.Binding) []HelpEntry {
	out := make([]HelpEntry, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		out = append(out, HelpEntry{Key: h.Key, Desc: h.Desc})
	}
	return out
}

// RenderHelp renders a full-screen help overlay.
func RenderHelp(styles ui.Styles, title string, sections []HelpSection, width, height int) string {
	t := styles.Theme
	boxW := min(70, width-4)

	var body strings.Builder
	body.WriteString(lipgloss.NewStyle().
		Foreground(t.Primary).Bold(true).
		Align(lipgloss.Center).
		Width(boxW-6).
		Render(title) + "\n\n")

	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Width(16).Align(lipgloss.Right)
	descStyle := lipgloss.NewStyle().Foreground(t.Text)

	for _, s := range sections {
		if len(s.Entries) == 0 {
			continue
		}
		body.WriteString(sectionStyle.Render(s.Title) + "\n")
		for _, e := range s.Entries {
			body.WriteString("  " + keyStyle.Render(e.Key) + "  " + descStyle.Render(e.Desc) + "\n")
		}
		body.WriteString("\n")
	}

	overlay := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(t.Primary).
		Padding(1, 3).
		Width(boxW).
		MaxHeight(height - 2).
		Render(strings.TrimRight(body.String(), "\n"))

	return ui.PlaceCentre(width, height, overlay)
}
