package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds all colours for the application.
type Theme struct {
	Bg            lipgloss.Color
	Surface       lipgloss.Color
	SurfaceHover  lipgloss.Color
	Border        lipgloss.Color
	BorderFocused lipgloss.Color

	Text        lipgloss.Color
	TextMuted   lipgloss.Color
	TextSubtle  lipgloss.Color
	TextInverse lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Folder  lipgloss.Color
	Project lipgloss.Color
	Shared  lipgloss.Color
	Track   lipgloss.Color

	DropTarget lipgloss.Color
	Fresh      lipgloss.Color
	Restored   lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
}

// DarkTheme returns the default dark theme (Catppuccin Mocha).
func DarkTheme() Theme {
	return Theme{
		Bg:            lipgloss.Color("#1e1e2e"),
		Surface:       lipgloss.Color("#282840"),
		SurfaceHover:  lipgloss.Color("#313152"),
		Border:        lipgloss.Color("#3b3b5c"),
		BorderFocused: lipgloss.Color("#7c7cf0"),

		Text:        lipgloss.Color("#cdd6f4"),
		TextMuted:   lipgloss.Color("#9399b2"),
		TextSubtle:  lipgloss.Color("#6c7086"),
		TextInverse: lipgloss.Color("#1e1e2e"),

		Primary:   lipgloss.Color("#89b4fa"),
		Secondary: lipgloss.Color("#b4befe"),
		Accent:    lipgloss.Color("#f5c2e7"),

		Folder:  lipgloss.Color("#f9e2af"),
		Project: lipgloss.Color("#89b4fa"),
		Shared:  lipgloss.Color("#cba6f7"),
		Track:   lipgloss.Color("#94e2d5"),

		DropTarget: lipgloss.Color("#fab387"),
		Fresh:      lipgloss.Color("#a6e3a1"),
		Restored:   lipgloss.Color("#89dceb"),

		Success: lipgloss.Color("#a6e3a1"),
		Warning: lipgloss.Color("#f9e2af"),
		Error:   lipgloss.Color("#f38ba8"),
		Info:    lipgloss.Color("#89b4fa"),
	}
}

// LightTheme returns the light theme (Catppuccin Latte).
func LightTheme() Theme {
	return Theme{
		Bg:            lipgloss.Color("#eff1f5"),
		Surface:       lipgloss.Color("#e6e9ef"),
		SurfaceHover:  lipgloss.Color("#dce0e8"),
		Border:        lipgloss.Color("#bcc0cc"),
		BorderFocused: lipgloss.Color("#7287fd"),

		Text:        lipgloss.Color("#4c4f69"),
		TextMuted:   lipgloss.Color("#6c6f85"),
		TextSubtle:  lipgloss.Color("#9ca0b0"),
		TextInverse: lipgloss.Color("#eff1f5"),

		Primary:   lipgloss.Color("#1e66f5"),
		Secondary: lipgloss.Color("#7287fd"),
		Accent:    lipgloss.Color("#ea76cb"),

		Folder:  lipgloss.Color("#df8e1d"),
		Project: lipgloss.Color("#1e66f5"),
		Shared:  lipgloss.Color("#8839ef"),
		Track:   lipgloss.Color("#179299"),

		DropTarget: lipgloss.Color("#fe640b"),
		Fresh:      lipgloss.Color("#40a02b"),
		Restored:   lipgloss.Color("#04a5e5"),

		Success: lipgloss.Color("#40a02b"),
		Warning: lipgloss.Color("#df8e1d"),
		Error:   lipgloss.Color("#d20f39"),
		Info:    lipgloss.Color("#1e66f5"),
	}
}

// ThemeByName returns the named theme, falling back to dark.
func ThemeByName(name string) Theme {
	if name == "light" {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles holds pre-computed lipgloss styles derived from a Theme.
type Styles struct {
	Theme Theme

	// Layout
	Header    lipgloss.Style
	Crumb     lipgloss.Style
	CrumbLast lipgloss.Style
	StatusBar lipgloss.Style
	HelpBar   lipgloss.Style

	// Tiles
	Tile         lipgloss.Style
	TileSelected lipgloss.Style
	TileDragging lipgloss.Style
	TileHover    lipgloss.Style
	TileDropping lipgloss.Style
	TileFresh    lipgloss.Style
	TileRestored lipgloss.Style
	TileEmptied  lipgloss.Style
	TileName     lipgloss.Style
	TileMeta     lipgloss.Style
	Ghost        lipgloss.Style

	// Text
	Title   lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	KeyBind lipgloss.Style
	KeyDesc lipgloss.Style

	// Dialogs
	Dialog       lipgloss.Style
	DialogTitle  lipgloss.Style
	DialogButton lipgloss.Style
}

// NewStyles builds all styles from the given theme.
func NewStyles(t Theme) Styles {
	s := Styles{Theme: t}

	s.Header = lipgloss.NewStyle().Padding(0, 1).Background(t.Surface)
	s.Crumb = lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	s.CrumbLast = lipgloss.NewStyle().Foreground(t.Primary).Background(t.Surface).Bold(true)
	s.StatusBar = lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Padding(0, 1)
	s.HelpBar = lipgloss.NewStyle().Foreground(t.TextSubtle).Padding(0, 1)

	tile := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	s.Tile = tile.BorderForeground(t.Border)
	s.TileSelected = tile.BorderForeground(t.BorderFocused)
	s.TileDragging = tile.BorderForeground(t.Accent).Faint(true)
	s.TileHover = tile.Border(lipgloss.ThickBorder()).BorderForeground(t.DropTarget)
	s.TileDropping = tile.Border(lipgloss.DoubleBorder()).BorderForeground(t.DropTarget)
	s.TileFresh = tile.BorderForeground(t.Fresh)
	s.TileRestored = tile.BorderForeground(t.Restored)
	s.TileEmptied = tile.BorderForeground(t.TextSubtle).Faint(true)
	s.TileName = lipgloss.NewStyle().Foreground(t.Text).Bold(true)
	s.TileMeta = lipgloss.NewStyle().Foreground(t.TextMuted)
	s.Ghost = lipgloss.NewStyle().Foreground(t.DropTarget).Italic(true)

	s.Title = lipgloss.NewStyle().Foreground(t.Text).Bold(true)
	s.Body = lipgloss.NewStyle().Foreground(t.Text)
	s.Muted = lipgloss.NewStyle().Foreground(t.TextMuted)
	s.Bold = lipgloss.NewStyle().Foreground(t.Text).Bold(true)
	s.KeyBind = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	s.KeyDesc = lipgloss.NewStyle().Foreground(t.TextMuted)

	s.Dialog = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(t.Primary).Padding(1, 3).Width(56)
	s.DialogTitle = lipgloss.NewStyle().Foreground(t.Text).Bold(true)
	s.DialogButton = lipgloss.NewStyle().Foreground(t.TextInverse).Background(t.Primary).Bold(true)

	return s
}

// DefaultStyles returns styles using the dark theme.
func DefaultStyles() Styles {
	return NewStyles(DarkTheme())
}
