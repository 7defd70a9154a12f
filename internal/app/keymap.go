package app

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/Akashdeep-Patra/crate/internal/ui/components"
)

// KeyMap defines the keybindings of the grid.
type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Home    key.Binding
	End     key.Binding
	Open    key.Binding
	Parent  key.Binding
	Back    key.Binding

	Rename key.Binding
	Empty  key.Binding
	Leave  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/↑", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/↓", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/←", "left")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/→", "right")),
		Home:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		End:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open folder")),
		Parent:  key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "up a folder")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),

		Rename: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "rename folder")),
		Empty:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "empty folder")),
		Leave:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "leave shared")),
	}
}

// HelpSections groups the bindings for the help overlay. Mouse gestures
// have no binding and are listed by hand.
func (k KeyMap) HelpSections() []components.HelpSection {
	return []components.HelpSection{
		{Title: "Navigation", Entries: components.BindingEntries(k.Up, k.Down, k.Left, k.Right, k.Home, k.End, k.Open, k.Parent)},
		{Title: "Mouse", Entries: []components.HelpEntry{
			{Key: "drag", Desc: "move a tile"},
			{Key: "drop on tile", Desc: "group into a folder"},
			{Key: "wheel", Desc: "scroll"},
			{Key: "click crumb", Desc: "jump to a parent folder"},
		}},
		{Title: "Folders", Entries: components.BindingEntries(k.Rename, k.Empty)},
		{Title: "Sharing", Entries: components.BindingEntries(k.Leave)},
		{Title: "General", Entries: components.BindingEntries(k.Refresh, k.Back, k.Help, k.Quit)},
	}
}
