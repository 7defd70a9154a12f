package common

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// ── Custom messages ─────────────────────────────────────────────────────────

// RefreshMsg asks for an authoritative refetch of the current scope.
type RefreshMsg struct{}

// SnapshotMsg carries a fetched snapshot for one scope.
type SnapshotMsg struct {
	Scope    int64
	Snapshot library.Snapshot
	Err      error
}

// EngineChangedMsg signals that the grid engine's state changed and the
// view should be redrawn.
type EngineChangedMsg struct{}

// ErrMsg carries an error to be displayed.
type ErrMsg struct{ Err error }

// InfoMsg carries an informational message.
type InfoMsg struct{ Text string }

// CmdErr creates a tea.Cmd that sends an ErrMsg.
func CmdErr(err error) tea.Cmd {
	return func() tea.Msg { return ErrMsg{Err: err} }
}

// CmdInfo creates a tea.Cmd that sends an InfoMsg.
func CmdInfo(text string) tea.Cmd {
	return func() tea.Msg { return InfoMsg{Text: text} }
}
