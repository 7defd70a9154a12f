package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akashdeep-Patra/crate/internal/common"
	"github.com/Akashdeep-Patra/crate/internal/grid"
	"github.com/Akashdeep-Patra/crate/internal/library"
	"github.com/Akashdeep-Patra/crate/internal/ui/components"
)

// fetchTimeout bounds one snapshot fetch.
const fetchTimeout = 10 * time.Second

// pathMsg carries the folder chain from the root to a scope.
type pathMsg struct {
	scope  int64
	crumbs []components.Crumb
	err    error
}

type pollMsg struct{}

// refreshMsg is a refetch requested by a finished mutation.
type refreshMsg struct{}

// opDoneMsg reports a finished folder or sharing operation.
type opDoneMsg struct {
	info string
	err  error
}

// fetch loads the authoritative snapshot of the current scope.
func (m Model) fetch() tea.Cmd {
	svc, scope := m.deps.Service, m.scope
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		snap, err := library.Load(ctx, svc, scope)
		return common.SnapshotMsg{Scope: scope, Snapshot: snap, Err: err}
	}
}

// fetchPath resolves the breadcrumb chain of the current scope.
func (m Model) fetchPath() tea.Cmd {
	svc, scope := m.deps.Service, m.scope
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		var chain []components.Crumb
		seen := make(map[int64]bool)
		for id := scope; id != 0; {
			if seen[id] {
				return pathMsg{scope: scope, err: fmt.Errorf("folder %d: %w", id, library.ErrConflict)}
			}
			seen[id] = true
			f, err := svc.Folder(ctx, id)
			if err != nil {
				return pathMsg{scope: scope, err: err}
			}
			chain = append([]components.Crumb{{FolderID: f.ID, Name: f.Name}}, chain...)
			id = f.ParentID
		}
		return pathMsg{scope: scope, crumbs: append([]components.Crumb{{Name: rootName}}, chain...)}
	}
}

// loadCovers warms the cover cache for a snapshot in the background.
func (m Model) loadCovers(snap library.Snapshot) tea.Cmd {
	loader := m.deps.Covers
	if loader == nil {
		return nil
	}
	var srcs []string
	for _, p := range snap.Projects {
		if p.CoverURL != "" {
			srcs = append(srcs, p.CoverURL)
		}
	}
	for _, t := range snap.SharedTracks {
		if t.CoverURL != "" {
			srcs = append(srcs, t.CoverURL)
		}
	}
	var missing []string
	for _, src := range srcs {
		if _, ok := loader.Thumb(src); !ok {
			missing = append(missing, src)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	log := m.deps.Logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		for _, src := range missing {
			if _, err := loader.Load(ctx, src); err != nil {
				log.Debug("cover unavailable", "src", src, "error", err)
			}
		}
		return nil
	}
}

func (m Model) poll() tea.Cmd {
	if m.deps.Config.PollInterval <= 0 {
		return nil
	}
	return tea.Tick(m.deps.Config.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

// listen turns one signal on ch into msg.
func listen(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

// notify is a non-blocking, coalescing send.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ── Folder and sharing operations ───────────────────────────────────────────

func (m Model) emptyFolder(itemID string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		err := e.EmptyFolder(context.Background(), itemID)
		return opDoneMsg{info: "Folder emptied", err: err}
	}
}

func (m Model) renameFolder(itemID, name string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		err := e.RenameFolder(context.Background(), itemID, name)
		return opDoneMsg{info: "Folder renamed", err: err}
	}
}

func (m Model) leave(itemID string) tea.Cmd {
	e := m.engine
	it, ok := e.Item(itemID)
	if !ok {
		return common.CmdErr(fmt.Errorf("leave %s: %w", itemID, grid.ErrUnknownItem))
	}
	return func() tea.Msg {
		var err error
		if _, isTrack := it.(grid.TrackItem); isTrack {
			err = e.LeaveSharedTrack(context.Background(), itemID)
		} else {
			err = e.LeaveSharedProject(context.Background(), itemID)
		}
		return opDoneMsg{info: "Left " + it.Label(), err: err}
	}
}
