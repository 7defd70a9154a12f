package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/common"
	"github.com/Akashdeep-Patra/crate/internal/config"
	"github.com/Akashdeep-Patra/crate/internal/covers"
	"github.com/Akashdeep-Patra/crate/internal/grid"
	"github.com/Akashdeep-Patra/crate/internal/library"
	"github.com/Akashdeep-Patra/crate/internal/logging"
	"github.com/Akashdeep-Patra/crate/internal/ui"
	"github.com/Akashdeep-Patra/crate/internal/ui/components"
)

const (
	headerRows = 1
	statusRows = 1
	rootName   = "Library"
)

// Dialog tags.
const (
	tagRename = "rename"
	tagEmpty  = "empty"
	tagLeave  = "leave"
)

// Deps are the collaborators the model runs against.
type Deps struct {
	Service library.Service
	Config  *config.Config
	// Covers may be nil; tiles then show their kind glyph.
	Covers *covers.Loader
	Logger *slog.Logger
	// Clock drives the engine's timers. Nil uses the system clock.
	Clock grid.Clock
}

// Model is the top-level Bubbletea model: one scope's tile grid.
type Model struct {
	deps   Deps
	styles ui.Styles
	keys   KeyMap
	now    func() time.Time

	width  int
	height int
	scroll int
	cursor int

	scope  int64
	crumbs []components.Crumb
	engine *grid.Engine
	board  *board
	press  *press
	anim   *dropAnim

	showHelp  bool
	statusMsg string
	statusErr bool
	statusExp time.Time
	dialog    *components.Dialog

	// changes wakes the update loop when the engine or the cover cache
	// changed from a timer or a background goroutine; refreshes carries
	// post-mutation refetch requests.
	changes   chan struct{}
	refreshes chan struct{}
}

// New creates the model showing the folder scope (0 = root).
func New(deps Deps, scope int64) Model {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = grid.SystemClock
	}
	m := Model{
		deps:      deps,
		styles:    ui.NewStyles(ui.ThemeByName(deps.Config.Theme)),
		keys:      DefaultKeyMap(),
		now:       time.Now,
		scope:     scope,
		crumbs:    []components.Crumb{{Name: rootName}},
		changes:   make(chan struct{}, 1),
		refreshes: make(chan struct{}, 1),
	}
	if deps.Covers != nil {
		changes := m.changes
		deps.Covers.OnLoad = func(string) { notify(changes) }
	}
	m.engine, m.board = m.newEngine(scope)
	return m
}

// newEngine builds the engine and its persistence for one scope.
func (m Model) newEngine(scope int64) (*grid.Engine, *board) {
	cfg := m.deps.Config
	guard := grid.NewGuard(m.deps.Clock)
	changes, refreshes := m.changes, m.refreshes

	var e *grid.Engine
	actions := grid.NewActions(m.deps.Service, guard, grid.ActionsConfig{
		Scope:   scope,
		Settle:  cfg.DropSettle,
		Lookup:  func(pub string) (grid.ProjectItem, bool) { return e.LookupProject(pub) },
		Refresh: func() { notify(refreshes) },
		Logger:  m.deps.Logger,
	})
	opts := grid.Options{
		Scope:          scope,
		Backend:        actions,
		Guard:          guard,
		Clock:          m.deps.Clock,
		Logger:         m.deps.Logger,
		HoverSettle:    cfg.HoverSettle,
		HighlightTTL:   cfg.HighlightDuration,
		ReconcileQuiet: cfg.ReconcileQuiet,
		DropSettle:     cfg.DropSettle,
		CoverWait:      cfg.CoverWait,
		OnChange:       func() { notify(changes) },
	}
	if m.deps.Covers != nil {
		opts.Covers = m.deps.Covers
	}
	e = grid.New(opts)
	return e, newBoard()
}

// Init triggers the first fetch and starts the background listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetch(),
		m.fetchPath(),
		m.poll(),
		listen(m.changes, common.EngineChangedMsg{}),
		listen(m.refreshes, refreshMsg{}),
	)
}

// Update processes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Dialog has exclusive key input when visible.
	if m.dialog != nil && m.dialog.Visible() {
		if _, isKey := msg.(tea.KeyMsg); isKey {
			d, cmd := m.dialog.Update(msg)
			m.dialog = &d
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.remount()
		return m, nil

	case tea.MouseMsg:
		if m.showHelp || m.dialog != nil {
			return m, nil
		}
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case common.SnapshotMsg:
		if msg.Scope != m.scope {
			return m, nil
		}
		if msg.Err != nil {
			m.deps.Logger.Warn("snapshot fetch failed", "scope", msg.Scope, "error", msg.Err)
			m.setStatus(fmt.Sprintf("refresh failed: %v", msg.Err), true)
			return m, nil
		}
		m.engine.Sync(msg.Snapshot)
		return m, m.loadCovers(msg.Snapshot)

	case pathMsg:
		if msg.scope != m.scope {
			return m, nil
		}
		if msg.err != nil {
			// The folder is gone; fall back to the root.
			m.deps.Logger.Warn("scope unavailable", "scope", msg.scope, "error", msg.err)
			cmd := m.navigate(0)
			m.setStatus("folder no longer exists", true)
			return m, cmd
		}
		m.crumbs = msg.crumbs
		return m, nil

	case common.EngineChangedMsg:
		m.remount()
		return m, listen(m.changes, common.EngineChangedMsg{})

	case common.RefreshMsg:
		return m, m.fetch()

	case refreshMsg:
		return m, tea.Batch(m.fetch(), listen(m.refreshes, refreshMsg{}))

	case pollMsg:
		return m, tea.Batch(m.fetch(), m.poll())

	case animFrameMsg:
		cmd := m.stepAnim()
		return m, cmd

	case dropDoneMsg:
		m.anim = nil
		m.remount()
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("drop failed: %v", msg.err), true)
		}
		return m, nil

	case opDoneMsg:
		m.remount()
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(msg.info, false)
		return m, nil

	case components.DialogResult:
		m.dialog = nil
		return m, m.dialogDone(msg)

	case common.ErrMsg:
		m.setStatus(msg.Err.Error(), true)
		return m, nil

	case common.InfoMsg:
		m.setStatus(msg.Text, false)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Back, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	n := len(m.engine.Items())
	cols := m.layout().Cols()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.cancelDrag()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.fetch(), m.fetchPath(), common.CmdInfo("Refreshing…"))

	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1, n)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1, n)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-cols, n)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(cols, n)
	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-n, n)
	case key.Matches(msg, m.keys.End):
		m.moveCursor(n, n)

	case key.Matches(msg, m.keys.Open):
		if f, ok := m.selected().(grid.FolderItem); ok {
			if !f.Persisted() {
				m.setStatus("folder is not saved yet", true)
				return m, nil
			}
			cmd := m.navigate(f.FolderID)
			return m, cmd
		}
	case key.Matches(msg, m.keys.Parent):
		if len(m.crumbs) > 1 {
			cmd := m.navigate(m.crumbs[len(m.crumbs)-2].FolderID)
			return m, cmd
		}

	case key.Matches(msg, m.keys.Rename):
		if f, ok := m.selected().(grid.FolderItem); ok {
			d := components.NewInputDialog(m.styles, "Rename folder", f.Name, tagRename, f.ID)
			m.dialog = &d
		}
	case key.Matches(msg, m.keys.Empty):
		if f, ok := m.selected().(grid.FolderItem); ok {
			cmd := m.confirm(tagEmpty, f.ID, "Empty folder",
				fmt.Sprintf("Move everything in %q up one level and delete the folder?", f.Name))
			return m, cmd
		}
	case key.Matches(msg, m.keys.Leave):
		switch it := m.selected().(type) {
		case grid.TrackItem:
			cmd := m.confirm(tagLeave, it.ID, "Leave track",
				fmt.Sprintf("Stop receiving %q from %s?", it.Track.Title, it.SharedBy))
			return m, cmd
		case grid.ProjectItem:
			if it.Shared {
				cmd := m.confirm(tagLeave, it.ID, "Leave project",
					fmt.Sprintf("Leave %q shared by %s?", it.Project.Name, it.SharedBy))
				return m, cmd
			}
			m.setStatus("only shared projects can be left", true)
			return m, nil
		}
	}
	return m, nil
}

// confirm opens a destructive confirmation, or acts right away when
// confirmations are off.
func (m *Model) confirm(tag, target, title, message string) tea.Cmd {
	if !m.deps.Config.ConfirmDestructive {
		return m.dialogDone(components.DialogResult{Confirmed: true, Tag: tag, Target: target})
	}
	d := components.NewConfirmDialog(m.styles, title, message, tag, target, true)
	m.dialog = &d
	return nil
}

func (m Model) dialogDone(res components.DialogResult) tea.Cmd {
	if !res.Confirmed {
		return nil
	}
	switch res.Tag {
	case tagRename:
		return m.renameFolder(res.Target, res.Value)
	case tagEmpty:
		return m.emptyFolder(res.Target)
	case tagLeave:
		return m.leave(res.Target)
	}
	return nil
}

// navigate switches the grid to another folder scope with a fresh engine.
func (m *Model) navigate(scope int64) tea.Cmd {
	m.cancelDrag()
	m.anim = nil
	m.scope = scope
	m.cursor, m.scroll = 0, 0
	m.engine, m.board = m.newEngine(scope)
	if scope == 0 {
		m.crumbs = []components.Crumb{{Name: rootName}}
	}
	return tea.Batch(m.fetch(), m.fetchPath())
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusErr = isErr
	d := 3 * time.Second
	if isErr {
		d = 5 * time.Second
	}
	m.statusExp = m.now().Add(d)
}

// ── Layout ──────────────────────────────────────────────────────────────────

func (m Model) layout() ui.GridLayout {
	return ui.GridLayout{
		OriginX: 1,
		OriginY: headerRows,
		Width:   max(ui.TileW, m.width-3), // 1 margin + scrollbar column
		Height:  max(1, m.height-headerRows-statusRows),
		Scroll:  m.scroll,
	}
}

func (m Model) crumbZones() []components.CrumbZone {
	return components.CrumbZones(m.crumbs, m.width)
}

// remount clamps cursor and scroll to the current items and re-registers
// tile boxes. The dragged or animating tile keeps its floating box.
func (m *Model) remount() {
	items := m.engine.Items()
	m.cursor = min(max(m.cursor, 0), max(len(items)-1, 0))
	m.scroll = min(max(m.scroll, 0), m.layout().MaxScroll(len(items)))
	m.board.mount(m.engine.Registry(), items, m.layout(), m.floating())
}

func (m Model) floating() string {
	if m.anim != nil {
		return m.anim.id
	}
	if m.press != nil && m.press.dragging {
		return m.press.id
	}
	return ""
}

func (m *Model) scrollBy(delta int) {
	m.scroll += delta
	m.remount()
}

func (m *Model) moveCursor(delta, n int) {
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.scroll = m.layout().ScrollTo(m.cursor)
	m.remount()
}

func (m Model) selected() grid.Item {
	items := m.engine.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return nil
	}
	return items[m.cursor]
}

// ── View ────────────────────────────────────────────────────────────────────

// View renders the entire UI. This is a pure function; no I/O.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showHelp {
		return components.RenderHelp(m.styles, "crate", m.keys.HelpSections(), m.width, m.height)
	}

	header := components.RenderBreadcrumbs(m.styles, m.crumbs, m.width)
	items := m.engine.Items()
	l := m.layout()

	canvas := ui.NewCanvas(m.width, l.Height)
	if len(items) == 0 {
		canvas.Place(0, 0, ui.PlaceCentre(m.width, l.Height, m.styles.Muted.Render("Nothing here yet. Drag tiles onto each other to make folders.")))
	}
	sess := m.engine.Session()
	float := m.floating()
	var floatTile string
	var floatRect grid.Rect
	for i, it := range items {
		st := m.tileState(it, i, sess)
		if it.ItemID() == float {
			floatTile = ui.RenderTile(m.styles, st)
			floatRect, _ = m.board.rect(float)
			continue
		}
		if !l.Visible(i) {
			continue
		}
		x, y := l.Origin(i)
		canvas.Place(x, y-l.OriginY, ui.RenderTile(m.styles, st))
	}
	if floatTile != "" {
		canvas.Place(int(floatRect.Left), int(floatRect.Top)-l.OriginY, floatTile)
	}
	if bar := components.RenderScrollbar(m.styles, l.Height, l.ContentHeight(len(items)), m.scroll); bar != "" {
		canvas.Place(m.width-1, 0, bar)
	}

	statusBar := components.RenderStatusBar(m.styles, m.statusData(items, sess), m.width)
	screen := lipgloss.JoinVertical(lipgloss.Left, header, canvas.String(), statusBar)

	if m.dialog != nil && m.dialog.Visible() {
		screen = ui.PlaceCentre(m.width, m.height, m.dialog.View())
	}
	return screen
}

func (m Model) tileState(it grid.Item, i int, sess grid.Session) ui.TileState {
	id := it.ItemID()
	st := ui.TileState{
		Item:     it,
		Selected: i == m.cursor,
		Dragging: sess.Dragging == id,
		Hover:    sess.Hover == id && sess.Dragging != id,
		Dropping: sess.DroppingInto == id,
		Fresh:    m.engine.IsNew(id),
		Restored: m.engine.IsRestored(id),
		Emptied:  m.engine.IsEmptied(id),
	}
	if sess.StableHover == id && sess.Dragging != "" && sess.Dragging != id {
		if src, ok := m.engine.Item(sess.Dragging); ok {
			st.Ghost = src.Label()
		}
	}
	if src := coverOf(it); src != "" && m.deps.Covers != nil {
		if th, ok := m.deps.Covers.Thumb(src); ok {
			st.Cover = &th
		}
	}
	return st
}

func coverOf(it grid.Item) string {
	switch it := it.(type) {
	case grid.ProjectItem:
		return it.Project.CoverURL
	case grid.TrackItem:
		return it.Track.CoverURL
	case grid.FolderItem:
		for _, p := range it.Items {
			if p.CoverURL != "" {
				return p.CoverURL
			}
		}
	}
	return ""
}

func (m Model) statusData(items []grid.Item, sess grid.Session) components.StatusBarData {
	data := components.StatusBarData{
		Location: m.deps.Service.Location(),
		Busy:     m.engine.Guard().InProgress(),
	}
	for _, it := range items {
		switch it.Kind() {
		case grid.KindFolder:
			data.Folders++
		case grid.KindProject:
			data.Projects++
		case grid.KindTrack:
			data.Tracks++
		}
	}
	if sess.Dragging != "" {
		if it, ok := m.engine.Item(sess.Dragging); ok {
			data.Dragging = it.Label()
		}
		if it, ok := m.engine.Item(sess.Hover); ok {
			data.Target = it.Label()
		}
	}
	if m.statusMsg != "" && m.now().Before(m.statusExp) {
		data.Message = m.statusMsg
		data.IsError = m.statusErr
	}
	return data
}
