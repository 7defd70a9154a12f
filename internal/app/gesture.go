package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akashdeep-Patra/crate/internal/grid"
	"github.com/Akashdeep-Patra/crate/internal/ui"
	"github.com/Akashdeep-Patra/crate/internal/ui/components"
)

// dragThreshold is how far (in cells) the pointer must travel after a
// press before the press becomes a drag.
const dragThreshold = 2

// board holds the screen box of every mounted tile. The hit-test registry
// reads it through one Surface per tile; the dragged tile's box follows
// the pointer.
type board struct {
	mu      sync.Mutex
	rects   map[string]grid.Rect
	mounted map[string]struct{}
}

func newBoard() *board {
	return &board{rects: make(map[string]grid.Rect), mounted: make(map[string]struct{})}
}

func (b *board) set(id string, r grid.Rect) {
	b.mu.Lock()
	b.rects[id] = r
	b.mu.Unlock()
}

func (b *board) rect(id string) (grid.Rect, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rects[id]
	return r, ok
}

func (b *board) surface(id string) grid.Surface {
	return grid.SurfaceFunc(func() (grid.Rect, bool) { return b.rect(id) })
}

// mount lays items out with l, registering new tiles and unregistering
// tiles that left. The tile named floating keeps its current box.
func (b *board) mount(reg *grid.Registry, items []grid.Item, l ui.GridLayout, floating string) {
	seen := make(map[string]struct{}, len(items))
	b.mu.Lock()
	var added []string
	for i, it := range items {
		id := it.ItemID()
		seen[id] = struct{}{}
		if id != floating {
			b.rects[id] = l.TileRect(i)
		}
		if _, ok := b.mounted[id]; !ok {
			b.mounted[id] = struct{}{}
			added = append(added, id)
		}
	}
	var removed []string
	for id := range b.mounted {
		if _, ok := seen[id]; !ok {
			removed = append(removed, id)
			delete(b.mounted, id)
			delete(b.rects, id)
		}
	}
	b.mu.Unlock()

	for _, id := range added {
		reg.Register(id, b.surface(id))
	}
	for _, id := range removed {
		reg.Register(id, nil)
	}
}

// press is a left-button press that has not become a drag yet.
type press struct {
	id           string
	startX       int
	startY       int
	grabX, grabY int // pointer offset inside the tile
	dragging     bool
}

func (p *press) travelled(x, y int) bool {
	return max(abs(x-p.startX), abs(y-p.startY)) >= dragThreshold
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// handleMouse processes mouse events: crumb clicks, the drag gesture, and
// the scroll wheel.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.anim != nil {
		// A drop is settling; the pointer has nothing to do until it lands.
		return m, nil
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.scrollBy(-(ui.TileH + ui.GapY))
		return m, nil
	case msg.Button == tea.MouseButtonWheelDown:
		m.scrollBy(ui.TileH + ui.GapY)
		return m, nil

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if msg.Y < headerRows {
			if id, ok := components.CrumbAt(m.crumbZones(), msg.X); ok && id != m.scope {
				cmd := m.navigate(id)
				return m, cmd
			}
			return m, nil
		}
		items := m.engine.Items()
		i, ok := m.layout().IndexAt(msg.X, msg.Y, len(items))
		if !ok {
			return m, nil
		}
		m.cursor = i
		x, y := m.layout().Origin(i)
		m.press = &press{
			id:     items[i].ItemID(),
			startX: msg.X, startY: msg.Y,
			grabX: msg.X - x, grabY: msg.Y - y,
		}
		return m, nil

	case msg.Action == tea.MouseActionMotion && m.press != nil:
		p := m.press
		if !p.dragging {
			if !p.travelled(msg.X, msg.Y) {
				return m, nil
			}
			m.engine.DragStart(p.id)
			if m.engine.Session().Dragging != p.id {
				m.press = nil
				return m, nil
			}
			p.dragging = true
		}
		m.board.set(p.id, grid.RectAt(msg.X-p.grabX, msg.Y-p.grabY, ui.TileW-1, ui.TileH-1))
		m.engine.DragMove(p.id)
		return m, nil

	case msg.Action == tea.MouseActionRelease && m.press != nil:
		p := m.press
		m.press = nil
		if !p.dragging {
			return m, nil
		}
		d, ok := m.engine.Release()
		if !ok {
			m.remount()
			return m, nil
		}
		cmd := m.startDrop(p.id, d)
		return m, cmd
	}
	return m, nil
}

// cancelDrag abandons a gesture in progress.
func (m *Model) cancelDrag() {
	if m.press != nil && m.press.dragging {
		m.engine.DragCancel()
	}
	m.press = nil
	m.remount()
}
