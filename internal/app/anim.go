package app

import (
	"context"
	"time"

	"github.com/charmbracelet/harmonica"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akashdeep-Patra/crate/internal/grid"
	"github.com/Akashdeep-Patra/crate/internal/ui"
)

const animFPS = 60

// Spring tuning: critically damped, settles well inside the hover window.
const (
	springFrequency = 8.0
	springDamping   = 1.0
)

// dropAnim springs the dragged tile onto its drop target, then commits.
type dropAnim struct {
	id     string
	drop   grid.Drop
	x, y   float64
	vx, vy float64
	tx, ty float64
	spring harmonica.Spring
	until  time.Time
}

type animFrameMsg struct{}

// dropDoneMsg reports the outcome of a committed drop.
type dropDoneMsg struct {
	drop grid.Drop
	err  error
}

func animFrame() tea.Cmd {
	return tea.Tick(time.Second/animFPS, func(time.Time) tea.Msg { return animFrameMsg{} })
}

// startDrop begins the settle animation for an accepted drop.
func (m *Model) startDrop(id string, d grid.Drop) tea.Cmd {
	from, _ := m.board.rect(id)
	to, ok := m.board.rect(d.Target.ItemID())
	if !ok {
		to = from
	}
	m.anim = &dropAnim{
		id:     id,
		drop:   d,
		x:      from.Left,
		y:      from.Top,
		tx:     to.Left,
		ty:     to.Top,
		spring: harmonica.NewSpring(harmonica.FPS(animFPS), springFrequency, springDamping),
		until:  m.now().Add(m.deps.Config.HoverSettle),
	}
	return animFrame()
}

// stepAnim advances the animation one frame. When the settle window is
// over it hands the drop to commitDrop.
func (m *Model) stepAnim() tea.Cmd {
	a := m.anim
	if a == nil {
		return nil
	}
	a.x, a.vx = a.spring.Update(a.x, a.vx, a.tx)
	a.y, a.vy = a.spring.Update(a.y, a.vy, a.ty)
	m.board.set(a.id, grid.RectAt(int(a.x+0.5), int(a.y+0.5), ui.TileW-1, ui.TileH-1))
	if m.now().Before(a.until) {
		return animFrame()
	}
	return m.commitDrop(a.drop)
}

// commitDrop runs the drop's mutations off the update loop.
func (m *Model) commitDrop(d grid.Drop) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		return dropDoneMsg{drop: d, err: e.CommitDrop(context.Background(), d)}
	}
}
