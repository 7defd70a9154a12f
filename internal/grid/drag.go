package grid

import (
	"sync"
	"time"
)

// State is the phase of a drag gesture.
type State int

// Drag states.
const (
	StateIdle State = iota
	StateDragging
	StateDropping
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateDropping:
		return "dropping"
	default:
		return "idle"
	}
}

// Session is the observable drag state. Empty strings mean "none".
//
// Hover is the tile under the dragged tile's center right now. StableHover
// follows Hover but lingers for the settle window after the pointer leaves
// a target, so target visuals can fade out instead of flickering.
type Session struct {
	Dragging     string
	Hover        string
	StableHover  string
	DroppingInto string
}

// State derives the gesture phase.
func (s Session) State() State {
	switch {
	case s.DroppingInto != "":
		return StateDropping
	case s.Dragging != "":
		return StateDragging
	default:
		return StateIdle
	}
}

// DragMachine tracks a single drag gesture over a Registry.
// It is safe for concurrent use; settle timers fire on the Clock's goroutine.
type DragMachine struct {
	reg      *Registry
	clock    Clock
	settle   time.Duration
	onChange func()

	mu    sync.Mutex
	s     Session
	timer Timer
	// gen invalidates settle callbacks that fire after a newer transition.
	gen uint64
}

// NewDragMachine creates an idle machine. onChange may be nil.
func NewDragMachine(reg *Registry, clock Clock, settle time.Duration, onChange func()) *DragMachine {
	if clock == nil {
		clock = SystemClock
	}
	return &DragMachine{reg: reg, clock: clock, settle: settle, onChange: onChange}
}

// Session returns a copy of the current state.
func (m *DragMachine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

// Start begins dragging id. Rects are measured once up front.
func (m *DragMachine) Start(id string) {
	m.reg.MeasureAll()
	m.mu.Lock()
	m.s.Dragging = id
	m.s.Hover = ""
	m.s.DroppingInto = ""
	m.mu.Unlock()
	m.changed()
}

// Move re-measures every tile and hit-tests the center of the dragged
// tile's own box. A new target becomes the stable target at once; losing
// the target clears the stable target only after the settle window.
func (m *DragMachine) Move(id string) {
	m.reg.MeasureAll()
	box, ok := m.reg.Rect(id)

	m.mu.Lock()
	if m.s.Dragging == "" || m.s.DroppingInto != "" {
		m.mu.Unlock()
		return
	}
	if !ok {
		m.s.Hover = ""
		m.mu.Unlock()
		m.changed()
		return
	}
	target := m.reg.FindContaining(box.Center(), m.s.Dragging)
	m.s.Hover = target
	m.stopTimerLocked()
	if target != "" {
		m.s.StableHover = target
	} else {
		m.scheduleStableClearLocked()
	}
	m.mu.Unlock()
	m.changed()
}

// BeginDrop enters the dropping phase with target as the drop destination.
func (m *DragMachine) BeginDrop(target string) {
	m.mu.Lock()
	m.s.DroppingInto = target
	m.mu.Unlock()
	m.changed()
}

// Finish ends a drop: everything is cleared and the stable target fades
// out after the settle window.
func (m *DragMachine) Finish() {
	m.mu.Lock()
	m.s.Dragging = ""
	m.s.Hover = ""
	m.s.DroppingInto = ""
	m.stopTimerLocked()
	m.scheduleStableClearLocked()
	m.mu.Unlock()
	m.changed()
}

// Cancel abandons the gesture. Calling it while idle is harmless.
func (m *DragMachine) Cancel() {
	m.Finish()
}

func (m *DragMachine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *DragMachine) scheduleStableClearLocked() {
	if m.s.StableHover == "" {
		return
	}
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.settle, func() {
		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.timer = nil
		m.s.StableHover = ""
		m.mu.Unlock()
		m.changed()
	})
}

func (m *DragMachine) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}
