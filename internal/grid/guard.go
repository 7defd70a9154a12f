package grid

import (
	"sync"
	"time"
)

// Guard marks a mutation as in flight across asynchronous gaps. It counts
// holders, so overlapping operations keep it held until the last one lets
// go. A successful release keeps the guard held for a settle window so the
// authoritative refetch can land before reconciliation resumes; a failure
// lets go at once, settle windows included.
type Guard struct {
	clock Clock

	mu       sync.Mutex
	held     int
	settling map[*settleWindow]struct{}
	onIdle   []func()
}

// settleWindow is one hold waiting out its settle period.
type settleWindow struct{ timer Timer }

// NewGuard creates an idle guard.
func NewGuard(clock Clock) *Guard {
	if clock == nil {
		clock = SystemClock
	}
	return &Guard{clock: clock, settling: make(map[*settleWindow]struct{})}
}

// InProgress reports whether any holder remains.
func (g *Guard) InProgress() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held > 0
}

// Hold takes the guard.
func (g *Guard) Hold() {
	g.mu.Lock()
	g.held++
	g.mu.Unlock()
}

// Release lets go after settle has elapsed.
func (g *Guard) Release(settle time.Duration) {
	if settle <= 0 {
		g.Abort()
		return
	}
	g.mu.Lock()
	w := &settleWindow{}
	g.settling[w] = struct{}{}
	w.timer = g.clock.AfterFunc(settle, func() { g.settled(w) })
	g.mu.Unlock()
}

func (g *Guard) settled(w *settleWindow) {
	g.mu.Lock()
	if _, ok := g.settling[w]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.settling, w)
	g.letGoLocked(1)
}

// Abort lets go of one hold immediately.
func (g *Guard) Abort() {
	g.mu.Lock()
	g.letGoLocked(1)
}

// Fail lets go of the caller's hold and ends every pending settle window.
// Holders still running keep the guard.
func (g *Guard) Fail() {
	g.mu.Lock()
	n := 1
	for w := range g.settling {
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(g.settling, w)
		n++
	}
	g.letGoLocked(n)
}

// letGoLocked drops n holds and runs the idle callbacks when none remain.
// It is entered with mu held and returns with it released.
func (g *Guard) letGoLocked(n int) {
	if g.held == 0 {
		g.mu.Unlock()
		return
	}
	g.held = max(0, g.held-n)
	var fns []func()
	if g.held == 0 {
		fns = append(fns, g.onIdle...)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// OnIdle registers fn to run every time the last holder lets go.
func (g *Guard) OnIdle(fn func()) {
	g.mu.Lock()
	g.onIdle = append(g.onIdle, fn)
	g.mu.Unlock()
}
