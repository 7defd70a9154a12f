package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const settle = 250 * time.Millisecond

func newDragFixture() (*DragMachine, *board, *fakeClock) {
	reg := NewRegistry()
	b := newBoard()
	b.register(reg, "a", RectAt(0, 0, 10, 10))
	b.register(reg, "b", RectAt(20, 0, 10, 10))
	b.register(reg, "d", RectAt(100, 100, 10, 10))
	clock := &fakeClock{}
	return NewDragMachine(reg, clock, settle, nil), b, clock
}

func TestDragHitTestsDraggedTileCenter(t *testing.T) {
	m, b, _ := newDragFixture()
	m.Start("d")
	assert.Equal(t, StateDragging, m.Session().State())

	// Box overlaps a, but its center (12,5) lies in the gap.
	b.place("d", RectAt(7, 0, 10, 10))
	m.Move("d")
	assert.Empty(t, m.Session().Hover)

	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")
	s := m.Session()
	assert.Equal(t, "a", s.Hover)
	assert.Equal(t, "a", s.StableHover)
}

func TestStableHoverSurvivesReentryWithinWindow(t *testing.T) {
	m, b, clock := newDragFixture()
	m.Start("d")

	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")
	assert.Equal(t, "a", m.Session().StableHover)

	b.place("d", RectAt(50, 50, 10, 10))
	m.Move("d")
	assert.Empty(t, m.Session().Hover)
	assert.Equal(t, "a", m.Session().StableHover)

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, "a", m.Session().StableHover)

	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")
	clock.Advance(time.Second)
	assert.Equal(t, "a", m.Session().StableHover)

	b.place("d", RectAt(50, 50, 10, 10))
	m.Move("d")
	clock.Advance(settle - time.Millisecond)
	assert.Equal(t, "a", m.Session().StableHover)
	clock.Advance(time.Millisecond)
	assert.Empty(t, m.Session().StableHover)
}

func TestStableHoverSwitchesTargetsImmediately(t *testing.T) {
	m, b, _ := newDragFixture()
	m.Start("d")
	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")
	b.place("d", RectAt(21, 1, 10, 10))
	m.Move("d")
	assert.Equal(t, "b", m.Session().Hover)
	assert.Equal(t, "b", m.Session().StableHover)
}

func TestCancelIsIdempotent(t *testing.T) {
	m, b, clock := newDragFixture()
	m.Start("d")
	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")

	m.Cancel()
	m.Cancel()
	s := m.Session()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Hover)
	assert.Equal(t, "a", s.StableHover)

	clock.Advance(settle)
	assert.Empty(t, m.Session().StableHover)

	m.Cancel()
	assert.Equal(t, Session{}, m.Session())
}

func TestUnmountedDraggedTileMeansNoTarget(t *testing.T) {
	m, b, _ := newDragFixture()
	m.Start("d")
	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")

	b.unmount("d")
	m.Move("d")
	assert.Empty(t, m.Session().Hover)
	assert.Equal(t, StateDragging, m.Session().State())
}

func TestDroppingStateIgnoresMoves(t *testing.T) {
	m, b, _ := newDragFixture()
	m.Start("d")
	b.place("d", RectAt(2, 2, 10, 10))
	m.Move("d")
	m.BeginDrop("a")
	assert.Equal(t, StateDropping, m.Session().State())

	b.place("d", RectAt(21, 1, 10, 10))
	m.Move("d")
	assert.Equal(t, "a", m.Session().Hover)

	m.Finish()
	assert.Equal(t, StateIdle, m.Session().State())
	assert.Empty(t, m.Session().DroppingInto)
}

func TestOnChangeFires(t *testing.T) {
	reg := NewRegistry()
	n := 0
	m := NewDragMachine(reg, &fakeClock{}, settle, func() { n++ })
	m.Start("x")
	m.Cancel()
	assert.Equal(t, 2, n)
}
