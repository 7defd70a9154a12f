package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindContainingLastRegisteredWins(t *testing.T) {
	reg := NewRegistry()
	b := newBoard()
	b.register(reg, "a", RectAt(0, 0, 10, 10))
	b.register(reg, "b", RectAt(5, 5, 10, 10))
	reg.MeasureAll()

	p := Point{X: 7, Y: 7}
	assert.Equal(t, "b", reg.FindContaining(p, ""))

	// Re-registering keeps the original position in iteration order.
	reg.Register("a", b.surface("a"))
	reg.MeasureAll()
	assert.Equal(t, "b", reg.FindContaining(p, ""))

	assert.Equal(t, "a", reg.FindContaining(p, "b"))

	reg.Register("b", nil)
	reg.MeasureAll()
	assert.Equal(t, "a", reg.FindContaining(p, ""))
	assert.Equal(t, 1, reg.Len())
}

func TestFindContainingEdgesAreInclusive(t *testing.T) {
	reg := NewRegistry()
	b := newBoard()
	b.register(reg, "a", RectAt(0, 0, 10, 4))
	reg.MeasureAll()

	assert.Equal(t, "a", reg.FindContaining(Point{X: 10, Y: 4}, ""))
	assert.Equal(t, "a", reg.FindContaining(Point{X: 0, Y: 0}, ""))
	assert.Empty(t, reg.FindContaining(Point{X: 10.5, Y: 2}, ""))
}

func TestUnmountedSurfacesAreSkipped(t *testing.T) {
	reg := NewRegistry()
	b := newBoard()
	b.register(reg, "a", RectAt(0, 0, 10, 10))
	reg.MeasureAll()
	_, ok := reg.Rect("a")
	require.True(t, ok)

	b.unmount("a")
	reg.MeasureAll()
	_, ok = reg.Rect("a")
	assert.False(t, ok)
	assert.Empty(t, reg.FindContaining(Point{X: 5, Y: 5}, ""))
}

func TestRectCenter(t *testing.T) {
	assert.Equal(t, Point{X: 6, Y: 3.5}, RectAt(2, 1, 8, 5).Center())
}
