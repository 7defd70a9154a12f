package grid

import (
	"slices"
	"sync"
)

// Point is a position in screen coordinates.
type Point struct{ X, Y float64 }

// Rect is an axis-aligned box. Bounds are inclusive on every side.
type Rect struct{ Left, Top, Right, Bottom float64 }

// RectAt builds a rect from an origin and a size.
func RectAt(x, y, w, h int) Rect {
	return Rect{Left: float64(x), Top: float64(y), Right: float64(x + w), Bottom: float64(y + h)}
}

// Center returns the rect's midpoint.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// Contains reports whether p lies within r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Surface is a rendered tile. Bounds reports false while it is not mounted.
type Surface interface {
	Bounds() (Rect, bool)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func() (Rect, bool)

// Bounds calls f.
func (f SurfaceFunc) Bounds() (Rect, bool) { return f() }

// Registry maps tile ids to their rendered surfaces and answers
// "which tile is under this point". Iteration follows first-registration
// order; when boxes overlap, the last one in that order wins.
type Registry struct {
	mu       sync.Mutex
	order    []string
	surfaces map[string]Surface
	rects    map[string]Rect
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		surfaces: make(map[string]Surface),
		rects:    make(map[string]Rect),
	}
}

// Register associates a surface with a tile id. A nil surface unregisters.
// Re-registering keeps the id's original position in iteration order.
func (r *Registry) Register(id string, s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s == nil {
		if _, ok := r.surfaces[id]; !ok {
			return
		}
		delete(r.surfaces, id)
		delete(r.rects, id)
		if i := slices.Index(r.order, id); i >= 0 {
			r.order = slices.Delete(r.order, i, i+1)
		}
		return
	}
	if _, ok := r.surfaces[id]; !ok {
		r.order = append(r.order, id)
	}
	r.surfaces[id] = s
}

// MeasureAll replaces the cached rects with fresh measurements of every
// mounted surface.
func (r *Registry) MeasureAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	rects := make(map[string]Rect, len(r.order))
	for _, id := range r.order {
		if b, ok := r.surfaces[id].Bounds(); ok {
			rects[id] = b
		}
	}
	r.rects = rects
}

// Rect returns the last measured box of a tile.
func (r *Registry) Rect(id string) (Rect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rects[id]
	return b, ok
}

// FindContaining returns the id of the tile whose measured box contains p,
// skipping exclude. It returns "" when nothing matches.
func (r *Registry) FindContaining(p Point, exclude string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := ""
	for _, id := range r.order {
		if id == exclude {
			continue
		}
		if b, ok := r.rects[id]; ok && b.Contains(p) {
			found = id
		}
	}
	return found
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
