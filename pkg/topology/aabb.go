package topology

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Point
}

// NewAABB returns the box enclosing points. It reports false for an empty
// slice.
func NewAABB(points []Point) (AABB, bool) {
	if len(points) == 0 {
		return AABB{}, false
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.extend(p)
	}
	return box, true
}

func (a AABB) extend(p Point) AABB {
	for i := range 3 {
		a.Min[i] = math.Min(a.Min[i], p[i])
		a.Max[i] = math.Max(a.Max[i], p[i])
	}
	return a
}

// Grow returns a expanded by margin on every side.
func (a AABB) Grow(margin float64) AABB {
	m := Point{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}
