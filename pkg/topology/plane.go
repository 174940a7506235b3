package topology

import "github.com/go-gl/mathgl/mgl64"

// Side is the result of classifying a point against a plane.
type Side int

const (
	OnPlane Side = iota
	Front
	Back
)

func (s Side) String() string {
	switch s {
	case OnPlane:
		return "on"
	case Front:
		return "front"
	case Back:
		return "back"
	}
	return "unknown"
}

// Plane is an oriented brush plane with its texture binding. Normal points
// out of the solid, so the kept half-space is Back.
type Plane struct {
	Points  [3]Point
	Normal  Point
	Texture Binding
}

// NewPlane builds a plane through the counter-clockwise points a, b, c.
func NewPlane(a, b, c Point, tex Binding) Plane {
	return Plane{
		Points:  [3]Point{a, b, c},
		Normal:  TriangleNormal(a, b, c),
		Texture: tex,
	}
}

// SignedDistance returns the distance of p along the plane normal.
func (pl Plane) SignedDistance(p Point) float64 {
	return pl.Normal.Dot(p.Sub(pl.Points[0]))
}

// Classify reports which half-space p lies in, treating points within
// PlaneEpsilon of the plane as on it.
func (pl Plane) Classify(p Point) Side {
	d := pl.SignedDistance(p)
	switch {
	case d > PlaneEpsilon:
		return Front
	case d < -PlaneEpsilon:
		return Back
	}
	return OnPlane
}

// Intersect returns the point where segment a-b crosses the plane and the
// interpolation parameter t along it. Rounding can push t slightly outside
// [0, 1] for nearly tangent segments; t is clamped so the result always lies
// on the segment. A segment parallel to the plane returns a with t = 0.
func (pl Plane) Intersect(a, b Point) (Point, float64) {
	da := pl.SignedDistance(a)
	db := pl.SignedDistance(b)
	denom := da - db
	if denom == 0 {
		return a, 0
	}
	t := mgl64.Clamp(da/denom, 0, 1)
	return a.Add(b.Sub(a).Mul(t)), t
}
