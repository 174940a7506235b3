package topology

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Point is a position or direction in map space.
type Point = mgl64.Vec3

const (
	// IdenticalEpsilon is the distance below which two points are the same.
	IdenticalEpsilon = 1.0 / 32.0

	// PlaneEpsilon is the half-width of the band around a plane inside
	// which a point is classified as lying on it.
	PlaneEpsilon = 1e-3

	// collinearEpsilon bounds how far the dot of two unit edge directions
	// may drift from 1 before the edges stop counting as collinear.
	collinearEpsilon = 1e-3
)

// Distance returns the euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return a.Sub(b).Len()
}

// DistanceSquared returns the squared euclidean distance between a and b.
func DistanceSquared(a, b Point) float64 {
	return a.Sub(b).LenSqr()
}

// IdenticalPoints reports whether a and b are closer than IdenticalEpsilon.
func IdenticalPoints(a, b Point) bool {
	return Distance(a, b) < IdenticalEpsilon
}

// normalize returns v scaled to unit length, or the zero vector when v has
// no length.
func normalize(v Point) Point {
	l := v.Len()
	if l == 0 {
		return Point{}
	}
	return v.Mul(1 / l)
}

// TriangleNormal returns the unit normal of the counter-clockwise triangle
// a, b, c. Degenerate triangles yield the zero vector.
func TriangleNormal(a, b, c Point) Point {
	return normalize(b.Sub(a).Cross(c.Sub(a)))
}

// angleBetween returns the angle in radians between u and v.
func angleBetween(u, v Point) float64 {
	d := normalize(u).Dot(normalize(v))
	return math.Acos(mgl64.Clamp(d, -1, 1))
}
