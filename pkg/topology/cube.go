package topology

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultSeedHalfExtent is the half-size of the cube every brush is carved
// from. It must exceed the extent of any real brush.
const DefaultSeedHalfExtent = 8192.0

// SeedCube returns the six outward-facing faces of an axis-aligned cube
// centred on the origin.
func SeedCube(halfExtent float64) []Polygon {
	h := halfExtent
	top := Polygon{
		Normal: Point{0, 0, 1},
		Points: []Point{{h, h, h}, {-h, h, h}, {-h, -h, h}, {h, -h, h}},
	}

	rotations := []mgl64.Mat4{
		mgl64.Ident4(),
		mgl64.HomogRotate3DY(math.Pi / 2),
		mgl64.HomogRotate3DY(math.Pi),
		mgl64.HomogRotate3DY(3 * math.Pi / 2),
		mgl64.HomogRotate3DX(math.Pi / 2),
		mgl64.HomogRotate3DX(3 * math.Pi / 2),
	}

	cube := make([]Polygon, 0, len(rotations))
	for _, m := range rotations {
		face := Polygon{
			Normal: snap(mgl64.TransformNormal(top.Normal, m), 1),
			Points: make([]Point, len(top.Points)),
		}
		for i, p := range top.Points {
			face.Points[i] = snap(mgl64.TransformCoordinate(p, m), h)
		}
		cube = append(cube, face)
	}
	return cube
}

// snap rounds every component of v to a multiple of unit, removing the
// rounding noise a rotation leaves on axis-aligned values.
func snap(v Point, unit float64) Point {
	for i := range v {
		v[i] = math.Round(v[i]/unit) * unit
	}
	return v
}
