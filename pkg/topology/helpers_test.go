package topology

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

const testEps = 1e-6

// axisFace returns a map face on the plane where coordinate axis equals c,
// facing the sign direction.
func axisFace(axis, sign, c int, tex string) FaceDescriptor {
	var u, v, p1 [3]int
	u[(axis+1)%3] = 1
	v[(axis+2)%3] = 1
	if sign < 0 {
		u, v = v, u
	}
	p1[axis] = c
	return FaceDescriptor{
		Points:    [3][3]int{p1, addInt(p1, v), addInt(p1, u)},
		Texture:   tex,
		Transform: DefaultTextureTransform(),
	}
}

func addInt(a, b [3]int) [3]int {
	return [3]int{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// boxBrush describes an axis-aligned box with every face textured tex.
func boxBrush(lo, hi [3]int, tex string) BrushDescriptor {
	var d BrushDescriptor
	for axis := range 3 {
		d.Faces = append(d.Faces,
			axisFace(axis, 1, hi[axis], tex),
			axisFace(axis, -1, lo[axis], tex),
		)
	}
	return d
}

// square returns a counter-clockwise square in the z=0 plane.
func square(size float64) Polygon {
	return Polygon{
		Normal: Point{0, 0, 1},
		Points: []Point{{0, 0, 0}, {size, 0, 0}, {size, size, 0}, {0, size, 0}},
	}
}

func assertPointNear(t *testing.T, want, got Point) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], testEps, "component %d: want %v, got %v", i, want, got)
	}
}

func assertUVNear(t *testing.T, want, got mgl64.Vec2) {
	t.Helper()
	assert.InDelta(t, want[0], got[0], testEps, "u: want %v, got %v", want, got)
	assert.InDelta(t, want[1], got[1], testEps, "v: want %v, got %v", want, got)
}

func isAxisDirection(n Point) bool {
	hits := 0
	for _, c := range n {
		if math.Abs(math.Abs(c)-1) < testEps {
			hits++
		} else if math.Abs(c) > testEps {
			return false
		}
	}
	return hits == 1
}

func sumFaceArea(faces []Face) float64 {
	total := 0.0
	for _, f := range faces {
		total += f.Area()
	}
	return total
}

// assertClosed checks that every directed edge of every polygon is matched
// by the reversed edge of exactly one other polygon.
func assertClosed(t *testing.T, polys []Polygon) {
	t.Helper()
	type key struct{ a, b [3]float64 }
	round := func(p Point) [3]float64 {
		return [3]float64{math.Round(p[0]*64) / 64, math.Round(p[1]*64) / 64, math.Round(p[2]*64) / 64}
	}
	owner := map[key]int{}
	for i, p := range polys {
		n := len(p.Points)
		for j := range p.Points {
			k := key{round(p.Points[j]), round(p.Points[(j+1)%n])}
			_, dup := owner[k]
			assert.False(t, dup, "directed edge %v used twice", k)
			owner[k] = i
		}
	}
	for k, i := range owner {
		j, ok := owner[key{k.b, k.a}]
		if assert.True(t, ok, "edge %v of polygon %d has no twin", k, i) {
			assert.NotEqual(t, i, j)
		}
	}
}
