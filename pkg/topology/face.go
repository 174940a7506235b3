package topology

import "github.com/go-gl/mathgl/mgl64"

// UV is a texture coordinate.
type UV = mgl64.Vec2

// Face is one output triangle. Normal is the normal of the polygon it was
// cut from, shared by all three corners.
type Face struct {
	Points  [3]Point
	Normal  Point
	Texture Binding
	UV      [3]UV
}

// Area returns the triangle's area.
func (f Face) Area() float64 {
	return f.Points[1].Sub(f.Points[0]).Cross(f.Points[2].Sub(f.Points[0])).Len() / 2
}
