// Package export writes converted scenes to files other tools can read.
package export

import (
	"errors"
	"fmt"

	"github.com/chazu/quarry/pkg/scene"
	"github.com/chazu/quarry/pkg/spatial"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrEmptyScene is returned when a scene has no triangles to write.
var ErrEmptyScene = errors.New("export: scene has no triangles")

// degenerateArea is the doubled area under which a triangle is dropped.
const degenerateArea = 1e-12

// WriteSTL writes the world space triangle soup of s as a binary STL file.
// Zero-area triangles are left out.
func WriteSTL(path string, s *scene.Scene) error {
	mesh := Triangles(s.TriangleSoup())
	if len(mesh) == 0 {
		return ErrEmptyScene
	}
	if err := render.SaveSTL(path, mesh); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	return nil
}

// Triangles converts scene triangles to sdfx triangles.
func Triangles(soup []spatial.Triangle) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, 0, len(soup))
	for _, t := range soup {
		if t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0])).Len() < degenerateArea {
			continue
		}
		out = append(out, &sdf.Triangle3{vec(t.V[0]), vec(t.V[1]), vec(t.V[2])})
	}
	return out
}

func vec(v mgl64.Vec3) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
