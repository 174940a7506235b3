package pipeline

import (
	"fmt"

	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/scene"
	"github.com/chazu/quarry/pkg/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Shading of every brush material.
var (
	materialAmbient  = [4]float32{0.5, 0.5, 0.5, 1}
	materialDiffuse  = [4]float32{0.6, 0.6, 0.6, 1}
	materialSpecular = [4]float32{0.6, 0.6, 0.6, 1}
)

// Point light falloff: constant, linear, quadratic.
var lightAttenuation = [3]float32{1, 0.01, 0}

const lightAmbient = 0.2

func buildScene(m *mapfile.Map, res *Result, opts Options) *scene.Scene {
	s := &scene.Scene{}
	root := scene.Node{Name: "root", Transform: ZUpToYUp}

	for i, t := range res.Textures.Entries() {
		idx := uint32(i)
		s.Textures = append(s.Textures, scene.Texture{
			Name:   t.Name,
			Path:   t.Path,
			Width:  t.Width,
			Height: t.Height,
		})
		s.Materials = append(s.Materials, scene.Material{
			Name:      t.Name,
			Ambient:   materialAmbient,
			Diffuse:   materialDiffuse,
			Specular:  materialSpecular,
			Opacity:   1,
			Shininess: 1,
			Textures:  []uint32{idx},
		})

		mesh := &scene.Mesh{Name: t.Name, Materials: []uint32{idx}}
		for _, fi := range res.Grouping[i] {
			f := res.Faces[fi]
			mesh.AddTriangle(f.Points, f.Normal, f.UV)
		}
		s.Meshes = append(s.Meshes, mesh)
		root.Meshes = append(root.Meshes, idx)
	}
	s.Nodes = []scene.Node{root}

	ps, _ := m.PlayerStart()
	start := mgl64.TransformCoordinate(ps.Origin, root.Transform)
	s.Cameras = []scene.Camera{{
		Name:     "camera",
		Position: start,
		LookAt:   mgl64.Vec3{0, 0, -1},
		Up:       mgl64.Vec3{0, 1, 0},
	}}
	s.Metadata = scene.Metadata{PlayerStart: start, PlayerAngle: ps.Angle}

	s.Lights = lo.Map(m.Lights(), func(l mapfile.Light, i int) scene.Light {
		d := float32(l.Intensity / 255)
		return scene.Light{
			Name:        fmt.Sprintf("light%d", i),
			Type:        scene.LightPoint,
			Position:    mgl64.TransformCoordinate(l.Origin, root.Transform),
			Attenuation: lightAttenuation,
			Ambient:     [3]float32{lightAmbient, lightAmbient, lightAmbient},
			Diffuse:     [3]float32{d, d, d},
		}
	})

	s.BVHs = []*spatial.Index{spatial.Build(s.TriangleSoup(), opts.BVHMaxEntries)}
	return s
}
