// Package scene is the engine-ready form of a converted map: textured
// triangle meshes, one material per texture, a node hierarchy placing the
// meshes, plus cameras, lights and spatial indices.
package scene

import (
	"github.com/chazu/quarry/pkg/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene holds everything a renderer needs to draw a level.
type Scene struct {
	Textures  []Texture        `json:"textures"`
	Materials []Material       `json:"materials"`
	Meshes    []*Mesh          `json:"meshes"`
	Nodes     []Node           `json:"nodes"` // Nodes[0] is the root
	Cameras   []Camera         `json:"cameras"`
	Lights    []Light          `json:"lights"`
	Metadata  Metadata         `json:"metadata"`
	BVHs      []*spatial.Index `json:"-"`
}

// Texture is an image referenced by materials.
type Texture struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Material describes how a mesh is shaded. Colors are RGBA.
type Material struct {
	Name      string     `json:"name"`
	Ambient   [4]float32 `json:"ambient"`
	Diffuse   [4]float32 `json:"diffuse"`
	Specular  [4]float32 `json:"specular"`
	Opacity   float32    `json:"opacity"`
	Shininess float32    `json:"shininess"`
	Textures  []uint32   `json:"textures"`
}

// Node places meshes and child nodes with a transform relative to its
// parent.
type Node struct {
	Name      string     `json:"name"`
	Transform mgl64.Mat4 `json:"transform"`
	Meshes    []uint32   `json:"meshes"`
	Children  []uint32   `json:"children"`
}

// Camera is a viewpoint.
type Camera struct {
	Name     string     `json:"name"`
	Position mgl64.Vec3 `json:"position"`
	LookAt   mgl64.Vec3 `json:"lookAt"`
	Up       mgl64.Vec3 `json:"up"`
}

// LightType enumerates light kinds.
type LightType int

const (
	LightPoint LightType = iota
	LightDirectional
)

func (t LightType) String() string {
	switch t {
	case LightPoint:
		return "point"
	case LightDirectional:
		return "directional"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t LightType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Light is a light source. Attenuation is constant, linear, quadratic.
type Light struct {
	Name        string     `json:"name"`
	Type        LightType  `json:"type"`
	Position    mgl64.Vec3 `json:"position"`
	Attenuation [3]float32 `json:"attenuation"`
	Ambient     [3]float32 `json:"ambient"`
	Diffuse     [3]float32 `json:"diffuse"`
	Specular    [3]float32 `json:"specular"`
}

// Metadata carries game information that has no scene graph counterpart.
type Metadata struct {
	PlayerStart mgl64.Vec3 `json:"playerStart"`
	PlayerAngle float64    `json:"playerAngle"`
}

// TriangleCount returns the number of triangles across all meshes.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, m := range s.Meshes {
		n += m.TriangleCount()
	}
	return n
}

// TriangleSoup returns every triangle reachable from the root node in world
// space, applying each node's transform after its parent's. Nodes reached
// twice are visited once.
func (s *Scene) TriangleSoup() []spatial.Triangle {
	if len(s.Nodes) == 0 {
		return nil
	}
	var out []spatial.Triangle
	seen := make(map[uint32]bool, len(s.Nodes))
	var walk func(idx uint32, parent mgl64.Mat4)
	walk = func(idx uint32, parent mgl64.Mat4) {
		if int(idx) >= len(s.Nodes) || seen[idx] {
			return
		}
		seen[idx] = true
		n := s.Nodes[idx]
		world := parent.Mul4(n.Transform)
		for _, mi := range n.Meshes {
			if int(mi) >= len(s.Meshes) {
				continue
			}
			out = s.Meshes[mi].appendTriangles(out, mi, world)
		}
		for _, c := range n.Children {
			walk(c, world)
		}
	}
	walk(0, mgl64.Ident4())
	return out
}
