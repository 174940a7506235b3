package scene

import (
	"github.com/chazu/quarry/pkg/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices, normals and uvs hold 3 floats per vertex
// (uv w is always 0), indices has 3 uint32s per triangle.
type Mesh struct {
	Name      string    `json:"name"`
	Vertices  []float32 `json:"vertices"`  // [x0,y0,z0, x1,y1,z1, ...]
	Normals   []float32 `json:"normals"`   // [nx0,ny0,nz0, ...]
	UVs       []float32 `json:"uvs"`       // [u0,v0,0, ...]
	Indices   []uint32  `json:"indices"`   // [i0,i1,i2, ...] triangles
	Materials []uint32  `json:"materials"` // material indices
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// AddTriangle appends an unshared triangle whose three vertices carry the
// face normal n.
func (m *Mesh) AddTriangle(p [3]mgl64.Vec3, n mgl64.Vec3, uv [3]mgl64.Vec2) {
	base := uint32(m.VertexCount())
	for j := range 3 {
		m.Vertices = append(m.Vertices, float32(p[j][0]), float32(p[j][1]), float32(p[j][2]))
		m.Normals = append(m.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
		m.UVs = append(m.UVs, float32(uv[j][0]), float32(uv[j][1]), 0)
		m.Indices = append(m.Indices, base+uint32(j))
	}
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i uint32) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(m.Vertices[3*i]),
		float64(m.Vertices[3*i+1]),
		float64(m.Vertices[3*i+2]),
	}
}

func (m *Mesh) appendTriangles(out []spatial.Triangle, mesh uint32, world mgl64.Mat4) []spatial.Triangle {
	for t := 0; t+2 < len(m.Indices); t += 3 {
		var tri spatial.Triangle
		tri.Mesh = mesh
		for j := range 3 {
			tri.V[j] = mgl64.TransformCoordinate(m.Vertex(m.Indices[t+j]), world)
		}
		out = append(out, tri)
	}
	return out
}
