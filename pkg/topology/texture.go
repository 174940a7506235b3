package topology

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// TextureTransform is the per-face texture placement read from a map:
// pixel offset, rotation in degrees and scale along each texture axis.
type TextureTransform struct {
	Offset   [2]int     `json:"offset"`
	Rotation int        `json:"rotation"`
	Scale    [2]float64 `json:"scale"`
}

// DefaultTextureTransform returns the identity placement.
func DefaultTextureTransform() TextureTransform {
	return TextureTransform{Scale: [2]float64{1, 1}}
}

// TextureInfo holds the pixel dimensions of a decoded texture image.
type TextureInfo struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// TextureDimensions maps sanitized texture names to image dimensions.
type TextureDimensions map[string]TextureInfo

// Lookup returns the dimensions registered for name.
func (d TextureDimensions) Lookup(name string) (TextureInfo, bool) {
	info, ok := d[name]
	return info, ok
}

// Binding ties a surface to a texture: the sanitized name, its placement
// and the resolved image size. An empty Name marks an untextured surface.
type Binding struct {
	Name      string           `json:"name"`
	Transform TextureTransform `json:"transform"`
	Info      TextureInfo      `json:"info"`
}

// Textured reports whether the binding names a texture.
func (b Binding) Textured() bool {
	return b.Name != ""
}

var textureNameTokens = []struct{ from, to string }{
	{"*", "star_"},
	{"+", "plus_"},
	{"-", "minu_"},
	{"/", "divd_"},
}

// SanitizeTextureName lower-cases a map texture name and rewrites the first
// occurrence of each character the archive extractor cannot put in a file
// name.
func SanitizeTextureName(name string) string {
	name = strings.ToLower(name)
	for _, tok := range textureNameTokens {
		name = strings.Replace(name, tok.from, tok.to, 1)
	}
	return name
}

// baseAxes holds, per natural projection, the surface normal followed by
// the s and t texture axes: floor, ceiling, then the four walls.
var baseAxes = [6][3]Point{
	{{0, 0, 1}, {1, 0, 0}, {0, -1, 0}},
	{{0, 0, -1}, {1, 0, 0}, {0, -1, 0}},
	{{1, 0, 0}, {0, 1, 0}, {0, 0, -1}},
	{{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, -1}},
}

// textureAxes picks the natural s and t axes for a surface normal. The first
// projection whose normal has the strictly largest positive dot wins, so
// exact ties resolve to the earlier entry.
func textureAxes(normal Point) (s, t Point) {
	best, bestDot := 0, 0.0
	for i, axes := range baseAxes {
		if d := normal.Dot(axes[0]); d > bestDot {
			best, bestDot = i, d
		}
	}
	return baseAxes[best][1], baseAxes[best][2]
}

func rotationSinCos(degrees int) (sin, cos float64) {
	switch degrees {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(mgl64.DegToRad(float64(degrees)))
}

// firstNonZero returns the index of the first non-zero component of v.
func firstNonZero(v Point) int {
	switch {
	case v[0] != 0:
		return 0
	case v[1] != 0:
		return 1
	}
	return 2
}

// textureRows builds the two rows mapping a point to pixel-normalized s and
// t: the first three columns multiply the point, the fourth is the offset.
func textureRows(tr TextureTransform, info TextureInfo, normal Point) [2]mgl64.Vec4 {
	var rows [2]mgl64.Vec4

	scale := tr.Scale
	for i := range scale {
		if scale[i] == 0 {
			scale[i] = 1
		}
	}

	sAxis, tAxis := textureAxes(normal)
	sinv, cosv := rotationSinCos(tr.Rotation)
	sv, tv := firstNonZero(sAxis), firstNonZero(tAxis)

	for i, axis := range [2]Point{sAxis, tAxis} {
		ns := cosv*axis[sv] - sinv*axis[tv]
		nt := sinv*axis[sv] + cosv*axis[tv]
		rows[i][sv] = ns / scale[i]
		rows[i][tv] = nt / scale[i]
	}
	rows[0][3] = float64(tr.Offset[0])
	rows[1][3] = float64(tr.Offset[1])

	// Untextured surfaces carry no dimensions; their coordinates are only
	// kept finite.
	dims := [2]float64{float64(info.Width), float64(info.Height)}
	for i := range rows {
		if dims[i] == 0 {
			dims[i] = 1
		}
		rows[i] = rows[i].Mul(1 / dims[i])
	}
	return rows
}

// TexCoords projects p onto the texture plane chosen for normal and returns
// its UV. V is negated because image rows grow downwards.
func TexCoords(p Point, tr TextureTransform, info TextureInfo, normal Point) mgl64.Vec2 {
	rows := textureRows(tr, info, normal)
	u := p.Dot(rows[0].Vec3()) + rows[0][3]
	v := p.Dot(rows[1].Vec3()) + rows[1][3]
	return mgl64.Vec2{u, -v}
}

// TexCoords projects p using the binding's placement and image size.
func (b Binding) TexCoords(p, normal Point) mgl64.Vec2 {
	return TexCoords(p, b.Transform, b.Info, normal)
}
