package topology

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
)

// FaceDescriptor is one plane of a brush as it appears in a map: three
// integer points, a texture name and its placement.
type FaceDescriptor struct {
	Points    [3][3]int        `json:"points"`
	Texture   string           `json:"texture"`
	Transform TextureTransform `json:"transform"`
}

// BrushDescriptor lists the planes of one brush in declaration order.
type BrushDescriptor struct {
	Faces []FaceDescriptor `json:"faces"`
}

// Brush is a convex solid: the intersection of the back half-spaces of its
// planes.
type Brush struct {
	Planes     []Plane
	HalfExtent float64
}

// NewBrush builds the planes of desc. Map files list plane points clockwise
// seen from outside, so the second and third points are swapped to get an
// outward normal. Texture names are sanitized and, when not empty, resolved
// against dims.
func NewBrush(desc BrushDescriptor, dims TextureDimensions) *Brush {
	b := &Brush{
		Planes:     make([]Plane, 0, len(desc.Faces)),
		HalfExtent: DefaultSeedHalfExtent,
	}
	for _, f := range desc.Faces {
		tex := Binding{
			Name:      SanitizeTextureName(f.Texture),
			Transform: f.Transform,
		}
		if tex.Name != "" {
			tex.Info, _ = dims.Lookup(tex.Name)
		}
		p1, p2, p3 := toPoint(f.Points[0]), toPoint(f.Points[1]), toPoint(f.Points[2])
		b.Planes = append(b.Planes, NewPlane(p1, p3, p2, tex))
	}
	return b
}

func toPoint(c [3]int) Point {
	return Point{float64(c[0]), float64(c[1]), float64(c[2])}
}

// Polygons carves the seed cube with every plane in order and returns the
// faces of the resulting solid. Faces in front of a plane are dropped, faces
// behind or in it are kept, and split faces keep their back piece. Each cut
// is closed with a polygon built from the split edges, plus the sides of
// kept faces that lie in the plane. Planes that do not bound a finite region
// leave part of the seed cube in the result.
func (b *Brush) Polygons() ([]Polygon, error) {
	solid := SeedCube(b.halfExtent())
	for i, pl := range b.Planes {
		var kept []Polygon
		var edges []Edge
		covered := false
		for _, face := range solid {
			r, err := face.Clip(pl)
			if err != nil {
				return nil, fmt.Errorf("plane %d: %w", i, err)
			}
			switch {
			case r.Split():
				kept = append(kept, *r.Back)
				edges = append(edges, *r.Edge)
			case r.Back != nil:
				kept = append(kept, *r.Back)
				contact, coplanar := contactEdges(face, pl)
				edges = append(edges, contact...)
				covered = covered || coplanar
			}
		}
		if covered {
			// The plane repeats an existing face; there is nothing to close.
			solid = kept
			continue
		}

		capFace, err := CapPolygon(pl, edges, kept)
		switch {
		case err == nil:
			kept = append(kept, capFace)
		case errors.Is(err, ErrDegenerateEdge), errors.Is(err, ErrUnclosablePolygon):
			// The plane touched the solid without cutting a new face.
		default:
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		solid = kept
	}

	out := solid[:0]
	for _, p := range solid {
		if p.Sanitize() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *Brush) halfExtent() float64 {
	if b.HalfExtent > 0 {
		return b.HalfExtent
	}
	return DefaultSeedHalfExtent
}

// contactEdges returns the sides of p lying in pl, and whether all of p
// lies in it.
func contactEdges(p Polygon, pl Plane) ([]Edge, bool) {
	sides := make([]Side, len(p.Points))
	coplanar := true
	for i, pt := range p.Points {
		sides[i] = pl.Classify(pt)
		coplanar = coplanar && sides[i] == OnPlane
	}
	if coplanar {
		return nil, true
	}

	var edges []Edge
	n := len(p.Points)
	for i := range p.Points {
		j := (i + 1) % n
		if sides[i] == OnPlane && sides[j] == OnPlane {
			edges = append(edges, Edge{p.Points[i], p.Points[j]})
		}
	}
	return edges, false
}

// CapPolygon closes the cut left by pl from the unordered split edges of one
// clipping pass. Starting from the first edge it repeatedly follows the
// endpoint nearest to the chain's tail until the loop returns to its start.
// solid holds the faces kept in the same pass and decides which way the cap
// faces; if none of them leaves the cap's plane the plane normal decides.
//
// It fails with ErrDegenerateEdge when fewer than two edges have distinct
// endpoints and with ErrUnclosablePolygon when the loop collapses.
func CapPolygon(pl Plane, edges []Edge, solid []Polygon) (Polygon, error) {
	valid := lo.Filter(edges, func(e Edge, _ int) bool { return e.Valid() })
	if len(valid) < 2 {
		return Polygon{}, geometryErrorf(DegenerateEdge, "cap", "%d usable edges", len(valid))
	}

	poly := Polygon{
		Normal:  pl.Normal,
		Texture: pl.Texture,
		Points:  []Point{valid[0][0], valid[0][1]},
	}
	remaining := slices.Clone(valid[1:])
	for len(remaining) > 0 {
		tail := poly.Points[len(poly.Points)-1]
		edge, end, nearest := 0, 0, math.Inf(1)
		for i, e := range remaining {
			for j, p := range e {
				if d := Distance(tail, p); d < nearest {
					edge, end, nearest = i, j, d
				}
			}
		}
		next := remaining[edge][1-end]
		remaining = slices.Delete(remaining, edge, edge+1)
		if IdenticalPoints(next, poly.Points[0]) {
			break
		}
		poly.Points = append(poly.Points, next)
	}

	if !poly.Sanitize() {
		return Polygon{}, geometryErrorf(UnclosablePolygon, "cap", "loop collapsed to %d points", len(poly.Points))
	}
	orientCap(&poly, solid)
	return poly, nil
}

// orientCap reverses the cap when its winding faces into the solid.
func orientCap(poly *Polygon, solid []Polygon) {
	origin := poly.Points[0]
	normal := TriangleNormal(poly.Points[0], poly.Points[1], poly.Points[2])
	for _, face := range solid {
		for _, p := range face.Points {
			switch d := normal.Dot(p.Sub(origin)); {
			case d > PlaneEpsilon:
				slices.Reverse(poly.Points)
				return
			case d < -PlaneEpsilon:
				return
			}
		}
	}
	if normal.Dot(poly.Normal) < 0 {
		slices.Reverse(poly.Points)
	}
}
