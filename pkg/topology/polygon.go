package topology

import (
	"slices"
)

// Polygon is a planar ring of points wound counter-clockwise around Normal.
type Polygon struct {
	Points  []Point
	Normal  Point
	Texture Binding
}

// Clone returns a deep copy of p.
func (p Polygon) Clone() Polygon {
	p.Points = slices.Clone(p.Points)
	return p
}

// Area returns the area enclosed by the ring.
func (p Polygon) Area() float64 {
	var sum Point
	n := len(p.Points)
	for i := range p.Points {
		sum = sum.Add(p.Points[i].Cross(p.Points[(i+1)%n]))
	}
	return sum.Len() / 2
}

// ClipResult holds the pieces of a polygon cut by a plane. Front and Back are
// nil when no part of the polygon lies on that side; Edge is set only when
// the polygon was actually split.
type ClipResult struct {
	Front *Polygon
	Back  *Polygon
	Edge  *Edge
}

// Split reports whether the clip produced two pieces.
func (r ClipResult) Split() bool {
	return r.Front != nil && r.Back != nil
}

// Clip cuts p with pl. A polygon with no point strictly in front, including
// one lying in the plane, is returned whole as Back; one with no point
// strictly behind is returned whole as Front. Otherwise both pieces share
// the two points where the ring crosses the plane, which also form Edge.
// Points on the plane go to both pieces.
func (p Polygon) Clip(pl Plane) (ClipResult, error) {
	sides := make([]Side, len(p.Points))
	var nFront, nBack int
	for i, pt := range p.Points {
		sides[i] = pl.Classify(pt)
		switch sides[i] {
		case Front:
			nFront++
		case Back:
			nBack++
		}
	}

	switch {
	case nFront == 0:
		back := p.Clone()
		return ClipResult{Back: &back}, nil
	case nBack == 0:
		front := p.Clone()
		return ClipResult{Front: &front}, nil
	}

	front := Polygon{Normal: p.Normal, Texture: p.Texture}
	back := Polygon{Normal: p.Normal, Texture: p.Texture}
	var cut []Point

	n := len(p.Points)
	for i, pt := range p.Points {
		j := (i + 1) % n
		switch sides[i] {
		case Front:
			front.Points = append(front.Points, pt)
		case Back:
			back.Points = append(back.Points, pt)
		default:
			front.Points = append(front.Points, pt)
			back.Points = append(back.Points, pt)
			cut = append(cut, pt)
		}

		if sides[i] == OnPlane || sides[j] == OnPlane || sides[i] == sides[j] {
			continue
		}
		x, _ := pl.Intersect(pt, p.Points[j])
		front.Points = append(front.Points, x)
		back.Points = append(back.Points, x)
		cut = append(cut, x)
	}

	if len(cut) != 2 {
		return ClipResult{}, geometryErrorf(InvalidSplitCount, "clip", "plane crosses polygon at %d points", len(cut))
	}
	return ClipResult{Front: &front, Back: &back, Edge: &Edge{cut[0], cut[1]}}, nil
}

// Sanitize drops consecutive duplicate points, then every point collinear
// with its two neighbours. It reports whether at least three points remain.
func (p *Polygon) Sanitize() bool {
	pts := p.Points

	for i := 0; i < len(pts) && len(pts) > 1; {
		if IdenticalPoints(pts[i], pts[(i+1)%len(pts)]) {
			pts = slices.Delete(pts, i, i+1)
			continue
		}
		i++
	}

	for removed := true; removed; {
		removed = false
		for i := 0; i < len(pts) && len(pts) >= 3; {
			n := len(pts)
			in := normalize(pts[i].Sub(pts[(i+n-1)%n]))
			out := normalize(pts[(i+1)%n].Sub(pts[i]))
			if in.Dot(out) > 1-collinearEpsilon {
				pts = slices.Delete(pts, i, i+1)
				removed = true
				continue
			}
			i++
		}
	}

	p.Points = pts
	return len(pts) >= 3
}

// Triangulate ear-clips the polygon into faces carrying its normal, texture
// binding and per-vertex UVs. At every step the valid ear with the widest
// interior angle is cut; an ear is valid when it turns the same way as the
// polygon and holds no other point. The receiver is not modified.
func (p Polygon) Triangulate() ([]Face, error) {
	if len(p.Points) < 3 {
		return nil, geometryErrorf(UnclosablePolygon, "triangulate", "polygon has %d points", len(p.Points))
	}

	pts := slices.Clone(p.Points)
	faces := make([]Face, 0, len(pts)-2)
	for len(pts) > 3 {
		ear, ok := p.bestEar(pts)
		if !ok {
			return nil, geometryErrorf(ExhaustedEarCandidates, "triangulate", "no ear among %d points", len(pts))
		}
		n := len(pts)
		faces = append(faces, p.face(pts[(ear+n-1)%n], pts[ear], pts[(ear+1)%n]))
		pts = slices.Delete(pts, ear, ear+1)
	}
	faces = append(faces, p.face(pts[0], pts[1], pts[2]))
	return faces, nil
}

func (p Polygon) bestEar(pts []Point) (int, bool) {
	best, widest := -1, -1.0
	n := len(pts)
	for i := range pts {
		prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		normal := TriangleNormal(prev, cur, next)
		if p.Normal.Dot(normal) <= 0 {
			continue
		}
		if earHoldsPoint(pts, i, normal) {
			continue
		}
		if a := angleBetween(prev.Sub(cur), next.Sub(cur)); a > widest {
			best, widest = i, a
		}
	}
	return best, best >= 0
}

// earHoldsPoint reports whether any point other than the ear's own corners
// lies on or inside the ear at index i.
func earHoldsPoint(pts []Point, i int, normal Point) bool {
	n := len(pts)
	prevIdx, nextIdx := (i+n-1)%n, (i+1)%n
	for k, pt := range pts {
		if k == i || k == prevIdx || k == nextIdx {
			continue
		}
		if insideTriangle(pt, pts[prevIdx], pts[i], pts[nextIdx], normal) {
			return true
		}
	}
	return false
}

// insideTriangle tests a point coplanar with triangle a, b, c, counting
// points within PlaneEpsilon of an edge as inside.
func insideTriangle(p, a, b, c, normal Point) bool {
	for _, e := range [3][2]Point{{a, b}, {b, c}, {c, a}} {
		dir := e[1].Sub(e[0])
		l := dir.Len()
		if l == 0 {
			return false
		}
		if normal.Dot(dir.Cross(p.Sub(e[0])))/l < -PlaneEpsilon {
			return false
		}
	}
	return true
}

func (p Polygon) face(a, b, c Point) Face {
	return Face{
		Points:  [3]Point{a, b, c},
		Normal:  p.Normal,
		Texture: p.Texture,
		UV: [3]UV{
			p.Texture.TexCoords(a, p.Normal),
			p.Texture.TexCoords(b, p.Normal),
			p.Texture.TexCoords(c, p.Normal),
		},
	}
}
