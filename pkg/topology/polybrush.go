package topology

import "fmt"

// DefaultWeldRadius is the distance within which vertices are merged.
const DefaultWeldRadius = 1.0 / 16.0

// PolyBrush holds the polygons of a solidified brush together with a shared
// vertex buffer. Every polygon point refers to one Positions entry, so
// moving an entry moves the corner in every polygon that uses it.
type PolyBrush struct {
	Polygons  []Polygon
	Positions []Point

	// indices[i][j] is the Positions entry for Polygons[i].Points[j].
	indices [][]int
}

// NewPolyBrush solidifies b and welds its corners within radius.
func NewPolyBrush(b *Brush, radius float64) (*PolyBrush, error) {
	polys, err := b.Polygons()
	if err != nil {
		return nil, err
	}
	return NewPolyBrushFromPolygons(polys, radius), nil
}

// NewPolyBrushFromPolygons indexes polys, merging every point that lies
// within radius of the running average of an existing entry. The polygons
// are rewritten with the final averages.
func NewPolyBrushFromPolygons(polys []Polygon, radius float64) *PolyBrush {
	pb := &PolyBrush{
		Polygons: make([]Polygon, len(polys)),
		indices:  make([][]int, len(polys)),
	}
	acc := newAccumulator(radius)
	for i, p := range polys {
		pb.Polygons[i] = p.Clone()
		idx := make([]int, len(p.Points))
		for j, pt := range p.Points {
			idx[j] = acc.add(pt)
		}
		pb.indices[i] = idx
	}
	pb.Positions = acc.averages()
	pb.sync()
	return pb
}

// Indices returns the Positions entries used by polygon i, in ring order.
func (pb *PolyBrush) Indices(i int) []int {
	return pb.indices[i]
}

// sync copies Positions back into the polygon rings.
func (pb *PolyBrush) sync() {
	for i, idx := range pb.indices {
		for j, k := range idx {
			pb.Polygons[i].Points[j] = pb.Positions[k]
		}
	}
}

// Faces triangulates every polygon. Polygons that welding collapsed below
// three distinct points are left out.
func (pb *PolyBrush) Faces() ([]Face, error) {
	var faces []Face
	for i, p := range pb.Polygons {
		p = p.Clone()
		if !p.Sanitize() {
			continue
		}
		tris, err := p.Triangulate()
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		faces = append(faces, tris...)
	}
	return faces, nil
}

// accumulator merges points into running averages: a point joins the first
// entry whose current average lies within the radius, otherwise it starts a
// new entry.
type accumulator struct {
	r2   float64
	sums []Point
	hits []int
}

func newAccumulator(radius float64) *accumulator {
	return &accumulator{r2: radius * radius}
}

func (a *accumulator) add(p Point) int {
	for i, sum := range a.sums {
		avg := sum.Mul(1 / float64(a.hits[i]))
		if DistanceSquared(p, avg) <= a.r2 {
			a.sums[i] = sum.Add(p)
			a.hits[i]++
			return i
		}
	}
	a.sums = append(a.sums, p)
	a.hits = append(a.hits, 1)
	return len(a.sums) - 1
}

func (a *accumulator) averages() []Point {
	out := make([]Point, len(a.sums))
	for i, sum := range a.sums {
		out[i] = sum.Mul(1 / float64(a.hits[i]))
	}
	return out
}
