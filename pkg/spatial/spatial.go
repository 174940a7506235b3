// Package spatial indexes triangles in an R-tree so that scenes can be
// queried by region.
package spatial

import (
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// DefaultMaxEntries is the R-tree node fan-out used when none is given.
const DefaultMaxEntries = 25

// pad is added around axes on which a triangle has no extent, which is
// every axis-aligned face.
const pad = 1e-6

// Triangle is a world space triangle and the mesh it came from.
type Triangle struct {
	V    [3]mgl64.Vec3
	Mesh uint32
}

// Bounds returns the triangle's axis-aligned box.
func (t Triangle) Bounds() (bmin, bmax mgl64.Vec3) {
	bmin, bmax = t.V[0], t.V[0]
	for _, v := range t.V[1:] {
		for i := range 3 {
			bmin[i] = min(bmin[i], v[i])
			bmax[i] = max(bmax[i], v[i])
		}
	}
	return bmin, bmax
}

// item adapts a triangle to rtreego.Spatial.
type item struct {
	idx  int
	rect rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect { return it.rect }

// Index is a bounding volume hierarchy over a fixed set of triangles.
type Index struct {
	tree     *rtreego.Rtree
	tris     []Triangle
	min, max mgl64.Vec3
}

// Build indexes tris. maxEntries below 2 selects DefaultMaxEntries.
func Build(tris []Triangle, maxEntries int) *Index {
	if maxEntries < 2 {
		maxEntries = DefaultMaxEntries
	}
	ix := &Index{tris: slices.Clone(tris)}

	items := make([]rtreego.Spatial, len(tris))
	for i, t := range tris {
		bmin, bmax := t.Bounds()
		if i == 0 {
			ix.min, ix.max = bmin, bmax
		}
		for a := range 3 {
			ix.min[a] = min(ix.min[a], bmin[a])
			ix.max[a] = max(ix.max[a], bmax[a])
		}
		items[i] = &item{idx: i, rect: rect(bmin, bmax)}
	}
	ix.tree = rtreego.NewTree(3, max(1, maxEntries/2), maxEntries, items...)
	return ix
}

func rect(bmin, bmax mgl64.Vec3) rtreego.Rect {
	for a := range 3 {
		if bmax[a]-bmin[a] < pad {
			bmin[a] -= pad
			bmax[a] += pad
		}
	}
	// Both points have three coordinates, so no DimError.
	r, _ := rtreego.NewRectFromPoints(rtreego.Point(bmin[:]), rtreego.Point(bmax[:]))
	return r
}

// Len returns the number of indexed triangles.
func (ix *Index) Len() int {
	return ix.tree.Size()
}

// Triangle returns the i-th indexed triangle.
func (ix *Index) Triangle(i int) Triangle {
	return ix.tris[i]
}

// Bounds returns the box around every triangle. It is zero for an empty
// index.
func (ix *Index) Bounds() (bmin, bmax mgl64.Vec3) {
	return ix.min, ix.max
}

// Query returns the indices of triangles whose boxes overlap the box
// [bmin, bmax], in ascending order.
func (ix *Index) Query(bmin, bmax mgl64.Vec3) []int {
	if ix.Len() == 0 {
		return nil
	}
	hits := lo.Map(ix.tree.SearchIntersect(rect(bmin, bmax)), func(s rtreego.Spatial, _ int) int {
		return s.(*item).idx
	})
	slices.Sort(hits)
	return hits
}

// Nearest returns the index of the triangle whose box is closest to p.
func (ix *Index) Nearest(p mgl64.Vec3) (int, bool) {
	if ix.Len() == 0 {
		return 0, false
	}
	s := ix.tree.NearestNeighbor(rtreego.Point(p[:]))
	if s == nil {
		return 0, false
	}
	return s.(*item).idx, true
}
