package topology

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"
)

// sweepMargin widens each brush's box during the broad phase.
const sweepMargin = 1.0

// Weld merges the vertex buffers of brushes within radius, using the same
// running average as NewPolyBrushFromPolygons, and writes the merged
// positions back into every brush and its polygons. It returns the merged
// buffer.
func Weld(brushes []*PolyBrush, radius float64) []Point {
	acc := newAccumulator(radius)
	remap := make([][]int, len(brushes))
	for i, b := range brushes {
		remap[i] = make([]int, len(b.Positions))
		for j, p := range b.Positions {
			remap[i][j] = acc.add(p)
		}
	}

	merged := acc.averages()
	for i, b := range brushes {
		for j, k := range remap[i] {
			b.Positions[j] = merged[k]
		}
		b.sync()
	}
	return merged
}

type sweepNode struct {
	box   AABB
	brush int
}

// SortAndWeld welds each brush together with the brushes whose bounding
// boxes come within reach of its own, found with a sweep-and-prune pass on
// each axis. Brushes far apart are never compared vertex by vertex.
func SortAndWeld(brushes []*PolyBrush, radius float64) {
	nodes := make([]sweepNode, 0, len(brushes))
	for i, b := range brushes {
		if box, ok := NewAABB(b.Positions); ok {
			nodes = append(nodes, sweepNode{box: box, brush: i})
		}
	}

	margin := math.Max(sweepMargin, radius)
	for _, n := range nodes {
		batch := sweepAndPrune(nodes, n.box, margin)
		Weld(lo.Map(batch, func(s sweepNode, _ int) *PolyBrush {
			return brushes[s.brush]
		}), radius)
	}
}

// sweepAndPrune narrows nodes to those overlapping box grown by margin,
// one axis at a time.
func sweepAndPrune(nodes []sweepNode, box AABB, margin float64) []sweepNode {
	query := box.Grow(margin)
	candidates := nodes
	for axis := range 3 {
		candidates = sweep(candidates, axis, query.Min[axis], query.Max[axis])
	}
	return candidates
}

// sweep returns the nodes whose extent on axis overlaps [lower, upper].
// Nodes are ordered by their minimum; a binary search bounds the ones
// starting inside the window and the ones starting before it are kept when
// they reach into it.
func sweep(nodes []sweepNode, axis int, lower, upper float64) []sweepNode {
	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b sweepNode) int {
		return cmp.Compare(a.box.Min[axis], b.box.Min[axis])
	})

	start := sort.Search(len(sorted), func(i int) bool { return sorted[i].box.Min[axis] >= lower })
	end := sort.Search(len(sorted), func(i int) bool { return sorted[i].box.Min[axis] > upper })

	out := make([]sweepNode, 0, end)
	for _, n := range sorted[:start] {
		if n.box.Max[axis] >= lower {
			out = append(out, n)
		}
	}
	return append(out, sorted[start:end]...)
}
