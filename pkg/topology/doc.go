// Package topology turns Quake-style brushes (convex solids described by
// bounding planes) into closed, textured polygon sets and triangles.
//
// A brush is solidified by clipping a large seed cube against each of its
// planes in turn and capping every cut with a polygon rebuilt from the
// intersection edges. The resulting polygons are indexed into a PolyBrush,
// whose vertex buffer can be welded within a radius, both inside one brush
// and across neighbouring brushes found with a sweep-and-prune pass.
package topology
