package topology

// Edge is a segment left behind where a plane cut through a polygon.
type Edge [2]Point

// Valid reports whether the endpoints are distinct.
func (e Edge) Valid() bool {
	return !IdenticalPoints(e[0], e[1])
}
