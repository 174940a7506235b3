package topology

import "fmt"

// ErrorKind classifies a GeometryError.
type ErrorKind int

const (
	// DegenerateEdge means too few non-collapsed edges were left to close a cut.
	DegenerateEdge ErrorKind = iota + 1
	// UnclosablePolygon means a polygon collapsed below three points.
	UnclosablePolygon
	// InvalidSplitCount means a clip crossed the plane other than exactly twice.
	InvalidSplitCount
	// ExhaustedEarCandidates means ear clipping found no valid ear.
	ExhaustedEarCandidates
)

func (k ErrorKind) String() string {
	switch k {
	case DegenerateEdge:
		return "degenerate edge"
	case UnclosablePolygon:
		return "unclosable polygon"
	case InvalidSplitCount:
		return "invalid split count"
	case ExhaustedEarCandidates:
		return "exhausted ear candidates"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// GeometryError reports a broken geometric invariant.
type GeometryError struct {
	Kind   ErrorKind
	Op     string
	Detail string
}

func (e *GeometryError) Error() string {
	msg := "topology: " + e.Kind.String()
	if e.Op != "" {
		msg = "topology: " + e.Op + ": " + e.Kind.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any GeometryError of the same kind, so the sentinels below work
// with errors.Is.
func (e *GeometryError) Is(target error) bool {
	t, ok := target.(*GeometryError)
	return ok && t.Kind == e.Kind
}

var (
	ErrDegenerateEdge         = &GeometryError{Kind: DegenerateEdge}
	ErrUnclosablePolygon      = &GeometryError{Kind: UnclosablePolygon}
	ErrInvalidSplitCount      = &GeometryError{Kind: InvalidSplitCount}
	ErrExhaustedEarCandidates = &GeometryError{Kind: ExhaustedEarCandidates}
)

func geometryErrorf(kind ErrorKind, op, format string, args ...any) error {
	return &GeometryError{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}
