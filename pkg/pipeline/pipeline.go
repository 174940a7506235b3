// Package pipeline converts a parsed map into a scene: every brush is
// solidified, welded against its neighbours, triangulated and grouped into
// one mesh per texture.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/scene"
	"github.com/chazu/quarry/pkg/spatial"
	"github.com/chazu/quarry/pkg/textures"
	"github.com/chazu/quarry/pkg/topology"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Options controls a conversion.
type Options struct {
	WeldRadius     float64
	HalfExtent     float64
	SkipBadBrushes bool
	BVHMaxEntries  int
	Logger         *slog.Logger
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		WeldRadius:     topology.DefaultWeldRadius,
		HalfExtent:     topology.DefaultSeedHalfExtent,
		SkipBadBrushes: true,
		BVHMaxEntries:  spatial.DefaultMaxEntries,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// BrushError identifies a brush that could not be converted. Entity and
// Brush index the source map.
type BrushError struct {
	Entity int
	Brush  int
	Err    error
}

func (e *BrushError) Error() string {
	return fmt.Sprintf("pipeline: entity %d brush %d: %v", e.Entity, e.Brush, e.Err)
}

func (e *BrushError) Unwrap() error { return e.Err }

// Result is the output of a conversion.
type Result struct {
	Map      *mapfile.Map
	Scene    *scene.Scene
	Textures *textures.Set

	// Faces are the textured triangles of every brush, in brush order.
	Faces []topology.Face

	// Grouping maps a texture index to the indices of its faces.
	Grouping map[int][]int

	// Skipped lists brushes dropped under SkipBadBrushes.
	Skipped []BrushError
}

// sourceBrush is a solidified brush and where it came from.
type sourceBrush struct {
	entity, brush int
	poly          *topology.PolyBrush
}

// Convert runs the brush pipeline over m. Texture dimensions come from set,
// which may be nil; textures the map names but set lacks are appended to the
// result's texture list with zero size.
func Convert(m *mapfile.Map, set *textures.Set, opts Options) (*Result, error) {
	if opts.WeldRadius <= 0 {
		return nil, fmt.Errorf("pipeline: weld radius must be positive, got %v", opts.WeldRadius)
	}
	log := opts.logger()
	res := &Result{Map: m}

	dims := set.Dimensions()
	var brushes []sourceBrush
	for _, ei := range entityOrder(m) {
		for bi, desc := range m.Entities[ei].Brushes {
			b := topology.NewBrush(desc, dims)
			if opts.HalfExtent > 0 {
				b.HalfExtent = opts.HalfExtent
			}
			pb, err := topology.NewPolyBrush(b, opts.WeldRadius)
			if err != nil {
				if err := res.reject(log, opts, ei, bi, err); err != nil {
					return nil, err
				}
				continue
			}
			brushes = append(brushes, sourceBrush{entity: ei, brush: bi, poly: pb})
		}
	}

	topology.SortAndWeld(lo.Map(brushes, func(b sourceBrush, _ int) *topology.PolyBrush {
		return b.poly
	}), opts.WeldRadius)

	for _, b := range brushes {
		faces, err := b.poly.Faces()
		if err != nil {
			if err := res.reject(log, opts, b.entity, b.brush, err); err != nil {
				return nil, err
			}
			continue
		}
		res.Faces = append(res.Faces, lo.Filter(faces, func(f topology.Face, _ int) bool {
			return f.Texture.Textured()
		})...)
	}

	res.Textures = textures.NewSet(set.Entries()...)
	for _, f := range res.Faces {
		if _, ok := res.Textures.Index(f.Texture.Name); !ok {
			log.Warn("texture not found", "texture", f.Texture.Name)
			res.Textures.Add(textures.Texture{Name: f.Texture.Name})
		}
	}
	res.Grouping = lo.GroupBy(lo.Range(len(res.Faces)), func(i int) int {
		idx, _ := res.Textures.Index(res.Faces[i].Texture.Name)
		return idx
	})

	res.Scene = buildScene(m, res, opts)
	log.Debug("converted map",
		"brushes", len(brushes),
		"skipped", len(res.Skipped),
		"faces", len(res.Faces),
		"textures", res.Textures.Len())
	return res, nil
}

// reject records a failed brush, or returns the error when bad brushes are
// fatal.
func (r *Result) reject(log *slog.Logger, opts Options, entity, brush int, err error) error {
	be := BrushError{Entity: entity, Brush: brush, Err: err}
	if !opts.SkipBadBrushes {
		return &be
	}
	log.Warn("skipping brush", "entity", entity, "brush", brush, "err", err)
	r.Skipped = append(r.Skipped, be)
	return nil
}

// entityOrder lists entity indices with worldspawn first.
func entityOrder(m *mapfile.Map) []int {
	order := lo.Range(len(m.Entities))
	slices.SortStableFunc(order, func(a, b int) int {
		wa := m.Entities[a].ClassName() == mapfile.ClassWorld
		wb := m.Entities[b].ClassName() == mapfile.ClassWorld
		switch {
		case wa && !wb:
			return -1
		case wb && !wa:
			return 1
		}
		return 0
	})
	return order
}

// ZUpToYUp converts the map's Z-up coordinates to the Y-up convention of
// the scene.
var ZUpToYUp = mgl64.HomogRotate3DX(-math.Pi / 2)
