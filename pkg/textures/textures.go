// Package textures unpacks a map's WAD archive into PNG files and reads
// their dimensions for texture coordinate projection.
package textures

import (
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chazu/quarry/pkg/topology"
	"github.com/samber/lo"
)

// fullbrightSuffix marks the emissive variant of a texture, which shares
// the lookup name of its base.
const fullbrightSuffix = "_fbr"

// Texture is one extracted image.
type Texture struct {
	Name   string
	Path   string
	Width  uint32
	Height uint32
}

// Set is an ordered list of textures. The order defines texture indices.
type Set struct {
	entries []Texture
	index   map[string]int
}

// NewSet builds a set from entries. Later entries with a repeated name
// replace earlier ones in place.
func NewSet(entries ...Texture) *Set {
	s := &Set{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add appends t, or replaces the entry with the same name.
func (s *Set) Add(t Texture) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[t.Name]; ok {
		s.entries[i] = t
		return
	}
	s.index[t.Name] = len(s.entries)
	s.entries = append(s.entries, t)
}

// Len returns the number of textures.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns the textures in index order.
func (s *Set) Entries() []Texture {
	if s == nil {
		return nil
	}
	return slices.Clone(s.entries)
}

// Index returns the position of name in the set.
func (s *Set) Index(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[name]
	return i, ok
}

// Dimensions returns the name to size lookup used by brush construction.
func (s *Set) Dimensions() topology.TextureDimensions {
	if s == nil {
		return topology.TextureDimensions{}
	}
	return lo.SliceToMap(s.entries, func(t Texture) (string, topology.TextureInfo) {
		return t.Name, topology.TextureInfo{Width: t.Width, Height: t.Height}
	})
}

// LoadDirectory reads every PNG in dir, sorted by file name. The lookup
// name of a file is its stem with any "_fbr" marker removed.
func LoadDirectory(dir string) (*Set, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("textures: %w", err)
	}
	slices.Sort(files)

	s := NewSet()
	for _, path := range files {
		w, h, err := decodeSize(path)
		if err != nil {
			return nil, fmt.Errorf("textures: %s: %w", filepath.Base(path), err)
		}
		s.Add(Texture{
			Name:   LookupName(path),
			Path:   path,
			Width:  w,
			Height: h,
		})
	}
	return s, nil
}

// LookupName returns the texture name for an extracted file.
func LookupName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Replace(stem, fullbrightSuffix, "", 1)
}

func decodeSize(path string) (uint32, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return uint32(cfg.Width), uint32(cfg.Height), nil
}

// Persist copies every texture of s into dir as "<name>.png" and returns a
// set pointing at the copies. Textures without a source file keep an
// empty path.
func Persist(s *Set, dir string) (*Set, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("textures: %w", err)
	}
	out := NewSet()
	for _, t := range s.Entries() {
		if t.Path != "" {
			dst := filepath.Join(dir, t.Name+".png")
			if err := copyFile(t.Path, dst); err != nil {
				return nil, fmt.Errorf("textures: persist %s: %w", t.Name, err)
			}
			t.Path = dst
		}
		out.Add(t)
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
