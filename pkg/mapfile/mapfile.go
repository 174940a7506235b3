// Package mapfile reads and writes Quake ".map" level sources: a list of
// entities, each a set of key/value properties plus the brushes it owns.
package mapfile

import (
	"path"
	"strconv"
	"strings"

	"github.com/chazu/quarry/pkg/topology"
	"github.com/go-gl/mathgl/mgl64"
)

// Well-known entity class names and keys.
const (
	ClassWorld       = "worldspawn"
	ClassPlayerStart = "info_player_start"

	KeyClassName = "classname"
	KeyOrigin    = "origin"
	KeyAngle     = "angle"
	KeyLight     = "light"
	KeyWAD       = "wad"
)

// DefaultLightIntensity is used for lights without a "light" key.
const DefaultLightIntensity = 300

// Map is a parsed map source.
type Map struct {
	Entities []Entity
}

// Entity is one "{ ... }" block of a map.
type Entity struct {
	Properties map[string]string
	Brushes    []topology.BrushDescriptor
}

// NewEntity returns an entity of the given class.
func NewEntity(class string) Entity {
	return Entity{Properties: map[string]string{KeyClassName: class}}
}

// ClassName returns the entity's "classname" property.
func (e Entity) ClassName() string {
	return e.Properties[KeyClassName]
}

// Float parses a numeric property.
func (e Entity) Float(key string) (float64, bool) {
	v, ok := e.Properties[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f, err == nil
}

// Vec3 parses a property of three space-separated numbers, such as "origin".
func (e Entity) Vec3(key string) (mgl64.Vec3, bool) {
	v, ok := e.Properties[key]
	if !ok {
		return mgl64.Vec3{}, false
	}
	fields := strings.Fields(v)
	if len(fields) != 3 {
		return mgl64.Vec3{}, false
	}
	var out mgl64.Vec3
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return mgl64.Vec3{}, false
		}
		out[i] = n
	}
	return out, true
}

// World returns the worldspawn entity, or nil.
func (m *Map) World() *Entity {
	for i := range m.Entities {
		if m.Entities[i].ClassName() == ClassWorld {
			return &m.Entities[i]
		}
	}
	return nil
}

// WAD returns the texture archive named by the worldspawn "wad" key, as a
// slash-separated path without the ".wad" extension. When several archives
// are listed the first is used. It is empty when the map names none.
func (m *Map) WAD() string {
	w := m.World()
	if w == nil {
		return ""
	}
	first, _, _ := strings.Cut(w.Properties[KeyWAD], ";")
	first = strings.ReplaceAll(strings.TrimSpace(first), `\`, "/")
	if first == "" {
		return ""
	}
	return strings.TrimSuffix(path.Clean(first), ".wad")
}

// BrushCount returns the number of brushes across all entities.
func (m *Map) BrushCount() int {
	n := 0
	for _, e := range m.Entities {
		n += len(e.Brushes)
	}
	return n
}

// Light is a point light entity.
type Light struct {
	Origin    mgl64.Vec3
	Intensity float64
}

// Lights returns every entity whose class starts with "light".
func (m *Map) Lights() []Light {
	var lights []Light
	for _, e := range m.Entities {
		if !strings.HasPrefix(e.ClassName(), "light") {
			continue
		}
		l := Light{Intensity: DefaultLightIntensity}
		l.Origin, _ = e.Vec3(KeyOrigin)
		if v, ok := e.Float(KeyLight); ok {
			l.Intensity = v
		}
		lights = append(lights, l)
	}
	return lights
}

// PlayerStart is where the player spawns.
type PlayerStart struct {
	Origin mgl64.Vec3
	Angle  float64
}

// PlayerStart returns the first info_player_start entity.
func (m *Map) PlayerStart() (PlayerStart, bool) {
	for _, e := range m.Entities {
		if e.ClassName() != ClassPlayerStart {
			continue
		}
		var ps PlayerStart
		ps.Origin, _ = e.Vec3(KeyOrigin)
		ps.Angle, _ = e.Float(KeyAngle)
		return ps, true
	}
	return PlayerStart{}, false
}
