package engine

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/topology"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(worldspawn :wad "gfx/base")`,
			expect: `(worldspawn "__kw_wad" "gfx/base")`,
		},
		{
			name:   "multiple keywords",
			input:  `(box :min a :max b)`,
			expect: `(box "__kw_min" a "__kw_max" b)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(player-start :origin p)`,
			expect: `(player_start "__kw_origin" p)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(entity :angle -1)`,
			expect: `(entity "__kw_angle" -1)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:wait-time`,
			expect: `"__kw_wait-time"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evaluate runs source and fails the test on any error.
func evaluate(t *testing.T, source string) *mapfile.Map {
	t.Helper()
	m, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if m == nil {
		t.Fatal("expected non-nil map")
	}
	return m
}

// ---------------------------------------------------------------------------
// Brushes
// ---------------------------------------------------------------------------

func TestBoxBrush(t *testing.T) {
	m := evaluate(t, `
(worldspawn :wad "gfx/base"
  (box :min (vec3 0 0 0) :max (vec3 64 64 64) :texture "stone"))
`)
	if len(m.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(m.Entities))
	}
	world := m.World()
	if world == nil {
		t.Fatal("expected a worldspawn entity")
	}
	if got := m.WAD(); got != "gfx/base" {
		t.Errorf("wad = %q, want gfx/base", got)
	}
	if len(world.Brushes) != 1 {
		t.Fatalf("expected 1 brush, got %d", len(world.Brushes))
	}

	faces := world.Brushes[0].Faces
	if len(faces) != 6 {
		t.Fatalf("expected 6 faces, got %d", len(faces))
	}
	east := [3][3]int{{64, 0, 0}, {64, 0, 1}, {64, 1, 0}}
	if faces[0].Points != east {
		t.Errorf("east face points = %v, want %v", faces[0].Points, east)
	}
	for i, f := range faces {
		if f.Texture != "stone" {
			t.Errorf("face %d texture = %q", i, f.Texture)
		}
		if f.Transform != topology.DefaultTextureTransform() {
			t.Errorf("face %d transform = %+v", i, f.Transform)
		}
	}
}

func TestBoxIsClosedSolid(t *testing.T) {
	m := evaluate(t, `(worldspawn (box :min (vec3 -32 -32 0) :max (vec3 32 32 128) :texture "wall"))`)

	b := topology.NewBrush(m.World().Brushes[0], nil)
	pb, err := topology.NewPolyBrush(b, topology.DefaultWeldRadius)
	if err != nil {
		t.Fatalf("NewPolyBrush failed: %v", err)
	}
	if len(pb.Polygons) != 6 {
		t.Fatalf("expected 6 polygons, got %d", len(pb.Polygons))
	}
	if len(pb.Positions) != 8 {
		t.Errorf("expected 8 welded corners, got %d", len(pb.Positions))
	}
	area := 0.0
	for _, p := range pb.Polygons {
		area += p.Area()
	}
	want := 2*64.0*64 + 4*64.0*128
	if area < want-1e-6 || area > want+1e-6 {
		t.Errorf("surface area = %v, want %v", area, want)
	}
}

func TestBoxSwapsCorners(t *testing.T) {
	a := evaluate(t, `(worldspawn (box :min (vec3 0 0 0) :max (vec3 8 8 8)))`)
	b := evaluate(t, `(worldspawn (box :min (vec3 8 8 8) :max (vec3 0 0 0)))`)
	if !reflect.DeepEqual(a, b) {
		t.Error("box corners given in either order should produce the same brush")
	}
}

func TestFaceBuiltin(t *testing.T) {
	m := evaluate(t, `
(def ground (face (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)
                 :texture "*lava1" :offset (vec3 16 -8 0) :rotation 90 :scale (vec3 0.5 2 0)))
(def lid (face (vec3 0 0 64.4) (vec3 0 1 64.4) (vec3 1 0 64.4)))
(worldspawn
  (brush ground lid
    (face (vec3 64 0 0) (vec3 64 0 1) (vec3 64 1 0))
    (face (vec3 0 0 0) (vec3 0 1 0) (vec3 0 0 1))))
`)
	faces := m.World().Brushes[0].Faces
	if len(faces) != 4 {
		t.Fatalf("expected 4 faces, got %d", len(faces))
	}

	floor := faces[0]
	if floor.Texture != "*lava1" {
		t.Errorf("texture = %q", floor.Texture)
	}
	want := topology.TextureTransform{Offset: [2]int{16, -8}, Rotation: 90, Scale: [2]float64{0.5, 2}}
	if floor.Transform != want {
		t.Errorf("transform = %+v, want %+v", floor.Transform, want)
	}

	// Fractional coordinates snap to the integer grid.
	if faces[1].Points[0] != [3]int{0, 0, 64} {
		t.Errorf("top face point = %v, want [0 0 64]", faces[1].Points[0])
	}
	if faces[1].Texture != "" {
		t.Errorf("untextured face got %q", faces[1].Texture)
	}
}

func TestBrushesFromList(t *testing.T) {
	m := evaluate(t, `
(worldspawn
  (list (box :min (vec3 0 0 0) :max (vec3 64 64 8))
        (box :min (vec3 0 0 56) :max (vec3 64 64 64)))
  (box :min (vec3 0 0 8) :max (vec3 8 64 56)))
`)
	if got := len(m.World().Brushes); got != 3 {
		t.Fatalf("expected 3 brushes, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

func TestEntityProperties(t *testing.T) {
	m := evaluate(t, `
(worldspawn :message "two doors")
(entity :classname "func_door" :angle -1 :speed 100 :origin (vec3 0 0 8.5)
  (box :min (vec3 0 0 0) :max (vec3 8 64 96) :texture "door02_1"))
`)
	if len(m.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(m.Entities))
	}
	door := m.Entities[1]
	if door.ClassName() != "func_door" {
		t.Errorf("classname = %q", door.ClassName())
	}
	want := map[string]string{
		"classname": "func_door",
		"angle":     "-1",
		"speed":     "100",
		"origin":    "0 0 8.5",
	}
	if !reflect.DeepEqual(door.Properties, want) {
		t.Errorf("properties = %v, want %v", door.Properties, want)
	}
	if len(door.Brushes) != 1 {
		t.Errorf("expected 1 brush, got %d", len(door.Brushes))
	}
	if m.World().Properties["message"] != "two doors" {
		t.Errorf("world message = %q", m.World().Properties["message"])
	}
}

func TestClassNameKeywordCannotOverrideBuiltin(t *testing.T) {
	m := evaluate(t, `
(worldspawn :classname "func_wall" :wad "gfx/base")
(light :classname "info_null" :origin (vec3 0 0 64))
`)
	if m.World() == nil {
		t.Fatal("worldspawn lost its class to a :classname keyword")
	}
	if got := m.World().Properties["wad"]; got != "gfx/base" {
		t.Errorf("wad = %q, other keywords should still be copied", got)
	}
	if got := m.Entities[1].ClassName(); got != "light" {
		t.Errorf("light classname = %q, want light", got)
	}
}

func TestLightAndPlayerStart(t *testing.T) {
	m := evaluate(t, `
(light :origin (vec3 0 0 128) :light 200)
(light :origin (vec3 64 64 96))
(player-start :origin (vec3 32 -64 24) :angle 90)
`)
	lights := m.Lights()
	if len(lights) != 2 {
		t.Fatalf("expected 2 lights, got %d", len(lights))
	}
	if lights[0].Intensity != 200 || lights[1].Intensity != mapfile.DefaultLightIntensity {
		t.Errorf("intensities = %v, %v", lights[0].Intensity, lights[1].Intensity)
	}

	ps, ok := m.PlayerStart()
	if !ok {
		t.Fatal("expected a player start")
	}
	if ps.Origin[0] != 32 || ps.Origin[1] != -64 || ps.Origin[2] != 24 || ps.Angle != 90 {
		t.Errorf("player start = %+v", ps)
	}
}

func TestVariableReference(t *testing.T) {
	m := evaluate(t, `
(def room_width 128)
(worldspawn (box :min (vec3 0 0 0) :max (vec3 room_width room_width 16)))
`)
	f := m.World().Brushes[0].Faces[0]
	if f.Points[0][0] != 128 {
		t.Errorf("expected east face at x=128 (from variable), got %v", f.Points[0])
	}
}

func TestScriptedMapWritesBack(t *testing.T) {
	m := evaluate(t, `
(worldspawn :wad "gfx/base" (box :min (vec3 0 0 0) :max (vec3 64 64 64) :texture "*water1"))
(light :origin (vec3 0 0 96))
`)
	var buf bytes.Buffer
	if err := mapfile.Write(&buf, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	again, err := mapfile.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(m, again) {
		t.Errorf("map changed on the way through the .map format:\n%+v\n%+v", m, again)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"vec3 type", `(vec3 1 "two" 3)`, "expected number"},
		{"face arity", `(face (vec3 0 0 0) (vec3 1 0 0))`, "exactly 3 points"},
		{"face point type", `(face 1 2 3)`, "expected vec3"},
		{"brush too small", `(brush (face (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)))`, "at least 4"},
		{"brush non-face", `(brush 1 2 3 4)`, "expected face"},
		{"box missing max", `(box :min (vec3 0 0 0))`, ":max"},
		{"box flat", `(box :min (vec3 0 0 0) :max (vec3 64 0 64))`, "zero size"},
		{"box texture type", `(box :min (vec3 0 0 0) :max (vec3 1 1 1) :texture 5)`, "expected string"},
		{"entity without class", `(entity :angle 90)`, ":classname"},
		{"entity as world", `(entity :classname "worldspawn")`, "use worldspawn"},
		{"second world", `(worldspawn) (worldspawn)`, "already has a world"},
		{"entity bad brush", `(entity :classname "func_wall" 42)`, "expected brush"},
		{"light without origin", `(light :light 300)`, ":origin"},
		{"second player start", `(player-start :origin (vec3 0 0 0)) (player-start :origin (vec3 1 1 1))`, "already has a player start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if m != nil {
				t.Fatal("expected nil map on eval error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Regressions
// ---------------------------------------------------------------------------

func TestEmptySourceStillWorks(t *testing.T) {
	m := evaluate(t, "")
	if len(m.Entities) != 0 {
		t.Errorf("expected empty map, got %d entities", len(m.Entities))
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	m := evaluate(t, "(+ 1 2)")
	if len(m.Entities) != 0 {
		t.Errorf("expected empty map, got %d entities", len(m.Entities))
	}
}
