package mapfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/quarry/pkg/topology"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadRoom(t *testing.T) *Map {
	t.Helper()
	m, err := Load(filepath.Join("testdata", "room.map"))
	require.NoError(t, err)
	return m
}

// ----------------------------------------------------------------------------
// Parse
// ----------------------------------------------------------------------------

func TestLoadRoom(t *testing.T) {
	m := loadRoom(t)
	require.Len(t, m.Entities, 5)
	assert.Equal(t, 2, m.BrushCount())

	world := m.World()
	require.NotNil(t, world)
	assert.Equal(t, "test room", world.Properties["message"])
	require.Len(t, world.Brushes, 1)

	faces := world.Brushes[0].Faces
	require.Len(t, faces, 6)
	assert.Equal(t, [3][3]int{{-256, -256, -16}, {-256, -255, -16}, {-256, -256, -15}}, faces[0].Points)
	assert.Equal(t, "*water1", faces[0].Texture)
	assert.Equal(t, "+0button", faces[1].Texture)
	assert.Equal(t, "sky/night", faces[4].Texture)

	floor := faces[2]
	assert.Equal(t, "GROUND1_6", floor.Texture)
	assert.Equal(t, topology.TextureTransform{
		Offset:   [2]int{16, -8},
		Rotation: 90,
		Scale:    [2]float64{0.5, 0.5},
	}, floor.Transform)
}

func TestParseRoundsFractionalValues(t *testing.T) {
	m := loadRoom(t)
	door := m.Entities[4]
	require.Equal(t, "func_door", door.ClassName())
	require.Len(t, door.Brushes, 1)

	f := door.Brushes[0].Faces[0]
	assert.Equal(t, [3][3]int{{0, 0, 0}, {0, 2, 0}, {0, 0, -3}}, f.Points)
	assert.Equal(t, [2]int{1, 0}, f.Transform.Offset)
}

func TestParseEmpty(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "// only a comment\n"} {
		m, err := Parse(strings.NewReader(src))
		require.NoError(t, err)
		assert.Empty(t, m.Entities)
	}
}

func TestParseQuotedTextureName(t *testing.T) {
	src := `{
"classname" "worldspawn"
{
( 0 0 0 ) ( 0 1 0 ) ( 1 0 0 ) "" 0 0 0 1 1
}
}`
	m, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "", m.Entities[0].Brushes[0].Faces[0].Texture)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"stray token", "classname", 1, "expected '{'"},
		{"unterminated entity", "{\n\"classname\" \"worldspawn\"\n", 2, "end of file in entity"},
		{"unterminated string", "{\n\"classname\n}", 2, "unterminated string"},
		{"unterminated string between entities", "{\n}\n\"wad", 3, "unterminated string"},
		{"unquoted value", "{\n\"classname\" worldspawn\n}", 2, "expected quoted value"},
		{"bad coordinate", "{\n{\n( 0 x 0 ) ( 0 1 0 ) ( 1 0 0 ) T 0 0 0 1 1\n}\n}", 3, "invalid coordinate"},
		{"missing paren", "{\n{\n( 0 0 0 ( 0 1 0 ) ( 1 0 0 ) T 0 0 0 1 1\n}\n}", 3, "expected ')'"},
		{"missing texture", "{\n{\n( 0 0 0 ) ( 0 1 0 ) ( 1 0 0 )\n( 0 0 0 ) ( 0 1 0 ) ( 1 0 0 ) T 0 0 0 1 1\n}\n}", 4, "expected texture name"},
		{"bad texture parameter", "{\n{\n( 0 0 0 ) ( 0 1 0 ) ( 1 0 0 ) T 0 0 zero 1 1\n}\n}", 3, "invalid texture parameter"},
		{"valve format", "{\n{\n( 0 0 0 ) ( 0 1 0 ) ( 1 0 0 ) T [ 1 0 0 0 ] [ 0 1 0 0 ] 0 1 1\n}\n}", 3, "valve 220"},
		{"junk in brush", "{\n{\nfoo\n}\n}", 3, "unexpected \"foo\" in brush"},
		{"unterminated brush", "{\n{\n( 0 0 0 ) ( 0 1 0 ) ( 1 0 0 ) T 0 0 0 1 1\n", 3, "end of file in brush"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
			assert.Equal(t, tt.line, se.Line)
			assert.Contains(t, se.Msg, tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapfile:")
}

func TestLoadSyntaxErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.map")
	require.NoError(t, writeFile(path, "{\n\"classname\"\n"))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.map")
	var se *SyntaxError
	assert.ErrorAs(t, err, &se)
}

// ----------------------------------------------------------------------------
// Accessors
// ----------------------------------------------------------------------------

func TestWAD(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"gfx/base.wad", "gfx/base"},
		{`gfx\base.wad`, "gfx/base"},
		{"base", "base"},
		{"  first.wad;second.wad", "first"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			w := NewEntity(ClassWorld)
			w.Properties[KeyWAD] = tt.value
			m := &Map{Entities: []Entity{w}}
			assert.Equal(t, tt.want, m.WAD())
		})
	}

	assert.Equal(t, "", (&Map{}).WAD())
}

func TestLights(t *testing.T) {
	lights := loadRoom(t).Lights()
	require.Len(t, lights, 2)
	assert.Equal(t, Light{Origin: mgl64.Vec3{0, 0, 128}, Intensity: 200}, lights[0])
	assert.Equal(t, Light{Origin: mgl64.Vec3{64, 64, 96}, Intensity: DefaultLightIntensity}, lights[1])
}

func TestPlayerStart(t *testing.T) {
	ps, ok := loadRoom(t).PlayerStart()
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{32, -64, 24}, ps.Origin)
	assert.Equal(t, 90.0, ps.Angle)

	_, ok = (&Map{Entities: []Entity{NewEntity(ClassWorld)}}).PlayerStart()
	assert.False(t, ok)
}

func TestEntityVec3(t *testing.T) {
	e := NewEntity("info_null")
	e.Properties["a"] = "1 2.5 -3"
	e.Properties["b"] = "1 2"
	e.Properties["c"] = "1 two 3"

	v, ok := e.Vec3("a")
	assert.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 2.5, -3}, v)
	for _, k := range []string{"b", "c", "missing"} {
		_, ok := e.Vec3(k)
		assert.False(t, ok, k)
	}
}

// ----------------------------------------------------------------------------
// Write
// ----------------------------------------------------------------------------

func TestWriteParsesBack(t *testing.T) {
	m := loadRoom(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	again, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestWriteOrdersClassNameFirst(t *testing.T) {
	e := NewEntity("light")
	e.Properties["origin"] = "0 0 0"
	e.Properties["light"] = "250"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Map{Entities: []Entity{e}}))
	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, `"classname" "light"`, lines[2])
	assert.Equal(t, `"light" "250"`, lines[3])
	assert.Equal(t, `"origin" "0 0 0"`, lines[4])
}
