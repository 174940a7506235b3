package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/topology"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms brush script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: player-start -> player_start
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps an mgl64.Vec3.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpFace wraps one brush plane so it can be returned from `face` and
// consumed by `brush`.
type sexpFace struct {
	face topology.FaceDescriptor
}

func (f *sexpFace) SexpString(ps *zygo.PrintState) string {
	p := f.face.Points
	return fmt.Sprintf("(face (%d %d %d) (%d %d %d) (%d %d %d) %q)",
		p[0][0], p[0][1], p[0][2], p[1][0], p[1][1], p[1][2], p[2][0], p[2][1], p[2][2], f.face.Texture)
}
func (f *sexpFace) Type() *zygo.RegisteredType { return nil }

// sexpBrush wraps a brush so it can be passed to `entity` and `worldspawn`.
type sexpBrush struct {
	brush topology.BrushDescriptor
}

func (b *sexpBrush) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(brush %d faces)", len(b.brush.Faces))
}
func (b *sexpBrush) Type() *zygo.RegisteredType { return nil }

// sexpEntityRef refers to an entity already added to the map.
type sexpEntityRef struct {
	index int
	class string
}

func (e *sexpEntityRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(entity %d %q)", e.index, e.class)
}
func (e *sexpEntityRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if _, seen := result.kw[name]; !seen {
				result.order = append(result.order, name)
			}
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toGridPoint rounds a vec3 to the integer grid plane points live on.
func toGridPoint(s zygo.Sexp) ([3]int, error) {
	v, err := toVec3(s)
	if err != nil {
		return [3]int{}, err
	}
	return [3]int{int(math.Round(v[0])), int(math.Round(v[1])), int(math.Round(v[2]))}, nil
}

// toPropertyValue formats a number, string, keyword or vec3 as an entity
// property value.
func toPropertyValue(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return formatVec3(v.vec), nil
	case *zygo.SexpInt, *zygo.SexpFloat:
		f, _ := toFloat64(v)
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case *zygo.SexpStr:
		return toKeywordString(v)
	}
	return "", fmt.Errorf("expected number, string or vec3, got %T (%s)", s, s.SexpString(nil))
}

func formatVec3(v mgl64.Vec3) string {
	return strconv.FormatFloat(v[0], 'g', -1, 64) + " " +
		strconv.FormatFloat(v[1], 'g', -1, 64) + " " +
		strconv.FormatFloat(v[2], 'g', -1, 64)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toBrushes collects brushes from positional arguments. Lists and arrays
// of brushes are flattened so scripts can build brushes in loops.
func toBrushes(args []zygo.Sexp) ([]topology.BrushDescriptor, error) {
	var out []topology.BrushDescriptor
	for i, a := range args {
		if b, ok := a.(*sexpBrush); ok {
			out = append(out, b.brush)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: expected brush, got %T (%s)", i, a, a.SexpString(nil))
		}
		nested, err := toBrushes(items)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, nested...)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Map construction
// ---------------------------------------------------------------------------

// boxFaces returns the six axis-aligned planes of the box [lo, hi], with
// points ordered the way map files list them.
func boxFaces(lo, hi [3]int, tex string, tr topology.TextureTransform) []topology.FaceDescriptor {
	var faces []topology.FaceDescriptor
	for axis := range 3 {
		faces = append(faces,
			axisFace(axis, 1, hi[axis], tex, tr),
			axisFace(axis, -1, lo[axis], tex, tr),
		)
	}
	return faces
}

// axisFace returns the plane where coordinate axis equals c, facing the
// sign direction.
func axisFace(axis, sign, c int, tex string, tr topology.TextureTransform) topology.FaceDescriptor {
	var u, v, p [3]int
	u[(axis+1)%3] = 1
	v[(axis+2)%3] = 1
	if sign < 0 {
		u, v = v, u
	}
	p[axis] = c
	return topology.FaceDescriptor{
		Points:    [3][3]int{p, addGrid(p, v), addGrid(p, u)},
		Texture:   tex,
		Transform: tr,
	}
}

func addGrid(a, b [3]int) [3]int {
	return [3]int{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// textureTransform reads :offset, :rotation and :scale.
func textureTransform(fn string, pa kwArgs) (topology.TextureTransform, error) {
	tr := topology.DefaultTextureTransform()
	if v, ok := pa.kw["offset"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return tr, fmt.Errorf("%s: offset: %w", fn, err)
		}
		tr.Offset = [2]int{int(math.Round(vec[0])), int(math.Round(vec[1]))}
	}
	if v, ok := pa.kw["rotation"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return tr, fmt.Errorf("%s: rotation: %w", fn, err)
		}
		tr.Rotation = int(math.Round(f))
	}
	if v, ok := pa.kw["scale"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return tr, fmt.Errorf("%s: scale: %w", fn, err)
		}
		tr.Scale = [2]float64{vec[0], vec[1]}
	}
	return tr, nil
}

// textureName reads :texture, defaulting to empty.
func textureName(fn string, pa kwArgs) (string, error) {
	v, ok := pa.kw["texture"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: texture: %w", fn, err)
	}
	return s, nil
}

// addEntity builds an entity of class from keyword properties and
// positional brushes, appends it to m and returns a reference to it.
// The class argument always wins over a :classname keyword.
func addEntity(m *mapfile.Map, fn, class string, pa kwArgs) (zygo.Sexp, error) {
	e := mapfile.NewEntity(class)
	for _, k := range pa.order {
		if k == mapfile.KeyClassName {
			continue
		}
		val, err := toPropertyValue(pa.kw[k])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, k, err)
		}
		e.Properties[k] = val
	}
	brushes, err := toBrushes(pa.positional)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	e.Brushes = brushes
	m.Entities = append(m.Entities, e)
	return &sexpEntityRef{index: len(m.Entities) - 1, class: class}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the brush scripting builtins into a zygomys
// environment. Entities are appended to m as they are evaluated.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, m *mapfile.Map) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: mgl64.Vec3{x, y, z}}, nil
	})

	// -----------------------------------------------------------------------
	// (face p1 p2 p3 :texture "t" :offset (vec3 u v 0) :rotation r
	//       :scale (vec3 su sv 0))
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("face requires exactly 3 points, got %d", len(pa.positional))
		}

		var f topology.FaceDescriptor
		for i, p := range pa.positional {
			pt, err := toGridPoint(p)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("face: point %d: %w", i+1, err)
			}
			f.Points[i] = pt
		}
		tex, err := textureName("face", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		f.Texture = tex
		if f.Transform, err = textureTransform("face", pa); err != nil {
			return zygo.SexpNull, err
		}

		return &sexpFace{face: f}, nil
	})

	// -----------------------------------------------------------------------
	// (brush (face ...) (face ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("brush", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 4 {
			return zygo.SexpNull, fmt.Errorf("brush requires at least 4 faces, got %d", len(args))
		}

		var b topology.BrushDescriptor
		for i, a := range args {
			f, ok := a.(*sexpFace)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("brush: argument %d: expected face, got %T (%s)",
					i+1, a, a.SexpString(nil))
			}
			b.Faces = append(b.Faces, f.face)
		}

		return &sexpBrush{brush: b}, nil
	})

	// -----------------------------------------------------------------------
	// (box :min (vec3 0 0 0) :max (vec3 64 64 64) :texture "t")
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		minV, ok := pa.kw["min"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("box requires :min")
		}
		maxV, ok := pa.kw["max"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("box requires :max")
		}
		lo, err := toGridPoint(minV)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: min: %w", err)
		}
		hi, err := toGridPoint(maxV)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: max: %w", err)
		}
		for i := range 3 {
			if lo[i] > hi[i] {
				lo[i], hi[i] = hi[i], lo[i]
			}
			if lo[i] == hi[i] {
				return zygo.SexpNull, fmt.Errorf("box: zero size along axis %d", i)
			}
		}

		tex, err := textureName("box", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		tr, err := textureTransform("box", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		return &sexpBrush{brush: topology.BrushDescriptor{Faces: boxFaces(lo, hi, tex, tr)}}, nil
	})

	// -----------------------------------------------------------------------
	// (entity :classname "func_door" :angle -1 :origin (vec3 0 0 0) brush...)
	// -----------------------------------------------------------------------
	env.AddFunction("entity", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["classname"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("entity requires :classname")
		}
		class, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("entity: classname: %w", err)
		}
		if class == mapfile.ClassWorld {
			return zygo.SexpNull, fmt.Errorf("entity: use worldspawn for the world entity")
		}
		return addEntity(m, "entity", class, pa)
	})

	// -----------------------------------------------------------------------
	// (worldspawn :wad "gfx/base" brush...)
	// -----------------------------------------------------------------------
	env.AddFunction("worldspawn", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if m.World() != nil {
			return zygo.SexpNull, fmt.Errorf("worldspawn: the map already has a world entity")
		}
		return addEntity(m, "worldspawn", mapfile.ClassWorld, parseArgs(args))
	})

	// -----------------------------------------------------------------------
	// (light :origin (vec3 0 0 128) :light 300)
	// -----------------------------------------------------------------------
	env.AddFunction("light", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if _, ok := pa.kw["origin"]; !ok {
			return zygo.SexpNull, fmt.Errorf("light requires :origin")
		}
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("light: point lights take no brushes")
		}
		return addEntity(m, "light", "light", pa)
	})

	// -----------------------------------------------------------------------
	// (player-start :origin (vec3 0 0 24) :angle 90)
	//
	// Registered as "player_start"; the preprocessor converts the kebab-case
	// spelling.
	// -----------------------------------------------------------------------
	env.AddFunction("player_start", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if _, ok := pa.kw["origin"]; !ok {
			return zygo.SexpNull, fmt.Errorf("player-start requires :origin")
		}
		if _, ok := m.PlayerStart(); ok {
			return zygo.SexpNull, fmt.Errorf("player-start: the map already has a player start")
		}
		return addEntity(m, "player-start", mapfile.ClassPlayerStart, pa)
	})
}
