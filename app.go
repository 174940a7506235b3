package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chazu/quarry/pkg/engine"
	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/pipeline"
	"github.com/chazu/quarry/pkg/scene"
	"github.com/chazu/quarry/pkg/textures"
	"github.com/go-gl/mathgl/mgl64"
)

// colorPalette is a default palette used to tell texture meshes apart in a
// viewer that has no texture images.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the conversion backend shared by the CLI and any viewer front end.
type App struct {
	engine *engine.Engine
	opts   pipeline.Options
}

// MeshData is the JSON-serializable mesh format sent to a viewer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	UVs      []float32 `json:"uvs"`
	Indices  []uint32  `json:"indices"`
	Texture  string    `json:"texture"`
	Color    string    `json:"color"`
}

// ErrorData is a JSON-serializable error. Line and Col are 0 when unknown.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to a viewer. Transform maps mesh
// coordinates (Z up) into the viewer's Y-up space.
type EvalResult struct {
	Meshes    []MeshData  `json:"meshes"`
	Transform mgl64.Mat4  `json:"transform"`
	Errors    []ErrorData `json:"errors"`
	Warnings  []ErrorData `json:"warnings"`
}

// NewApp creates an App converting with opts.
func NewApp(opts pipeline.Options) *App {
	return &App{
		engine: engine.NewEngine(),
		opts:   opts,
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:    []MeshData{},
		Transform: pipeline.ZUpToYUp,
		Errors:    []ErrorData{},
		Warnings:  []ErrorData{},
	}
}

// EvaluateScript runs brush-script source and converts the map it declares.
func (a *App) EvaluateScript(source string) EvalResult {
	result := newResult()

	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger().Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, ErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	a.convert(m, nil, &result)
	return result
}

// ConvertMap parses .map source and converts it. set may be nil, in which
// case every texture is unsized.
func (a *App) ConvertMap(source string, set *textures.Set) EvalResult {
	result := newResult()

	m, err := mapfile.Parse(strings.NewReader(source))
	if err != nil {
		var se *mapfile.SyntaxError
		if errors.As(err, &se) {
			result.Errors = append(result.Errors, ErrorData{Line: se.Line, Message: se.Msg})
		} else {
			result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
		}
		return result
	}

	a.convert(m, set, &result)
	return result
}

func (a *App) convert(m *mapfile.Map, set *textures.Set, result *EvalResult) {
	res, err := pipeline.Convert(m, set, a.opts)
	if err != nil {
		a.logger().Error("convert failed", "err", err)
		result.Errors = append(result.Errors, ErrorData{Message: "conversion failed: " + err.Error()})
		return
	}

	for _, skipped := range res.Skipped {
		result.Warnings = append(result.Warnings, ErrorData{
			Message: fmt.Sprintf("entity %d brush %d skipped: %v", skipped.Entity, skipped.Brush, skipped.Err),
		})
	}
	result.Meshes = meshData(res.Scene)
}

// meshData flattens the non-empty scene meshes, assigning palette colors in
// order.
func meshData(s *scene.Scene) []MeshData {
	out := []MeshData{}
	for _, m := range s.Meshes {
		if m.IsEmpty() {
			continue
		}
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			UVs:      m.UVs,
			Indices:  m.Indices,
			Texture:  m.Name,
			Color:    colorPalette[len(out)%len(colorPalette)],
		})
	}
	return out
}

func (a *App) logger() *slog.Logger {
	if a.opts.Logger == nil {
		return slog.Default()
	}
	return a.opts.Logger
}
