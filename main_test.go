package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/quarry/pkg/mapfile"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func readScene(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scene: %v", err)
	}
	var s map[string]any
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	return s
}

func TestCLIConvert(t *testing.T) {
	out := t.TempDir()
	_, stderr, err := runCLI(t, "convert", "-out", out, "examples/courtyard.map")
	if err != nil {
		t.Fatalf("convert failed: %v\n%s", err, stderr)
	}

	s := readScene(t, filepath.Join(out, "courtyard.json"))
	meshes, _ := s["meshes"].([]any)
	if len(meshes) != 3 {
		t.Errorf("expected 3 meshes, got %d", len(meshes))
	}
	lights, _ := s["lights"].([]any)
	if len(lights) != 1 {
		t.Errorf("expected 1 light, got %d", len(lights))
	}
	if !strings.Contains(stderr, "msg=converted") {
		t.Errorf("expected a conversion log line, got:\n%s", stderr)
	}
	// The example names a wad that does not ship with the repo.
	if !strings.Contains(stderr, "level=WARN") {
		t.Errorf("expected a missing wad warning, got:\n%s", stderr)
	}
}

func TestCLIConvertRejectsBadWeld(t *testing.T) {
	_, _, err := runCLI(t, "convert", "-out", t.TempDir(), "-weld", "0", "examples/courtyard.map")
	if err == nil || !strings.Contains(err.Error(), "weld_radius") {
		t.Fatalf("expected weld_radius error, got %v", err)
	}
}

func TestCLIScript(t *testing.T) {
	out := t.TempDir()
	mapPath := filepath.Join(out, "room.map")
	_, stderr, err := runCLI(t, "script", "-out", out, "-map", mapPath, "examples/room.lisp")
	if err != nil {
		t.Fatalf("script failed: %v\n%s", err, stderr)
	}

	s := readScene(t, filepath.Join(out, "room.json"))
	if meshes, _ := s["meshes"].([]any); len(meshes) != 3 {
		t.Errorf("expected 3 meshes, got %d", len(meshes))
	}

	m, err := mapfile.Load(mapPath)
	if err != nil {
		t.Fatalf("scripted map does not parse: %v", err)
	}
	if m.BrushCount() != 6 {
		t.Errorf("expected 6 brushes, got %d", m.BrushCount())
	}
	if got := m.World().Properties["message"]; got != "example room" {
		t.Errorf("message = %q", got)
	}
}

func TestCLIScriptError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.lisp")
	if err := os.WriteFile(path, []byte("(worldspawn (box :min (vec3 0 0 0)))"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, "script", "-out", dir, path)
	if err == nil || !strings.Contains(err.Error(), "broken.lisp") {
		t.Fatalf("expected an error naming the script, got %v", err)
	}
}

func TestCLISTL(t *testing.T) {
	for _, input := range []string{"examples/courtyard.map", "examples/room.lisp"} {
		t.Run(filepath.Base(input), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.stl")
			if _, stderr, err := runCLI(t, "stl", "-o", out, input); err != nil {
				t.Fatalf("stl failed: %v\n%s", err, stderr)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatal(err)
			}
			// Binary STL: 80 byte header, count, 50 bytes per triangle.
			if info.Size() <= 84 || (info.Size()-84)%50 != 0 {
				t.Errorf("unexpected stl size %d", info.Size())
			}
		})
	}
}

func TestCLISTLRequiresOutput(t *testing.T) {
	if _, _, err := runCLI(t, "stl", "examples/courtyard.map"); err == nil {
		t.Fatal("expected an error without -o")
	}
}

func TestCLIFormat(t *testing.T) {
	stdout, _, err := runCLI(t, "format", "examples/courtyard.map")
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	formatted, err := mapfile.Parse(strings.NewReader(stdout))
	if err != nil {
		t.Fatalf("formatted output does not parse: %v", err)
	}
	original, err := mapfile.Load("examples/courtyard.map")
	if err != nil {
		t.Fatal(err)
	}
	if formatted.BrushCount() != original.BrushCount() || len(formatted.Entities) != len(original.Entities) {
		t.Errorf("format changed the map: %d/%d brushes, %d/%d entities",
			formatted.BrushCount(), original.BrushCount(), len(formatted.Entities), len(original.Entities))
	}
	if !strings.HasPrefix(stdout, "// entity 0\n{\n\"classname\" \"worldspawn\"") {
		t.Errorf("unexpected output start:\n%.80s", stdout)
	}
}

func TestCLIConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "quarry.toml")
	if err := os.WriteFile(cfg, []byte("log_level = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, stderr, err := runCLI(t, "-config", cfg, "convert", "-out", dir, "examples/courtyard.map")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if stderr != "" {
		t.Errorf("expected no log output at error level, got:\n%s", stderr)
	}

	if err := os.WriteFile(cfg, []byte("weld = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, "-config", cfg, "format", "examples/courtyard.map"); err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
}

func TestCLIUsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"explode", "examples/courtyard.map"},
		{"format"},
		{"format", "a.map", "b.map"},
	}
	for _, args := range tests {
		if _, _, err := runCLI(t, args...); err == nil {
			t.Errorf("run(%q): expected an error", args)
		}
	}
}
