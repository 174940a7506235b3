package textures

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Workspace is a directory that an extraction tool writes into. The process
// working directory is never changed; commands run with their own Dir.
type Workspace struct {
	dir string
}

// NewWorkspace creates a new empty directory in parent whose name starts
// with prefix. Existing directories are never reused, so Close only ever
// removes what the workspace created.
func NewWorkspace(parent, prefix string) (*Workspace, error) {
	dir, err := os.MkdirTemp(parent, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("textures: create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Command returns a command that runs inside the workspace.
func (w *Workspace) Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = w.dir
	return cmd
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("textures: remove workspace: %w", err)
	}
	return nil
}

// ExtractError is returned when the extraction tool fails.
type ExtractError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ExtractError) Error() string {
	msg := fmt.Sprintf("textures: %s: %v", e.Tool, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Extract runs "tool -extract wadPath" inside ws.
func Extract(ctx context.Context, tool, wadPath string, ws *Workspace) error {
	abs, err := filepath.Abs(wadPath)
	if err != nil {
		return fmt.Errorf("textures: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("textures: %w", err)
	}

	var out bytes.Buffer
	cmd := ws.Command(ctx, tool, "-extract", abs)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return &ExtractError{Tool: tool, Output: out.String(), Err: err}
	}
	return nil
}

// ResolveTool finds an executable named tool in dir, falling back to PATH.
func ResolveTool(dir, tool string) (string, error) {
	if dir != "" {
		candidate := filepath.Join(dir, tool)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("textures: %w", err)
	}
	return path, nil
}

// Paths returns the archive for a map and the parent and prefix of the
// workspace it is extracted into. The map's wad key is resolved relative to
// the map file's directory.
func Paths(mapPath, wad string) (wadPath, parent, prefix string) {
	base := filepath.Join(filepath.Dir(mapPath), filepath.FromSlash(wad))
	return base + ".wad", filepath.Dir(base), filepath.Base(base)
}
