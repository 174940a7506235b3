package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chazu/quarry/pkg/config"
	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/textures"
)

// OptionsFromConfig maps configuration onto conversion options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WeldRadius:     cfg.WeldRadius,
		HalfExtent:     cfg.SeedHalfExtent,
		SkipBadBrushes: cfg.SkipBadBrushes,
		BVHMaxEntries:  cfg.BVHMaxEntries,
	}
}

// ConvertFile loads the map at mapPath, extracts the textures of its WAD
// next to it, converts it and copies the textures under cfg.DataDir. The
// extraction directory is removed before returning. A map without a WAD,
// or whose WAD or extraction tool is missing, converts with zero-sized
// textures.
func ConvertFile(ctx context.Context, mapPath string, cfg *config.Config, opts Options) (*Result, error) {
	m, err := mapfile.Load(mapPath)
	if err != nil {
		return nil, err
	}
	set, err := loadTextures(ctx, mapPath, m.WAD(), cfg, opts)
	if err != nil {
		return nil, err
	}
	return Convert(m, set, opts)
}

func loadTextures(ctx context.Context, mapPath, wad string, cfg *config.Config, opts Options) (*textures.Set, error) {
	log := opts.logger()
	if wad == "" {
		log.Info("map names no wad, textures will be unsized")
		return textures.NewSet(), nil
	}

	wadPath, parent, prefix := textures.Paths(mapPath, wad)
	if _, err := os.Stat(wadPath); errors.Is(err, fs.ErrNotExist) {
		log.Warn("wad not found, textures will be unsized", "wad", wadPath)
		return textures.NewSet(), nil
	}
	tool, err := textures.ResolveTool(cfg.ToolsDir, cfg.ExtractTool)
	if err != nil {
		log.Warn("extraction tool not found, textures will be unsized", "tool", cfg.ExtractTool, "err", err)
		return textures.NewSet(), nil
	}

	ws, err := textures.NewWorkspace(parent, prefix)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.Warn("cleanup failed", "dir", ws.Dir(), "err", err)
		}
	}()

	if err := textures.Extract(ctx, tool, wadPath, ws); err != nil {
		return nil, err
	}
	set, err := textures.LoadDirectory(ws.Dir())
	if err != nil {
		return nil, err
	}
	log.Debug("extracted textures", "wad", wadPath, "count", set.Len())

	if cfg.DataDir == "" {
		return set, nil
	}
	out, err := textures.Persist(set, filepath.Join(cfg.DataDir, "textures", filepath.FromSlash(wad)))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return out, nil
}
