// Package config holds the converter settings, read from a TOML file on top
// of built-in defaults.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chazu/quarry/pkg/spatial"
	"github.com/chazu/quarry/pkg/topology"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full converter configuration.
type Config struct {
	// WeldRadius is the distance under which vertices are merged.
	WeldRadius float64 `toml:"weld_radius"`

	// SeedHalfExtent is the half size of the cube every brush is carved from.
	SeedHalfExtent float64 `toml:"seed_half_extent"`

	// SkipBadBrushes drops brushes that fail to solidify instead of
	// aborting the conversion.
	SkipBadBrushes bool `toml:"skip_bad_brushes"`

	// ToolsDir is searched for ExtractTool before PATH.
	ToolsDir string `toml:"tools_dir"`

	// ExtractTool unpacks a WAD archive into PNG files.
	ExtractTool string `toml:"extract_tool"`

	// DataDir is the root for converted output.
	DataDir string `toml:"data_dir"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// BVHMaxEntries is the R-tree node fan-out.
	BVHMaxEntries int `toml:"bvh_max_entries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WeldRadius:     topology.DefaultWeldRadius,
		SeedHalfExtent: topology.DefaultSeedHalfExtent,
		SkipBadBrushes: true,
		ExtractTool:    "qpakman",
		DataDir:        "data",
		LogLevel:       "info",
		BVHMaxEntries:  spatial.DefaultMaxEntries,
	}
}

// Load reads the TOML file at path over the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	c, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Read decodes TOML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Read(r io.Reader) (*Config, error) {
	c := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks that every numeric setting is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.WeldRadius <= 0 {
		errs = append(errs, fmt.Errorf("weld_radius must be positive, got %v", c.WeldRadius))
	}
	if c.SeedHalfExtent <= 0 {
		errs = append(errs, fmt.Errorf("seed_half_extent must be positive, got %v", c.SeedHalfExtent))
	}
	if c.BVHMaxEntries < 2 {
		errs = append(errs, fmt.Errorf("bvh_max_entries must be at least 2, got %d", c.BVHMaxEntries))
	}
	if strings.TrimSpace(c.ExtractTool) == "" {
		errs = append(errs, errors.New("extract_tool must not be empty"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
