// Command quarry converts Quake .map brush geometry, or brush scripts, into
// triangle mesh scenes.
//
//	quarry [-config file] convert [-out dir] [-weld r] [-strict] map.map
//	quarry [-config file] script [-out dir] [-map out.map] file.lisp
//	quarry [-config file] stl -o out.stl map.map|file.lisp
//	quarry [-config file] format map.map|file.lisp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chazu/quarry/pkg/config"
	"github.com/chazu/quarry/pkg/engine"
	"github.com/chazu/quarry/pkg/export"
	"github.com/chazu/quarry/pkg/mapfile"
	"github.com/chazu/quarry/pkg/pipeline"
)

const usage = `usage: quarry [-config file] <command> [flags] <input>

commands:
  convert   convert a .map file and its textures to a JSON scene
  script    evaluate a brush script and convert it to a JSON scene
  stl       write the geometry of a .map file or brush script as STL
  format    print a .map file or brush script in .map format
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "quarry:", err)
		os.Exit(1)
	}
}

// cli carries what every command needs.
type cli struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("quarry", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "TOML configuration `file`")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	c := &cli{
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
		stderr: stderr,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "convert":
		return c.convert(ctx, rest)
	case "script":
		return c.script(rest)
	case "stl":
		return c.stl(rest)
	case "format":
		return c.format(rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// flags returns a flag set for a subcommand.
func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("quarry "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// input parses fs and returns its single positional argument.
func input(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one input file, got %d", fs.Name(), fs.NArg())
	}
	return fs.Arg(0), nil
}

func (c *cli) options() pipeline.Options {
	opts := pipeline.OptionsFromConfig(c.cfg)
	opts.Logger = c.log
	return opts
}

func (c *cli) convert(ctx context.Context, args []string) error {
	fs := c.flags("convert")
	out := fs.String("out", c.cfg.DataDir, "output `dir`")
	weld := fs.Float64("weld", c.cfg.WeldRadius, "weld `radius`")
	strict := fs.Bool("strict", !c.cfg.SkipBadBrushes, "abort on the first brush that fails")
	path, err := input(fs, args)
	if err != nil {
		return err
	}

	c.cfg.DataDir = *out
	c.cfg.WeldRadius = *weld
	c.cfg.SkipBadBrushes = !*strict
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	res, err := pipeline.ConvertFile(ctx, path, c.cfg, c.options())
	if err != nil {
		return err
	}
	return c.writeScene(path, *out, res)
}

func (c *cli) script(args []string) error {
	fs := c.flags("script")
	out := fs.String("out", c.cfg.DataDir, "output `dir`")
	mapOut := fs.String("map", "", "also write the scripted map to `file`")
	path, err := input(fs, args)
	if err != nil {
		return err
	}

	m, err := evaluateScript(path)
	if err != nil {
		return err
	}
	if *mapOut != "" {
		if err := writeMap(*mapOut, m); err != nil {
			return err
		}
	}
	res, err := pipeline.Convert(m, nil, c.options())
	if err != nil {
		return err
	}
	return c.writeScene(path, *out, res)
}

func (c *cli) stl(args []string) error {
	fs := c.flags("stl")
	out := fs.String("o", "", "output `file`")
	path, err := input(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return errors.New("stl: -o is required")
	}

	m, err := load(path)
	if err != nil {
		return err
	}
	res, err := pipeline.Convert(m, nil, c.options())
	if err != nil {
		return err
	}
	if err := export.WriteSTL(*out, res.Scene); err != nil {
		return err
	}
	c.log.Info("wrote stl", "file", *out, "triangles", res.Scene.TriangleCount())
	return nil
}

func (c *cli) format(args []string) error {
	path, err := input(c.flags("format"), args)
	if err != nil {
		return err
	}
	m, err := load(path)
	if err != nil {
		return err
	}
	return mapfile.Write(c.stdout, m)
}

// writeScene writes res as <out>/<input name>.json.
func (c *cli) writeScene(path, out string, res *pipeline.Result) error {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".json"
	dst := filepath.Join(out, name)
	if err := writeFile(dst, func(w io.Writer) error { return export.WriteJSON(w, res.Scene) }); err != nil {
		return err
	}

	c.log.Info("converted",
		"input", path,
		"output", dst,
		"brushes", res.Map.BrushCount(),
		"skipped", len(res.Skipped),
		"textures", res.Textures.Len(),
		"triangles", res.Scene.TriangleCount(),
	)
	return nil
}

// load reads a .map file, or evaluates a brush script when path ends in
// .lisp.
func load(path string) (*mapfile.Map, error) {
	if strings.EqualFold(filepath.Ext(path), ".lisp") {
		return evaluateScript(path)
	}
	return mapfile.Load(path)
}

func evaluateScript(path string) (*mapfile.Map, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
	}
	return m, nil
}

func writeMap(path string, m *mapfile.Map) error {
	return writeFile(path, func(w io.Writer) error { return mapfile.Write(w, m) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
