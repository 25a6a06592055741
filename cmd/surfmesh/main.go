package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	dvec2 "github.com/flywave/go3d/float64/vec2"
	"github.com/schollz/progressbar/v3"

	surfmesh "github.com/flywave/go-surfmesh"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: surfmesh [-config file] <command> [flags]

commands:
  gen      generate a mesh for an expression or preset
  presets  list built-in functions
  batch    generate every preset
  cache    ls | clear
`)
}

type app struct {
	cfg     *surfmesh.Config
	logger  *slog.Logger
	session *surfmesh.Session
	catalog *surfmesh.Catalog
}

func (a *app) open() error {
	cache, err := surfmesh.NewVertexCache(a.cfg.CacheDir, a.cfg.Tuning, a.logger)
	if err != nil {
		return err
	}
	opts := []surfmesh.SessionOption{surfmesh.WithLogger(a.logger)}
	if a.cfg.CatalogPath != "" {
		catalog, err := surfmesh.OpenCatalog(a.cfg.CatalogPath, a.logger)
		if err != nil {
			a.logger.Warn("catalog disabled", "path", a.cfg.CatalogPath, "error", err)
		} else {
			a.catalog = catalog
			opts = append(opts, surfmesh.WithCatalog(catalog))
		}
	}
	a.session = surfmesh.NewSession(cache, opts...)
	return nil
}

func (a *app) close() {
	if a.catalog != nil {
		a.catalog.Close()
	}
}

// requestFlags 注册分辨率、范围和模式参数, 默认值取自配置
func (a *app) requestFlags(fs *flag.FlagSet) func(expression string) (surfmesh.MeshRequest, error) {
	res := fs.Float64("res", a.cfg.Resolution, "grid resolution")
	ex := fs.Float64("ex", a.cfg.Extents[0], "half width of the domain along x")
	ey := fs.Float64("ey", a.cfg.Extents[1], "half height of the domain along y")
	adaptive := fs.Bool("adaptive", a.cfg.Adaptive, "use curvature-adaptive subdivision")
	return func(expression string) (surfmesh.MeshRequest, error) {
		return surfmesh.NewMeshRequest(expression, *res, dvec2.T{*ex, *ey}, *adaptive)
	}
}

func (a *app) runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	expression := fs.String("expr", "", "expression in x and y")
	preset := fs.Int("preset", 0, "preset index (see `surfmesh presets`)")
	out := fs.String("o", "", "write the lifted surface as GLB")
	build := a.requestFlags(fs)
	fs.Parse(args)

	src := *expression
	if *preset > 0 {
		p, ok := surfmesh.PresetByIndex(*preset)
		if !ok {
			return fmt.Errorf("preset %d out of range 1..%d", *preset, surfmesh.PresetCount())
		}
		src = p.Expression
	}
	if src == "" {
		return errors.New("gen: -expr or -preset is required")
	}
	req, err := build(src)
	if err != nil {
		return err
	}

	if err := a.open(); err != nil {
		return err
	}
	defer a.close()

	m, err := a.session.GenerateMesh(req)
	if err != nil {
		return err
	}
	fmt.Printf("f(x,y) = %s\n", req.Expression)
	fmt.Printf("key:       %s\n", m.Key)
	fmt.Printf("vertices:  %d (%d triangles)\n", m.VertexCount(), m.TriangleCount())
	fmt.Printf("height:    [%g, %g]\n", m.Range.Min, m.Range.Max)
	fmt.Printf("cached:    %t\n", m.Cached)

	if *out != "" {
		if err := a.writeSurface(*out, m); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *out)
	}
	return nil
}

func (a *app) writeSurface(path string, m *surfmesh.Mesh) error {
	fn, _ := surfmesh.Compile(m.Request.Expression)
	s := surfmesh.Lift(m, fn)
	s.Material = a.cfg.Material
	return surfmesh.ExportGLBFile(path, s)
}

func runPresets() {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	category := ""
	for i, p := range surfmesh.Presets() {
		if p.Category != category {
			category = p.Category
			fmt.Fprintf(w, "\n%s:\n", category)
		}
		fmt.Fprintf(w, "  %2d.\t%s\tf(x,y) = %s\n", i+1, p.Name, p.Expression)
	}
	w.Flush()
}

func (a *app) runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	out := fs.String("o", "", "directory for GLB output")
	build := a.requestFlags(fs)
	fs.Parse(args)

	if err := a.open(); err != nil {
		return err
	}
	defer a.close()

	presets := surfmesh.Presets()
	names := make(map[int]string)
	for _, p := range presets {
		req, err := build(p.Expression)
		if err != nil {
			return err
		}
		f, err := a.session.Add(req)
		if err != nil {
			return err
		}
		names[f.ID] = p.Name
	}

	pb := progressbar.Default(int64(len(presets)), "generating")
	defer pb.Close()

	var errs []error
	for _, f := range a.session.Active() {
		if err := a.session.Update(f); err != nil {
			errs = append(errs, err)
			pb.Add(1)
			continue
		}
		if *out != "" {
			name := strings.ReplaceAll(strings.ToLower(names[f.ID]), " ", "_") + ".glb"
			if err := a.writeSurface(filepath.Join(*out, name), f.Mesh()); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", names[f.ID], err))
			}
		}
		pb.Add(1)
	}
	return errors.Join(errs...)
}

func (a *app) runCache(args []string) error {
	if len(args) == 0 {
		return errors.New("cache: expected ls or clear")
	}
	if err := a.open(); err != nil {
		return err
	}
	defer a.close()
	cache := a.session.Cache()

	switch args[0] {
	case "ls":
		keys, err := cache.Entries()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "KEY\tVERTICES\tEXPRESSION\n")
		for _, key := range keys {
			if a.catalog == nil {
				fmt.Fprintf(w, "%s\t-\t-\n", key)
				continue
			}
			rec, err := a.catalog.Lookup(key)
			if err != nil || rec == nil {
				fmt.Fprintf(w, "%s\t-\t-\n", key)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", key, rec.VertexCount, rec.Expression)
		}
		w.Flush()
		fmt.Printf("%d entries in %s\n", len(keys), cache.Dir())
		return nil
	case "clear":
		if err := cache.Clear(); err != nil {
			return err
		}
		if a.catalog != nil {
			if err := a.catalog.Clear(); err != nil {
				return err
			}
		}
		fmt.Printf("cleared %s\n", cache.Dir())
		return nil
	default:
		return fmt.Errorf("cache: unknown subcommand %q", args[0])
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		return errors.New("missing command")
	}

	cfg, err := surfmesh.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "gen":
		return a.runGen(args)
	case "presets":
		runPresets()
		return nil
	case "batch":
		return a.runBatch(args)
	case "cache":
		return a.runCache(args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "surfmesh: %v\n", err)
		os.Exit(1)
	}
}
