// occlusion - vertex visibility from a viewing dome
// Renders a glTF scene from random points on a hemisphere or sphere around
// it and reports which vertices of each mesh can be seen from anywhere.
//
// Usage:
//
//	occlusion [options] <model.glb>
//
// Per-object counts go to stdout, one line per mesh. With -list the
// indices of the selected vertices follow each count.
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
	"strconv"
	"strings"
	"syscall"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/occlusion/pkg/config"
	"github.com/taigrr/occlusion/pkg/dome"
	"github.com/taigrr/occlusion/pkg/models"
	"github.com/taigrr/occlusion/pkg/render"
	"github.com/taigrr/occlusion/pkg/visibility"
)

var (
	configPath = flag.String("config", "", "Config file (.toml, .yaml or .json)")
	samples    = flag.Int("samples", visibility.DefaultSamples, "Number of viewpoints")
	resolution = flag.Int("res", visibility.DefaultResolution, "Depth buffer resolution in pixels")
	domeKind   = flag.String("dome", "hemisphere", "Viewpoint dome: hemisphere or sphere")
	radius     = flag.Float64("radius", 0, "Dome radius (0 fits the scene)")
	fov        = flag.Float64("fov", visibility.DefaultFOV, "Horizontal field of view in degrees (180 or more for orthographic)")
	epsilon    = flag.Float64("epsilon", visibility.DefaultEpsilon, "Depth tolerance in NDC units")
	seed       = flag.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	hidden     = flag.Bool("hidden", false, "Report occluded vertices instead of visible ones")
	list       = flag.Bool("list", false, "Print vertex indices after each count")
	previewDir = flag.String("preview-dir", "", "Write a depth image per sample to this directory")
	previewExt = flag.String("preview-format", "webp", "Preview image format: webp or png")
	termView   = flag.Bool("term", false, "Draw the last depth buffer to the terminal")
	live       = flag.Bool("live", false, "Show every sample in the terminal while running")
	targetFPS  = flag.Int("fps", 15, "Frames per second for -live")
	verbose    = flag.Bool("v", false, "Log run progress")
	debug      = flag.Bool("vv", false, "Log every sample")
	quiet      = flag.Bool("q", false, "Only log errors")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "occlusion - vertex visibility from a viewing dome\n\n")
		fmt.Fprintf(os.Stderr, "Usage: occlusion [options] <model.glb>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nFlags override values from -config.\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromFlags(*debug, *verbose, *quiet),
	}))

	if err := run(flag.Arg(0), logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// levelFromFlags maps -vv, -v and -q to a log level, checked in that order.
func levelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// overrides collects the flags that were given on the command line.
func overrides() (config.Flags, error) {
	var f config.Flags
	var err error
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "samples":
			f.Samples = samples
		case "res":
			f.Resolution = resolution
		case "dome":
			k, perr := dome.ParseKind(*domeKind)
			if perr != nil {
				err = fmt.Errorf("-dome: %w", perr)
				return
			}
			f.Dome = &k
		case "radius":
			f.Radius = radius
		case "fov":
			f.FOV = fov
		case "epsilon":
			f.Epsilon = epsilon
		case "seed":
			f.Seed = seed
		case "preview-dir":
			f.PreviewDir = previewDir
		}
	})
	return f, err
}

func run(modelPath string, logger *slog.Logger) error {
	if err := render.CheckImageFormat(*previewExt); err != nil {
		return fmt.Errorf("-preview-format: %w", err)
	}

	var file config.Config
	if *configPath != "" {
		var err error
		file, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	flags, err := overrides()
	if err != nil {
		return err
	}
	cfg := config.Resolve(file, flags)

	ext := strings.ToLower(filepath.Ext(modelPath))
	if ext != ".glb" && ext != ".gltf" {
		return fmt.Errorf("unsupported format: %s (use .glb or .gltf)", ext)
	}
	objects, err := models.LoadGLB(modelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	logger.Info("loaded", "path", modelPath, "objects", len(objects))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := []visibility.Option{visibility.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, visibility.WithSeed(cfg.Seed))
	}

	var observers []func(visibility.SampleInfo)
	if cfg.PreviewDir != "" {
		if err := os.MkdirAll(cfg.PreviewDir, 0o755); err != nil {
			return fmt.Errorf("preview dir: %w", err)
		}
		observers = append(observers, previewWriter(cfg.PreviewDir, *previewExt, logger))
	}

	var last *render.DepthBuffer
	if *termView {
		observers = append(observers, func(info visibility.SampleInfo) {
			last = info.Depth.Clone()
		})
	}

	var view *liveView
	if *live {
		view, err = startLiveView(*targetFPS, cfg.Samples, cancel)
		if err != nil {
			return err
		}
		observers = append(observers, view.frame)
	}

	if len(observers) > 0 {
		opts = append(opts, visibility.WithObserver(func(info visibility.SampleInfo) {
			for _, o := range observers {
				o(info)
			}
		}))
	}

	res, err := visibility.Run(ctx, objects, cfg.Params(), opts...)
	if view != nil {
		err = errors.Join(view.stop(), err)
	}
	if err != nil {
		return err
	}

	if last != nil {
		printDepth(os.Stdout, last)
	}
	return report(os.Stdout, objects, res, *hidden, *list)
}

// previewWriter saves each sample's depth with its projected vertices.
func previewWriter(dir, format string, logger *slog.Logger) func(visibility.SampleInfo) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	return func(info visibility.SampleInfo) {
		marks := visibility.ProjectVertices(info.MVP, info.Vertices, info.Depth, info.Epsilon)
		img := render.DepthImage(info.Depth, marks)
		if info.Depth.Width < 256 {
			img = render.Upscale(img, 256/info.Depth.Width)
		}

		path := filepath.Join(dir, fmt.Sprintf("sample_%04d.%s", info.Index, format))
		if err := render.SaveImage(path, img); err != nil {
			logger.Warn("preview", "error", err)
			return
		}
		logger.Debug("preview", "path", path)
	}
}

// printDepth writes the buffer as half-block cells.
func printDepth(w io.Writer, buf *render.DepthBuffer) {
	scr := uv.NewScreenBuffer(buf.Width, (buf.Height+1)/2)
	buf.Draw(scr, scr.Bounds())
	fmt.Fprintln(w, scr.Render())
}

// report prints one line per object: name, selected count and vertex
// count, optionally followed by the selected indices.
func report(w io.Writer, objects []models.Object, res *visibility.Result, hidden, list bool) error {
	sel := res.Visible
	label := "visible"
	if hidden {
		sel = res.Hidden()
		label = "hidden"
	}

	for i, obj := range objects {
		count := 0
		var idx []string
		for k, s := range sel[i] {
			if s {
				count++
				if list {
					idx = append(idx, strconv.Itoa(k))
				}
			}
		}

		name := obj.Name
		if name == "" {
			name = fmt.Sprintf("object %d", i)
		}
		if _, err := fmt.Fprintf(w, "%s: %d/%d %s\n", name, count, len(sel[i]), label); err != nil {
			return err
		}
		if list && len(idx) > 0 {
			if _, err := fmt.Fprintf(w, "  %s\n", strings.Join(idx, " ")); err != nil {
				return err
			}
		}
	}
	return nil
}
