package visibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/taigrr/occlusion/pkg/dome"
	"github.com/taigrr/occlusion/pkg/math3d"
	"github.com/taigrr/occlusion/pkg/models"
	"github.com/taigrr/occlusion/pkg/render"
)

// SampleInfo describes one finished sample. Depth is owned by the
// rasterizer and only valid during the observer call.
type SampleInfo struct {
	Index     int
	Viewpoint dome.Viewpoint
	MVP       math3d.Mat4
	Depth     *render.DepthBuffer
	Vertices  []math3d.Vec3
	Epsilon   float64
	Seen      int // Vertices that passed in this sample
	Total     int // Vertices seen in any sample so far
}

// Result holds the per-object visibility of a run.
type Result struct {
	// Visible has one slice per input object, one entry per vertex.
	Visible [][]bool
	Samples int
	Dome    dome.Dome
	Near    float64
	Far     float64
}

// Hidden returns the complement of Visible.
func (r *Result) Hidden() [][]bool {
	return models.Invert(r.Visible)
}

// Counts returns the number of visible vertices per object.
func (r *Result) Counts() []int {
	counts := make([]int, len(r.Visible))
	for i, sel := range r.Visible {
		for _, v := range sel {
			if v {
				counts[i]++
			}
		}
	}
	return counts
}

// Option configures Run.
type Option func(*options)

type options struct {
	sampler  dome.Sampler
	factory  render.Factory
	logger   *slog.Logger
	observer func(SampleInfo)
}

// WithSampler sets the random source for viewpoints. Without it Run seeds
// a generator from the clock.
func WithSampler(s dome.Sampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithSeed is WithSampler with a seeded math/rand generator.
func WithSeed(seed int64) Option {
	return WithSampler(dome.NewSeededSampler(seed))
}

// WithRasterizer sets the rasterizer factory. The default is the software
// rasterizer.
func WithRasterizer(f render.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithLogger sets the logger for progress messages. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers a callback run after every sample, for previews
// and progress reporting.
func WithObserver(fn func(SampleInfo)) Option {
	return func(o *options) { o.observer = fn }
}

// Run samples params.Samples viewpoints around the combined objects and
// returns which vertices of each object were seen from at least one.
//
// Parameters are checked before a rasterizer is created. The rasterizer is
// created once, reused for every sample and closed before Run returns.
// Cancelling ctx stops the run between samples and returns the context
// error without a partial result.
func Run(ctx context.Context, objects []models.Object, params Params, opts ...Option) (_ *Result, err error) {
	o := options{
		factory: render.SoftwareFactory,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampler == nil {
		o.sampler = dome.NewRandomSampler(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	geom, err := models.Combine(objects)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	s, err := params.resolve(geom.Bounds())
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	o.logger.Info("visibility run",
		"objects", len(objects),
		"vertices", geom.VertexCount(),
		"triangles", geom.TriangleCount(),
		"samples", params.Samples,
		"dome", s.dome.Kind,
		"radius", s.dome.Radius,
		"near", s.projection.Near,
		"far", s.projection.Far,
	)

	raster, err := o.factory(params.Width, params.Height)
	if err != nil {
		if !errors.Is(err, render.ErrRasterizerUnavailable) {
			err = fmt.Errorf("%w: %w", render.ErrRasterizerUnavailable, err)
		}
		return nil, fmt.Errorf("run: %w", err)
	}
	defer func() {
		if cerr := raster.Close(); cerr != nil {
			o.logger.Warn("close rasterizer", "error", cerr)
			if err == nil {
				err = fmt.Errorf("run: close rasterizer: %w", cerr)
			}
		}
	}()

	if err := raster.Bind(geom); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	acc := NewAccumulator(geom.VertexCount())
	acc.Epsilon = s.epsilon

	for i := range params.Samples {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run: stopped before sample %d: %w", i, err)
		}

		vp, err := s.dome.Sample(o.sampler)
		if err != nil {
			return nil, fmt.Errorf("run: sample %d: %w", i, err)
		}
		view, ok := s.dome.ViewTransform(vp).Inverse()
		if !ok {
			return nil, fmt.Errorf("run: sample %d: %w: singular view transform", i, ErrInvalidParameter)
		}
		mvp := s.matrix.Mul(view)

		depth, err := raster.RenderDepth(mvp)
		if err != nil {
			return nil, fmt.Errorf("run: sample %d: %w", i, err)
		}
		seen := acc.Accumulate(mvp, geom.Vertices, depth)
		total := acc.Count()

		o.logger.Debug("sample",
			"index", i,
			"position", vp.Position,
			"forward", vp.Forward(),
			"seen", seen,
			"total", total,
		)
		if sr, ok := raster.(interface{ Stats() render.RenderStats }); ok {
			stats := sr.Stats()
			o.logger.Debug("rasterized",
				"index", i,
				"culled", stats.Culled,
				"clipped", stats.Clipped,
				"fragments", stats.Fragments,
			)
		}

		if o.observer != nil {
			o.observer(SampleInfo{
				Index:     i,
				Viewpoint: vp,
				MVP:       mvp,
				Depth:     depth,
				Vertices:  geom.Vertices,
				Epsilon:   s.epsilon,
				Seen:      seen,
				Total:     total,
			})
		}
	}

	visible, err := models.Split(acc.Seen, geom.Ranges)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	o.logger.Info("visibility done", "visible", acc.Count(), "vertices", geom.VertexCount())

	return &Result{
		Visible: visible,
		Samples: params.Samples,
		Dome:    s.dome,
		Near:    s.projection.Near,
		Far:     s.projection.Far,
	}, nil
}
