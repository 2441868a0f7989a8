// Package render rasterizes combined scene geometry into depth buffers and
// turns depth buffers into preview images.
package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/occlusion/pkg/math3d"
	"github.com/taigrr/occlusion/pkg/models"
)

var (
	// ErrRasterizerUnavailable is returned when a rasterizer cannot be
	// created or has been closed.
	ErrRasterizerUnavailable = errors.New("rasterizer unavailable")
	// ErrNotBound is returned by RenderDepth before any geometry is bound.
	ErrNotBound = errors.New("no geometry bound")
)

// DepthRasterizer renders the depth of bound geometry for a given
// model-view-projection matrix. Implementations are used from a single
// goroutine.
type DepthRasterizer interface {
	// Bind uploads geometry for subsequent renders. The geometry must not
	// change while bound.
	Bind(g *models.CombinedGeometry) error
	// RenderDepth draws the bound geometry. The returned buffer may be
	// reused by the next call.
	RenderDepth(mvp math3d.Mat4) (*DepthBuffer, error)
	// Close releases the rasterizer. It is safe to call more than once.
	Close() error
}

// Factory creates a rasterizer for a fixed resolution.
type Factory func(width, height int) (DepthRasterizer, error)

// SoftwareFactory creates the CPU Rasterizer.
func SoftwareFactory(width, height int) (DepthRasterizer, error) {
	return NewRasterizer(width, height)
}

// RenderStats counts what the last RenderDepth call did.
type RenderStats struct {
	Triangles int // Triangles submitted
	Culled    int // Rejected against a clip plane without drawing
	Clipped   int // Cut by the near plane
	Fragments int // Depth writes
	SceneCull bool
}

// Rasterizer is a software depth-only triangle rasterizer.
//
// Triangles are clipped against the near plane in clip space, then filled
// with edge functions sampled at pixel centres. Both windings are drawn.
// Depth is NDC z interpolated linearly in screen space, which is exact for
// both projections, and stored as window depth.
type Rasterizer struct {
	depth  *DepthBuffer
	geom   *models.CombinedGeometry
	bounds math3d.AABB
	clip   []math3d.Vec4 // Per-vertex clip coordinates, reused across renders
	closed bool
	stats  RenderStats
}

// NewRasterizer creates a rasterizer with a width x height depth buffer.
func NewRasterizer(width, height int) (*Rasterizer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %w: resolution %dx%d", ErrRasterizerUnavailable, math3d.ErrInvalidParameter, width, height)
	}
	return &Rasterizer{depth: NewDepthBuffer(width, height)}, nil
}

// Stats returns counters for the most recent render.
func (r *Rasterizer) Stats() RenderStats {
	return r.stats
}

// Bind implements DepthRasterizer.
func (r *Rasterizer) Bind(g *models.CombinedGeometry) error {
	if r.closed {
		return fmt.Errorf("bind: %w: closed", ErrRasterizerUnavailable)
	}
	if g == nil {
		return fmt.Errorf("bind: %w", ErrNotBound)
	}
	n := uint32(len(g.Vertices))
	for i, tri := range g.Triangles {
		if tri[0] >= n || tri[1] >= n || tri[2] >= n {
			return fmt.Errorf("bind: triangle %d: %w", i, models.ErrIndexOutOfRange)
		}
	}

	r.geom = g
	r.bounds = g.Bounds()
	if cap(r.clip) < len(g.Vertices) {
		r.clip = make([]math3d.Vec4, len(g.Vertices))
	}
	r.clip = r.clip[:len(g.Vertices)]
	return nil
}

// RenderDepth implements DepthRasterizer.
func (r *Rasterizer) RenderDepth(mvp math3d.Mat4) (*DepthBuffer, error) {
	switch {
	case r.closed:
		return nil, fmt.Errorf("render depth: %w: closed", ErrRasterizerUnavailable)
	case r.geom == nil:
		return nil, fmt.Errorf("render depth: %w", ErrNotBound)
	}

	r.depth.Clear()
	r.stats = RenderStats{Triangles: len(r.geom.Triangles)}

	if len(r.geom.Vertices) == 0 || !NewFrustumFromMatrix(mvp).IntersectAABB(r.bounds) {
		r.stats.SceneCull = true
		return r.depth, nil
	}

	for i, v := range r.geom.Vertices {
		r.clip[i] = mvp.MulPoint(v)
	}

	for _, tri := range r.geom.Triangles {
		a, b, c := r.clip[tri[0]], r.clip[tri[1]], r.clip[tri[2]]
		if outsideClip(a, b, c) {
			r.stats.Culled++
			continue
		}

		poly := clipNear(a, b, c)
		if poly.n < 3 {
			r.stats.Culled++
			continue
		}
		if poly.n != 3 || poly.v[0] != a || poly.v[1] != b || poly.v[2] != c {
			r.stats.Clipped++
		}

		var sv [4]screenVertex
		for i := range poly.n {
			sv[i] = r.toScreen(poly.v[i])
		}
		for i := 1; i+1 < poly.n; i++ {
			r.fillTriangle(sv[0], sv[i], sv[i+1])
		}
	}
	return r.depth, nil
}

// Close implements DepthRasterizer.
func (r *Rasterizer) Close() error {
	r.closed = true
	r.geom = nil
	r.clip = nil
	return nil
}

// screenVertex is a vertex in pixel space with NDC depth.
type screenVertex struct {
	X, Y, Z float64
}

// toScreen maps a clip-space vertex with w > 0 to pixel coordinates. Y is
// not flipped: row 0 is the bottom of the image.
func (r *Rasterizer) toScreen(v math3d.Vec4) screenVertex {
	ndc := v.PerspectiveDivide()
	return screenVertex{
		X: (ndc.X + 1) * 0.5 * float64(r.depth.Width),
		Y: (ndc.Y + 1) * 0.5 * float64(r.depth.Height),
		Z: ndc.Z,
	}
}

// fillTriangle depth-tests and writes every pixel whose centre lies inside
// the triangle, for either winding.
func (r *Rasterizer) fillTriangle(v0, v1, v2 screenVertex) {
	area2 := (v1.X-v0.X)*(v2.Y-v0.Y) - (v1.Y-v0.Y)*(v2.X-v0.X)
	if area2 == 0 || math.IsNaN(area2) {
		return
	}

	width, height := r.depth.Width, r.depth.Height
	minX := int(math.Max(0, math.Floor(min(v0.X, v1.X, v2.X))))
	maxX := int(math.Min(float64(width-1), math.Ceil(max(v0.X, v1.X, v2.X))))
	minY := int(math.Max(0, math.Floor(min(v0.Y, v1.Y, v2.Y))))
	maxY := int(math.Min(float64(height-1), math.Ceil(max(v0.Y, v1.Y, v2.Y))))
	if minX > maxX || minY > maxY {
		return
	}

	// Edge 0: v1 -> v2, Edge 1: v2 -> v0, Edge 2: v0 -> v1
	A0, B0, C0 := edgeCoeffs(v1.X, v1.Y, v2.X, v2.Y)
	A1, B1, C1 := edgeCoeffs(v2.X, v2.Y, v0.X, v0.Y)
	A2, B2, C2 := edgeCoeffs(v0.X, v0.Y, v1.X, v1.Y)

	// Flip clockwise triangles so inside is always positive.
	if area2 < 0 {
		A0, B0, C0 = -A0, -B0, -C0
		A1, B1, C1 = -A1, -B1, -C1
		A2, B2, C2 = -A2, -B2, -C2
		area2 = -area2
	}
	invArea := 1.0 / area2

	px := float64(minX) + 0.5
	py := float64(minY) + 0.5

	w0Row := edgeFunc(A0, B0, C0, px, py)
	w1Row := edgeFunc(A1, B1, C1, px, py)
	w2Row := edgeFunc(A2, B2, C2, px, py)

	depth := r.depth.Depth

	for y := minY; y <= maxY; y++ {
		w0 := w0Row
		w1 := w1Row
		w2 := w2Row
		rowOffset := y * width

		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				z := (w0*v0.Z + w1*v1.Z + w2*v2.Z) * invArea

				if z >= -1 && z <= 1 {
					d := z*0.5 + 0.5
					idx := rowOffset + x
					if d < depth[idx] {
						depth[idx] = d
						r.stats.Fragments++
					}
				}
			}

			w0 += A0
			w1 += A1
			w2 += A2
		}

		w0Row += B0
		w1Row += B1
		w2Row += B2
	}
}

// edgeCoeffs returns A, B, C for the edge function A*x + B*y + C, which is
// positive left of the directed edge (x0,y0)->(x1,y1) and zero on it.
func edgeCoeffs(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1
	B = x1 - x0
	C = x0*y1 - x1*y0
	return
}

func edgeFunc(A, B, C, x, y float64) float64 {
	return A*x + B*y + C
}
