// Package visibility decides which vertices of a scene can be seen from
// somewhere on a dome around it.
//
// Each sample renders the scene's depth from one random dome viewpoint and
// marks every vertex whose projected depth is not behind the rendered
// surface. A vertex is visible once any sample has seen it.
package visibility

import (
	"github.com/taigrr/occlusion/pkg/math3d"
	"github.com/taigrr/occlusion/pkg/render"
)

// DefaultEpsilon is the depth tolerance in NDC units. A vertex lies on the
// surface it belongs to, so its depth equals the rendered depth up to
// rasterization error.
const DefaultEpsilon = 1e-3

// Accumulator ORs per-sample visibility into a per-vertex mask.
type Accumulator struct {
	Seen    []bool
	Epsilon float64
}

// NewAccumulator creates an accumulator for n vertices, none seen yet.
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{
		Seen:    make([]bool, n),
		Epsilon: DefaultEpsilon,
	}
}

// Accumulate marks every vertex visible in depth, which must have been
// rendered with mvp. vertices must line up with Seen. It returns how many
// vertices passed in this sample, including ones seen before.
func (a *Accumulator) Accumulate(mvp math3d.Mat4, vertices []math3d.Vec3, depth *render.DepthBuffer) int {
	n := min(len(vertices), len(a.Seen))
	count := 0
	for i := range n {
		p, ok := project(mvp, vertices[i], depth.Width, depth.Height)
		if !ok {
			continue
		}
		if p.Z <= depth.NDC(p.X, p.Y)+a.Epsilon {
			a.Seen[i] = true
			count++
		}
	}
	return count
}

// Count returns the number of vertices seen so far.
func (a *Accumulator) Count() int {
	n := 0
	for _, s := range a.Seen {
		if s {
			n++
		}
	}
	return n
}

// projected is a vertex mapped to a pixel, with its NDC depth.
type projected struct {
	X, Y int
	Z    float64
}

// project maps a world-space vertex to its pixel. It fails for vertices
// behind the camera, outside the viewport or in front of the near plane.
func project(mvp math3d.Mat4, v math3d.Vec3, width, height int) (projected, bool) {
	clip := mvp.MulPoint(v)
	if !(clip.W > 0) {
		return projected{}, false
	}
	ndc := clip.PerspectiveDivide()
	if ndc.Z < -1 {
		return projected{}, false
	}

	x, ok := toPixel(ndc.X, width)
	if !ok {
		return projected{}, false
	}
	y, ok := toPixel(ndc.Y, height)
	if !ok {
		return projected{}, false
	}
	return projected{X: x, Y: y, Z: ndc.Z}, true
}

// toPixel maps an NDC coordinate to a pixel index, adding half a pixel
// before truncating. Negative positions are out of range rather than
// truncated to 0.
func toPixel(ndc float64, size int) (int, bool) {
	half := float64(size) / 2
	p := ndc*half + half + 0.5
	if !(p >= 0 && p < float64(size)) {
		return 0, false
	}
	return int(p), true
}

// ProjectVertices returns a preview mark for every vertex that lands in
// depth, flagged with whether it passes the depth test in this view.
func ProjectVertices(mvp math3d.Mat4, vertices []math3d.Vec3, depth *render.DepthBuffer, epsilon float64) []render.Mark {
	marks := make([]render.Mark, 0, len(vertices))
	for _, v := range vertices {
		p, ok := project(mvp, v, depth.Width, depth.Height)
		if !ok {
			continue
		}
		marks = append(marks, render.Mark{
			X:    p.X,
			Y:    p.Y,
			Seen: p.Z <= depth.NDC(p.X, p.Y)+epsilon,
		})
	}
	return marks
}
