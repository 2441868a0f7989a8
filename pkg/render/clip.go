package render

import "github.com/taigrr/occlusion/pkg/math3d"

// clipPolygon holds a triangle after near-plane clipping: at most one
// extra vertex per clipped plane.
type clipPolygon struct {
	v [4]math3d.Vec4
	n int
}

// clipNear clips a clip-space triangle against the near plane z >= -w.
// Sutherland-Hodgman against a single plane turns a triangle into nothing,
// a triangle or a quad.
func clipNear(a, b, c math3d.Vec4) clipPolygon {
	in := [3]math3d.Vec4{a, b, c}
	var out clipPolygon

	for i := range 3 {
		cur := in[i]
		next := in[(i+1)%3]
		dCur := cur.Z + cur.W
		dNext := next.Z + next.W

		if dCur >= 0 {
			out.v[out.n] = cur
			out.n++
		}
		if (dCur >= 0) != (dNext >= 0) {
			t := dCur / (dCur - dNext)
			out.v[out.n] = cur.Lerp(next, t)
			out.n++
		}
	}
	return out
}

// outsideClip reports whether all three clip-space vertices lie outside the
// same clip-volume plane, so the triangle cannot produce a fragment.
func outsideClip(a, b, c math3d.Vec4) bool {
	switch {
	case a.X < -a.W && b.X < -b.W && c.X < -c.W:
		return true
	case a.X > a.W && b.X > b.W && c.X > c.W:
		return true
	case a.Y < -a.W && b.Y < -b.W && c.Y < -c.W:
		return true
	case a.Y > a.W && b.Y > b.W && c.Y > c.W:
		return true
	case a.Z < -a.W && b.Z < -b.W && c.Z < -c.W:
		return true
	case a.Z > a.W && b.Z > b.W && c.Z > c.W:
		return true
	}
	return false
}
