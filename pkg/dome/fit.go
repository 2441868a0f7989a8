package dome

import "github.com/taigrr/occlusion/pkg/math3d"

// Fitted is a dome sized to a scene together with clip planes that keep
// the whole scene between near and far from every viewpoint.
type Fitted struct {
	Dome Dome
	Near float64
	Far  float64
	// Extent is the scene's bounding radius, used as the orthographic
	// half-width.
	Extent float64
}

// Fit centres a dome of the given kind on bounds. A radius of zero picks
// one automatically.
//
// With h the half diagonal of bounds, the automatic radius is 2h: a 90
// degree camera then sees the whole bounding sphere. From radius R the
// scene lies between R-h and R+h, so near is half the closest distance and
// far leaves h to spare. For R = 2h that gives near h/2 and far 4h.
func Fit(bounds math3d.AABB, kind Kind, radius float64) Fitted {
	return FitAt(bounds, bounds.Center(), kind, radius)
}

// FitAt is Fit with the dome centred on center instead of the bounds
// centre. The scene is treated as a sphere around center reaching the far
// side of the bounds, so every vertex stays between near and far.
func FitAt(bounds math3d.AABB, center math3d.Vec3, kind Kind, radius float64) Fitted {
	h := bounds.HalfDiagonal()
	if h == 0 {
		h = 1
	}
	h += center.Distance(bounds.Center())
	if radius <= 0 {
		radius = 2 * h
	}

	near := (radius - h) / 2
	if near <= 0 {
		// The dome cuts through the scene; keep a small positive near.
		near = radius / 100
	}

	return Fitted{
		Dome: Dome{
			Kind:   kind,
			Center: center,
			Radius: radius,
		},
		Near:   near,
		Far:    radius + 2*h,
		Extent: h,
	}
}
