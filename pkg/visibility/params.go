package visibility

import (
	"fmt"
	"math"

	"github.com/taigrr/occlusion/pkg/dome"
	"github.com/taigrr/occlusion/pkg/math3d"
	"github.com/taigrr/occlusion/pkg/render"
)

// Errors callers can test for with errors.Is.
var (
	ErrInvalidParameter      = math3d.ErrInvalidParameter
	ErrRasterizerUnavailable = render.ErrRasterizerUnavailable
)

// Defaults used by DefaultParams and for zero-valued fields.
const (
	DefaultSamples    = 16
	DefaultResolution = 128
	DefaultFOV        = 90.0
)

// Params controls a visibility run.
//
// Zero Radius, Near and Far are derived from the scene bounds, a nil
// Center uses the bounds centre, zero FOV means DefaultFOV and a nil
// Epsilon means DefaultEpsilon. An Epsilon of zero is an exact depth test. FOV is the horizontal field of view in degrees;
// math.Inf(1) selects an orthographic projection.
type Params struct {
	Samples int
	Width   int
	Height  int
	Dome    dome.Kind
	Radius  float64
	Center  *math3d.Vec3
	FOV     float64
	Near    float64
	Far     float64
	Epsilon *float64
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Samples: DefaultSamples,
		Width:   DefaultResolution,
		Height:  DefaultResolution,
		Dome:    dome.Hemisphere,
		FOV:     DefaultFOV,
	}
}

// Validate checks the fields that do not depend on the scene.
func (p Params) Validate() error {
	switch {
	case p.Samples < 1:
		return fmt.Errorf("%w: samples %d must be at least 1", ErrInvalidParameter, p.Samples)
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidParameter, p.Width, p.Height)
	case p.Dome != dome.Hemisphere && p.Dome != dome.Sphere:
		return fmt.Errorf("%w: dome %v", ErrInvalidParameter, p.Dome)
	case p.Epsilon != nil && (!(*p.Epsilon >= 0) || math.IsInf(*p.Epsilon, 0)):
		return fmt.Errorf("%w: epsilon %v", ErrInvalidParameter, *p.Epsilon)
	case !(p.Radius >= 0) || math.IsInf(p.Radius, 0):
		return fmt.Errorf("%w: radius %v", ErrInvalidParameter, p.Radius)
	case p.Near < 0 || p.Far < 0 || math.IsNaN(p.Near) || math.IsNaN(p.Far):
		return fmt.Errorf("%w: clip planes %v..%v", ErrInvalidParameter, p.Near, p.Far)
	case p.Near > 0 && p.Far > 0 && p.Far <= p.Near:
		return fmt.Errorf("%w: far %v must exceed near %v", ErrInvalidParameter, p.Far, p.Near)
	}

	if p.FOV != 0 && !math3d.IsOrthographic(p.FOV) {
		if math.IsNaN(p.FOV) || p.FOV <= 0 || p.FOV >= 180 {
			return fmt.Errorf("%w: fov %v outside (0, 180)", ErrInvalidParameter, p.FOV)
		}
	}
	return nil
}

// setup is Params resolved against a scene.
type setup struct {
	dome       dome.Dome
	projection math3d.Projection
	matrix     math3d.Mat4
	epsilon    float64
}

// resolve fills scene-dependent defaults and builds the projection.
func (p Params) resolve(bounds math3d.AABB) (setup, error) {
	center := bounds.Center()
	if p.Center != nil {
		center = *p.Center
	}
	fit := dome.FitAt(bounds, center, p.Dome, p.Radius)

	proj := math3d.Projection{
		FOV:    p.FOV,
		Near:   p.Near,
		Far:    p.Far,
		Width:  p.Width,
		Height: p.Height,
		Extent: fit.Extent * max(1, float64(p.Width)/float64(p.Height)),
	}
	if proj.FOV == 0 {
		proj.FOV = DefaultFOV
	}
	if proj.Near == 0 {
		proj.Near = fit.Near
	}
	if proj.Far == 0 {
		proj.Far = fit.Far
	}

	m, err := proj.Matrix()
	if err != nil {
		return setup{}, err
	}

	eps := DefaultEpsilon
	if p.Epsilon != nil {
		eps = *p.Epsilon
	}
	return setup{dome: fit.Dome, projection: proj, matrix: m, epsilon: eps}, nil
}
