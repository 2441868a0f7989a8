// Package dome samples camera positions on a hemisphere or sphere around a
// scene and aims each camera at the dome centre.
//
// The dome is Z-up. A camera looks down its local -Z axis with +Y up, so a
// viewpoint's Euler angles rotate that frame onto the line towards the
// centre.
package dome

import (
	"fmt"
	"math"
	"strings"

	"github.com/taigrr/occlusion/pkg/math3d"
)

// ErrInvalidParameter is shared with math3d so callers need one sentinel.
var ErrInvalidParameter = math3d.ErrInvalidParameter

// Kind selects the sampling domain.
type Kind int

const (
	// Hemisphere samples only positions above the centre (z >= 0).
	Hemisphere Kind = iota
	// Sphere samples the full sphere.
	Sphere
)

// ParseKind accepts "hemisphere", "hemi" and "sphere" in any case. An
// empty string selects Hemisphere.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hemisphere", "hemi", "":
		return Hemisphere, nil
	case "sphere":
		return Sphere, nil
	}
	return Hemisphere, fmt.Errorf("dome: %w: unknown kind %q", ErrInvalidParameter, s)
}

func (k Kind) String() string {
	switch k {
	case Hemisphere:
		return "hemisphere"
	case Sphere:
		return "sphere"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Viewpoint is a camera placement. Euler holds XYZ angles in radians.
type Viewpoint struct {
	Position math3d.Vec3
	Euler    math3d.Vec3
}

// Transform returns the camera-to-world matrix of the viewpoint.
func (vp Viewpoint) Transform() math3d.Mat4 {
	return math3d.Affine(vp.Position, vp.Euler, math3d.One3())
}

// Forward returns the world-space viewing direction.
func (vp Viewpoint) Forward() math3d.Vec3 {
	return vp.Transform().MulVec3Dir(math3d.V3(0, 0, -1))
}

// SampleHemisphere draws a point on the upper hemisphere of the given
// radius around the origin. The polar angle is biased with
// cos(theta) = sqrt(u) so the pole is not oversampled.
func SampleHemisphere(s Sampler, radius float64) (Viewpoint, error) {
	if err := checkRadius(radius); err != nil {
		return Viewpoint{}, err
	}
	cosTheta := math.Sqrt(s.Get1D())
	return onSphere(cosTheta, s.Get1D(), radius), nil
}

// SampleSphere draws a point uniformly on the sphere of the given radius
// around the origin.
func SampleSphere(s Sampler, radius float64) (Viewpoint, error) {
	if err := checkRadius(radius); err != nil {
		return Viewpoint{}, err
	}
	cosTheta := 2*s.Get1D() - 1
	return onSphere(cosTheta, s.Get1D(), radius), nil
}

func onSphere(cosTheta, u, radius float64) Viewpoint {
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)
	sinTheta := math.Sin(theta)
	phi := 2 * math.Pi * u

	return Viewpoint{
		Position: math3d.V3(
			radius*sinTheta*math.Cos(phi),
			radius*sinTheta*math.Sin(phi),
			radius*cosTheta,
		),
		// Rx(theta) tilts -Z away from straight down, Rz swings it round
		// to face the origin.
		Euler: math3d.V3(theta, 0, phi+math.Pi/2),
	}
}

func checkRadius(radius float64) error {
	if !(radius > 0) || math.IsInf(radius, 1) {
		return fmt.Errorf("dome: %w: radius %v must be positive", ErrInvalidParameter, radius)
	}
	return nil
}

// Dome is a sampling domain placed in the scene.
type Dome struct {
	Kind   Kind
	Center math3d.Vec3
	Radius float64
}

// Sample draws one viewpoint on the dome.
func (d Dome) Sample(s Sampler) (Viewpoint, error) {
	var (
		vp  Viewpoint
		err error
	)
	switch d.Kind {
	case Sphere:
		vp, err = SampleSphere(s, d.Radius)
	default:
		vp, err = SampleHemisphere(s, d.Radius)
	}
	if err != nil {
		return Viewpoint{}, err
	}
	vp.Position = vp.Position.Add(d.Center)
	return vp, nil
}

// ViewTransform is the camera-to-world matrix of vp. Its inverse is the
// view matrix.
func (d Dome) ViewTransform(vp Viewpoint) math3d.Mat4 {
	return vp.Transform()
}
