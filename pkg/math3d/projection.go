package math3d

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned for degenerate resolutions, clip ranges or
// fields of view.
var ErrInvalidParameter = errors.New("invalid parameter")

// Projection describes a camera projection in pixel terms.
//
// FOV is the horizontal field of view in degrees; math.Inf(1) selects an
// orthographic projection whose half-width is Extent (1 when zero). The
// vertical extent follows from Height/Width.
type Projection struct {
	FOV    float64
	Near   float64
	Far    float64
	Width  int
	Height int
	Extent float64
}

// IsOrthographic reports whether fov is the "infinite" sentinel.
func IsOrthographic(fov float64) bool {
	return math.IsInf(fov, 1)
}

// Orthographic reports whether p projects orthographically.
func (p Projection) Orthographic() bool {
	return IsOrthographic(p.FOV)
}

// Validate checks the projection without building it.
func (p Projection) Validate() error {
	_, err := p.Matrix()
	return err
}

// Matrix builds the projection matrix.
func (p Projection) Matrix() (Mat4, error) {
	if p.Orthographic() {
		extent := p.Extent
		if extent == 0 {
			extent = 1
		}
		return OrthographicExtent(extent, p.Near, p.Far, p.Width, p.Height)
	}
	return Perspective(p.FOV, p.Near, p.Far, p.Width, p.Height)
}

// Perspective creates a symmetric perspective projection in GL clip
// convention: the camera looks down -Z, clip w is -z_eye and NDC z spans
// [-1, 1] from near to far. The half-width at the near plane is
// near*tan(fov/2) and the half-height is scaled by height/width.
func Perspective(fovDeg, near, far float64, width, height int) (Mat4, error) {
	if err := checkViewport(width, height); err != nil {
		return Mat4{}, fmt.Errorf("perspective: %w", err)
	}
	switch {
	case math.IsNaN(fovDeg) || fovDeg <= 0 || fovDeg >= 180:
		return Mat4{}, fmt.Errorf("perspective: %w: fov %v outside (0, 180)", ErrInvalidParameter, fovDeg)
	case near <= 0:
		return Mat4{}, fmt.Errorf("perspective: %w: near %v must be positive", ErrInvalidParameter, near)
	case far <= near:
		return Mat4{}, fmt.Errorf("perspective: %w: far %v must exceed near %v", ErrInvalidParameter, far, near)
	}

	right := near * math.Tan(fovDeg*math.Pi/360)
	top := right * float64(height) / float64(width)
	depth := far - near

	return Mat4{
		near / right, 0, 0, 0,
		0, near / top, 0, 0,
		0, 0, -(far + near) / depth, -1,
		0, 0, -2 * far * near / depth, 0,
	}, nil
}

// Orthographic creates an orthographic projection with unit half-width.
func Orthographic(near, far float64, width, height int) (Mat4, error) {
	return OrthographicExtent(1, near, far, width, height)
}

// OrthographicExtent creates an orthographic projection whose view volume
// is halfWidth wide on each side of the axis.
func OrthographicExtent(halfWidth, near, far float64, width, height int) (Mat4, error) {
	if err := checkViewport(width, height); err != nil {
		return Mat4{}, fmt.Errorf("orthographic: %w", err)
	}
	switch {
	case halfWidth <= 0:
		return Mat4{}, fmt.Errorf("orthographic: %w: extent %v must be positive", ErrInvalidParameter, halfWidth)
	case near < 0:
		return Mat4{}, fmt.Errorf("orthographic: %w: near %v is negative", ErrInvalidParameter, near)
	case far <= near:
		return Mat4{}, fmt.Errorf("orthographic: %w: far %v must exceed near %v", ErrInvalidParameter, far, near)
	}

	top := halfWidth * float64(height) / float64(width)
	depth := far - near

	return Mat4{
		1 / halfWidth, 0, 0, 0,
		0, 1 / top, 0, 0,
		0, 0, -2 / depth, 0,
		0, 0, -(far + near) / depth, 1,
	}, nil
}

func checkViewport(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidParameter, width, height)
	}
	return nil
}
