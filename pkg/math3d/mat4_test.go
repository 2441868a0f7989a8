package math3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got Vec3) {
	t.Helper()
	assert.Truef(t, want.ApproxEqual(got, 1e-9), "want %v, got %v", want, got)
}

func TestMulAppliesRightOperandFirst(t *testing.T) {
	m := Translate(V3(1, 0, 0)).Mul(Scale(V3(2, 2, 2)))
	// scale first: (1,1,1) -> (2,2,2) -> (3,2,2)
	assertVec(t, V3(3, 2, 2), m.MulVec3(V3(1, 1, 1)))
}

func TestRotationAxes(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"x turns y to z", RotateX(math.Pi / 2), V3(0, 1, 0), V3(0, 0, 1)},
		{"y turns z to x", RotateY(math.Pi / 2), V3(0, 0, 1), V3(1, 0, 0)},
		{"z turns x to y", RotateZ(math.Pi / 2), V3(1, 0, 0), V3(0, 1, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertVec(t, tc.want, tc.m.MulVec3Dir(tc.in))
		})
	}
}

func TestEulerXYZOrder(t *testing.T) {
	m := EulerXYZ(V3(math.Pi/2, 0, math.Pi/2))
	// X rotation first leaves X alone, then Z maps it onto Y.
	assertVec(t, V3(0, 1, 0), m.MulVec3Dir(V3(1, 0, 0)))
	// Y goes to Z under X, Z stays put under Z.
	assertVec(t, V3(0, 0, 1), m.MulVec3Dir(V3(0, 1, 0)))
}

func TestAffine(t *testing.T) {
	m := Affine(V3(1, 2, 3), V3(0, 0, math.Pi/2), V3(2, 1, 1))
	// scale (1,0,0) -> (2,0,0), rotate -> (0,2,0), translate -> (1,4,3)
	assertVec(t, V3(1, 4, 3), m.MulVec3(V3(1, 0, 0)))
	assertVec(t, V3(1, 2, 3), m.MulVec3(Zero3()))

	inv, ok := m.Inverse()
	require.True(t, ok)
	assert.True(t, m.Mul(inv).ApproxEqual(Identity(), tol))
}

func TestInverseSingular(t *testing.T) {
	_, ok := Scale(V3(1, 0, 1)).Inverse()
	assert.False(t, ok)
}

func TestFromQuat(t *testing.T) {
	s := math.Sin(math.Pi / 4)
	m := FromQuat(0, 0, s, s)
	assertVec(t, V3(0, 1, 0), m.MulVec3Dir(V3(1, 0, 0)))
	assert.True(t, FromQuat(0, 0, 0, 1).ApproxEqual(Identity(), tol))
	assert.True(t, m.ApproxEqual(RotateZ(math.Pi/2), tol))
}

func TestPerspective(t *testing.T) {
	const near, far = 1.0, 6.0
	m, err := Perspective(90, near, far, 64, 32)
	require.NoError(t, err)

	ndc := func(p Vec3) Vec3 {
		c := m.MulPoint(p)
		require.Greater(t, c.W, 0.0)
		return c.PerspectiveDivide()
	}

	// w carries the eye-space distance.
	assert.InDelta(t, 3.0, m.MulPoint(V3(0, 0, -3)).W, tol)

	assert.InDelta(t, -1.0, ndc(V3(0, 0, -near)).Z, tol)
	assert.InDelta(t, 1.0, ndc(V3(0, 0, -far)).Z, tol)

	// fov 90 puts the right edge at x = near; aspect halves the top edge.
	assert.InDelta(t, 1.0, ndc(V3(near, 0, -near)).X, tol)
	assert.InDelta(t, 1.0, ndc(V3(0, near/2, -near)).Y, tol)

	// Behind the camera w goes negative.
	assert.Less(t, m.MulPoint(V3(0, 0, 1)).W, 0.0)
}

func TestOrthographic(t *testing.T) {
	m, err := OrthographicExtent(2, 1, 5, 10, 10)
	require.NoError(t, err)

	c := m.MulPoint(V3(2, -2, -1))
	assert.Equal(t, 1.0, c.W)
	assertVec(t, V3(1, -1, -1), c.PerspectiveDivide())
	assert.InDelta(t, 1.0, m.MulPoint(V3(0, 0, -5)).Z, tol)

	unit, err := Orthographic(0, 1, 4, 4)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, unit.MulPoint(V3(1, 0, 0)).X, tol)
}

func TestProjectionDispatch(t *testing.T) {
	ortho := Projection{FOV: math.Inf(1), Near: 0, Far: 2, Width: 8, Height: 8}
	assert.True(t, ortho.Orthographic())
	m, err := ortho.Matrix()
	require.NoError(t, err)
	assert.Equal(t, 1.0, m[15])

	persp := Projection{FOV: 60, Near: 0.5, Far: 10, Width: 8, Height: 8}
	assert.False(t, persp.Orthographic())
	m, err = persp.Matrix()
	require.NoError(t, err)
	assert.Equal(t, -1.0, m[11])
}

func TestProjectionInvalid(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name string
		p    Projection
	}{
		{"zero width", Projection{FOV: 90, Near: 1, Far: 2, Width: 0, Height: 4}},
		{"negative height", Projection{FOV: 90, Near: 1, Far: 2, Width: 4, Height: -1}},
		{"equal clip planes", Projection{FOV: 90, Near: 1, Far: 1, Width: 4, Height: 4}},
		{"inverted clip planes", Projection{FOV: 90, Near: 2, Far: 1, Width: 4, Height: 4}},
		{"zero near perspective", Projection{FOV: 90, Near: 0, Far: 1, Width: 4, Height: 4}},
		{"zero fov", Projection{FOV: 0, Near: 1, Far: 2, Width: 4, Height: 4}},
		{"straight angle fov", Projection{FOV: 180, Near: 1, Far: 2, Width: 4, Height: 4}},
		{"ortho equal clip planes", Projection{FOV: inf, Near: 1, Far: 1, Width: 4, Height: 4}},
		{"ortho negative near", Projection{FOV: inf, Near: -1, Far: 1, Width: 4, Height: 4}},
		{"ortho zero width", Projection{FOV: inf, Near: 0, Far: 1, Width: 0, Height: 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.p.Validate(), ErrInvalidParameter)
		})
	}
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)

	b, ok := BoundsOf([]Vec3{V3(1, -2, 0), V3(-1, 2, 4), V3(0, 0, 2)})
	require.True(t, ok)
	assertVec(t, V3(-1, -2, 0), b.Min)
	assertVec(t, V3(1, 2, 4), b.Max)
	assertVec(t, V3(0, 0, 2), b.Center())
	assert.InDelta(t, math.Sqrt(4+16+16)/2, b.HalfDiagonal(), tol)
}

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateY(0.5)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulPoint(b *testing.B) {
	m, _ := Perspective(90, 1, 6, 128, 128)
	v := V3(1, 2, -3)

	for b.Loop() {
		_ = m.MulPoint(v)
	}
}

func BenchmarkMat4Inverse(b *testing.B) {
	m := Affine(V3(1, 2, 3), V3(0.1, 0.2, 0.3), V3(2, 2, 2))

	for b.Loop() {
		_, _ = m.Inverse()
	}
}
