package math3d

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// BoundsOf returns the smallest box containing every point and false when
// points is empty.
func BoundsOf(points []Vec3) (AABB, bool) {
	if len(points) == 0 {
		return AABB{}, false
	}
	b := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b, true
}

// Center returns the center of the AABB.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// HalfDiagonal returns the radius of the sphere around Center that touches
// every corner.
func (b AABB) HalfDiagonal() float64 {
	return b.Size().Len() * 0.5
}
