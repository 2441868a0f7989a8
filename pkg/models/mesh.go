// Package models holds the triangle geometry fed to the visibility engine:
// per-object meshes, the combined scene buffer and the glTF loader.
package models

import (
	"errors"
	"fmt"

	"github.com/taigrr/occlusion/pkg/math3d"
)

var (
	// ErrIndexOutOfRange is returned when a triangle references a vertex
	// outside its own object.
	ErrIndexOutOfRange = errors.New("triangle index out of range")
	// ErrRangeMismatch is returned when a selection does not line up with
	// the object ranges it is split by.
	ErrRangeMismatch = errors.New("selection does not match ranges")
)

// Object is one world-space triangle mesh.
type Object struct {
	Name      string
	Vertices  []math3d.Vec3
	Triangles [][3]uint32
}

// VertexCount returns the number of vertices.
func (o *Object) VertexCount() int {
	return len(o.Vertices)
}

// TriangleCount returns the number of triangles.
func (o *Object) TriangleCount() int {
	return len(o.Triangles)
}

// Bounds returns the axis-aligned bounding box and false for an object
// without vertices.
func (o *Object) Bounds() (math3d.AABB, bool) {
	return math3d.BoundsOf(o.Vertices)
}

// Validate checks that every triangle index points at one of the object's
// vertices.
func (o *Object) Validate() error {
	n := uint32(len(o.Vertices))
	for i, tri := range o.Triangles {
		for _, idx := range tri {
			if idx >= n {
				return fmt.Errorf("%w: triangle %d uses vertex %d of %d", ErrIndexOutOfRange, i, idx, n)
			}
		}
	}
	return nil
}

// Transform applies a transformation matrix to all vertices.
func (o *Object) Transform(mat math3d.Mat4) {
	for i, v := range o.Vertices {
		o.Vertices[i] = mat.MulVec3(v)
	}
}

// Clone creates a deep copy of the object.
func (o *Object) Clone() *Object {
	clone := &Object{
		Name:      o.Name,
		Vertices:  make([]math3d.Vec3, len(o.Vertices)),
		Triangles: make([][3]uint32, len(o.Triangles)),
	}
	copy(clone.Vertices, o.Vertices)
	copy(clone.Triangles, o.Triangles)
	return clone
}
