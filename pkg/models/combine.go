package models

import (
	"fmt"

	"github.com/taigrr/occlusion/pkg/math3d"
)

// Range marks where an object ends inside combined buffers. Both fields are
// cumulative: object i owns vertices [Ranges[i-1].EndVertex, EndVertex)
// and the matching triangle span.
type Range struct {
	EndVertex   int
	EndTriangle int
}

// CombinedGeometry is every object of a scene concatenated into one vertex
// buffer and one index buffer. It is not modified after Combine returns.
type CombinedGeometry struct {
	Vertices  []math3d.Vec3
	Triangles [][3]uint32
	Ranges    []Range
}

// Combine concatenates objects in order, offsetting each object's triangle
// indices by the number of vertices before it. An empty object produces a
// range equal to its predecessor.
func Combine(objects []Object) (*CombinedGeometry, error) {
	var nv, nt int
	for i := range objects {
		if err := objects[i].Validate(); err != nil {
			return nil, fmt.Errorf("combine: object %d (%q): %w", i, objects[i].Name, err)
		}
		nv += len(objects[i].Vertices)
		nt += len(objects[i].Triangles)
	}

	g := &CombinedGeometry{
		Vertices:  make([]math3d.Vec3, 0, nv),
		Triangles: make([][3]uint32, 0, nt),
		Ranges:    make([]Range, 0, len(objects)),
	}
	for _, obj := range objects {
		base := uint32(len(g.Vertices))
		g.Vertices = append(g.Vertices, obj.Vertices...)
		for _, tri := range obj.Triangles {
			g.Triangles = append(g.Triangles, [3]uint32{tri[0] + base, tri[1] + base, tri[2] + base})
		}
		g.Ranges = append(g.Ranges, Range{EndVertex: len(g.Vertices), EndTriangle: len(g.Triangles)})
	}
	return g, nil
}

// VertexCount returns the number of vertices.
func (g *CombinedGeometry) VertexCount() int {
	return len(g.Vertices)
}

// TriangleCount returns the number of triangles.
func (g *CombinedGeometry) TriangleCount() int {
	return len(g.Triangles)
}

// Bounds returns the box around every vertex; the zero box when the scene
// is empty.
func (g *CombinedGeometry) Bounds() math3d.AABB {
	b, _ := math3d.BoundsOf(g.Vertices)
	return b
}

// Split cuts a per-vertex selection over the combined buffer back into one
// slice per object. The returned slices do not alias seen.
func Split(seen []bool, ranges []Range) ([][]bool, error) {
	end := 0
	if len(ranges) > 0 {
		end = ranges[len(ranges)-1].EndVertex
	}
	if end != len(seen) {
		return nil, fmt.Errorf("split: %w: %d vertices, ranges end at %d", ErrRangeMismatch, len(seen), end)
	}

	out := make([][]bool, len(ranges))
	start := 0
	for i, r := range ranges {
		if r.EndVertex < start || r.EndVertex > len(seen) {
			return nil, fmt.Errorf("split: %w: range %d ends at %d, outside [%d, %d]", ErrRangeMismatch, i, r.EndVertex, start, len(seen))
		}
		out[i] = make([]bool, r.EndVertex-start)
		copy(out[i], seen[start:r.EndVertex])
		start = r.EndVertex
	}
	return out, nil
}

// Invert returns the complement of a per-object selection.
func Invert(selection [][]bool) [][]bool {
	out := make([][]bool, len(selection))
	for i, sel := range selection {
		out[i] = make([]bool, len(sel))
		for j, v := range sel {
			out[i][j] = !v
		}
	}
	return out
}
