package models

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/occlusion/pkg/math3d"
)

// triangleDoc builds a document with one triangle mesh stored in an
// embedded buffer: three float positions followed by uint16 indices.
func triangleDoc(t *testing.T) *gltf.Document {
	t.Helper()

	positions := [][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	indices := []uint16{0, 1, 2}

	var data []byte
	for _, p := range positions {
		for _, f := range p {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
		}
	}
	posLen := len(data)
	for _, idx := range indices {
		data = binary.LittleEndian.AppendUint16(data, idx)
	}

	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: len(data), Data: data}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: posLen},
			{Buffer: 0, ByteOffset: posLen, ByteLength: len(data) - posLen},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentUshort, Count: 3, Type: gltf.AccessorScalar},
		},
		Meshes: []*gltf.Mesh{{
			Name: "tri",
			Primitives: []*gltf.Primitive{{
				Mode:       gltf.PrimitiveTriangles,
				Attributes: map[string]int{gltf.POSITION: 0},
				Indices:    gltf.Index(1),
			}},
		}},
	}
}

func assertVertices(t *testing.T, want []math3d.Vec3, got []math3d.Vec3) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Truef(t, want[i].ApproxEqual(got[i], 1e-6), "vertex %d: want %v, got %v", i, want[i], got[i])
	}
}

func TestLoadDocumentTransforms(t *testing.T) {
	s := math.Sin(math.Pi / 4)

	tests := []struct {
		name  string
		nodes []*gltf.Node
		roots []int
		want  []math3d.Vec3
	}{
		{
			name:  "identity",
			nodes: []*gltf.Node{{Name: "plain", Mesh: gltf.Index(0)}},
			roots: []int{0},
			want:  []math3d.Vec3{math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)},
		},
		{
			name:  "translation",
			nodes: []*gltf.Node{{Mesh: gltf.Index(0), Translation: [3]float64{1, 2, 3}}},
			roots: []int{0},
			want:  []math3d.Vec3{math3d.V3(2, 2, 3), math3d.V3(1, 3, 3), math3d.V3(1, 2, 4)},
		},
		{
			name: "matrix",
			nodes: []*gltf.Node{{Mesh: gltf.Index(0), Matrix: [16]float64{
				2, 0, 0, 0,
				0, 2, 0, 0,
				0, 0, 2, 0,
				0, 0, 0, 1,
			}}},
			roots: []int{0},
			want:  []math3d.Vec3{math3d.V3(2, 0, 0), math3d.V3(0, 2, 0), math3d.V3(0, 0, 2)},
		},
		{
			name: "parent rotation applies after child translation",
			nodes: []*gltf.Node{
				{Rotation: [4]float64{0, 0, s, s}, Children: []int{1}},
				{Mesh: gltf.Index(0), Translation: [3]float64{1, 0, 0}},
			},
			roots: []int{0},
			want:  []math3d.Vec3{math3d.V3(0, 2, 0), math3d.V3(-1, 1, 0), math3d.V3(0, 1, 1)},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := triangleDoc(t)
			doc.Nodes = tc.nodes
			doc.Scenes = []*gltf.Scene{{Nodes: tc.roots}}
			doc.Scene = gltf.Index(0)

			objects, err := LoadDocument(doc)
			require.NoError(t, err)
			require.Len(t, objects, 1)
			assertVertices(t, tc.want, objects[0].Vertices)
			assert.Equal(t, [][3]uint32{{0, 1, 2}}, objects[0].Triangles)
		})
	}
}

func TestLoadDocumentNames(t *testing.T) {
	doc := triangleDoc(t)
	doc.Nodes = []*gltf.Node{
		{Name: "left", Mesh: gltf.Index(0)},
		{Mesh: gltf.Index(0)},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0, 1}}}

	objects, err := LoadDocument(doc)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "left", objects[0].Name)
	assert.Equal(t, "tri", objects[1].Name)
}

func TestLoadDocumentWithoutScenes(t *testing.T) {
	objects, err := LoadDocument(triangleDoc(t))
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, 3, objects[0].VertexCount())
	assert.Equal(t, 1, objects[0].TriangleCount())
}

func TestLoadDocumentSkipsNonTriangles(t *testing.T) {
	doc := triangleDoc(t)
	doc.Meshes[0].Primitives[0].Mode = gltf.PrimitiveLines

	objects, err := LoadDocument(doc)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Zero(t, objects[0].VertexCount())
}

func TestLoadDocumentUnindexed(t *testing.T) {
	doc := triangleDoc(t)
	doc.Meshes[0].Primitives[0].Indices = nil

	objects, err := LoadDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, [][3]uint32{{0, 1, 2}}, objects[0].Triangles)
}

func TestLoadDocumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *gltf.Document)
		want   error
	}{
		{
			name:   "buffer without data",
			mutate: func(doc *gltf.Document) { doc.Buffers[0].Data = nil },
			want:   ErrMalformed,
		},
		{
			name:   "missing accessor",
			mutate: func(doc *gltf.Document) { doc.Meshes[0].Primitives[0].Indices = gltf.Index(7) },
			want:   ErrIndexOutOfRange,
		},
		{
			name:   "vector indices",
			mutate: func(doc *gltf.Document) { doc.Accessors[1].Type = gltf.AccessorVec2 },
			want:   ErrUnsupported,
		},
		{
			name: "index past vertices",
			mutate: func(doc *gltf.Document) {
				doc.Buffers[0].Data[len(doc.Buffers[0].Data)-2] = 9
			},
			want: ErrIndexOutOfRange,
		},
		{
			name:   "accessor past buffer",
			mutate: func(doc *gltf.Document) { doc.Accessors[0].Count = 100 },
			want:   ErrMalformed,
		},
		{
			name:   "missing node",
			mutate: func(doc *gltf.Document) { doc.Scenes[0].Nodes = []int{5} },
			want:   ErrIndexOutOfRange,
		},
		{
			name:   "integer positions",
			mutate: func(doc *gltf.Document) { doc.Accessors[0].ComponentType = gltf.ComponentUint },
			want:   ErrUnsupported,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := triangleDoc(t)
			doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
			doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
			tc.mutate(doc)

			_, err := LoadDocument(doc)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadGLB(t *testing.T) {
	doc := triangleDoc(t)
	doc.Nodes = []*gltf.Node{{Name: "saved", Mesh: gltf.Index(0), Translation: [3]float64{0, 0, 5}}}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)

	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	objects, err := LoadGLB(path)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "saved", objects[0].Name)
	assertVertices(t, []math3d.Vec3{math3d.V3(1, 0, 5), math3d.V3(0, 1, 5), math3d.V3(0, 0, 6)}, objects[0].Vertices)
}

func TestLoadGLTFExternalBuffer(t *testing.T) {
	doc := triangleDoc(t)
	doc.Buffers[0].URI = "tri.bin"
	doc.Nodes = []*gltf.Node{{Name: "split", Mesh: gltf.Index(0)}}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}

	dir := t.TempDir()
	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, gltf.Save(doc, path))
	require.FileExists(t, filepath.Join(dir, "tri.bin"))

	objects, err := LoadGLB(path)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "split", objects[0].Name)
	assertVertices(t, []math3d.Vec3{math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)}, objects[0].Vertices)
	assert.Equal(t, [][3]uint32{{0, 1, 2}}, objects[0].Triangles)
}

func TestLoadDocumentByteIndices(t *testing.T) {
	doc := triangleDoc(t)
	doc.Buffers[0].Data = append(doc.Buffers[0].Data, 2, 1, 0)
	doc.Buffers[0].ByteLength = len(doc.Buffers[0].Data)
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: len(doc.Buffers[0].Data) - 3,
		ByteLength: 3,
	})
	doc.Accessors[1] = &gltf.Accessor{
		BufferView:    gltf.Index(2),
		ComponentType: gltf.ComponentUbyte,
		Count:         3,
		Type:          gltf.AccessorScalar,
	}

	objects, err := LoadDocument(doc)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, [][3]uint32{{2, 1, 0}}, objects[0].Triangles)
}

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	assert.Error(t, err)
}
