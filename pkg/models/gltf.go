package models

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/occlusion/pkg/math3d"
)

var (
	// ErrUnsupported is returned for glTF content the loader cannot read,
	// such as integer positions.
	ErrUnsupported = errors.New("unsupported gltf content")
	// ErrMalformed is returned when accessor data does not fit its buffer.
	ErrMalformed = errors.New("malformed gltf data")
)

// LoadGLB loads a .glb file, or a .gltf file with embedded or external
// buffers, into world-space objects.
func LoadGLB(path string) ([]Object, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	objects, err := LoadDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return objects, nil
}

// LoadDocument flattens the default scene of doc into one Object per mesh
// node, with node transforms applied. Documents without a default scene use
// the first scene; documents without scenes load every mesh untransformed.
func LoadDocument(doc *gltf.Document) ([]Object, error) {
	var roots []int
	switch {
	case doc.Scene != nil && *doc.Scene < len(doc.Scenes):
		roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		roots = doc.Scenes[0].Nodes
	default:
		return loadMeshes(doc)
	}

	var objects []Object
	visited := make(map[int]bool)
	var walk func(idx int, parent math3d.Mat4) error
	walk = func(idx int, parent math3d.Mat4) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node %d: %w", idx, ErrIndexOutOfRange)
		}
		if visited[idx] {
			return fmt.Errorf("node %d: cycle in node tree", idx)
		}
		visited[idx] = true
		defer delete(visited, idx)

		node := doc.Nodes[idx]
		world := parent.Mul(nodeTransform(node))

		if node.Mesh != nil {
			obj, err := meshObject(doc, *node.Mesh)
			if err != nil {
				return fmt.Errorf("node %d: %w", idx, err)
			}
			if node.Name != "" {
				obj.Name = node.Name
			}
			obj.Transform(world)
			objects = append(objects, obj)
		}
		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root, math3d.Identity()); err != nil {
			return nil, err
		}
	}
	return objects, nil
}

func loadMeshes(doc *gltf.Document) ([]Object, error) {
	objects := make([]Object, 0, len(doc.Meshes))
	for i := range doc.Meshes {
		obj, err := meshObject(doc, i)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// nodeTransform returns the node's local matrix, either given directly or
// composed from translation, rotation and scale.
func nodeTransform(node *gltf.Node) math3d.Mat4 {
	m := math3d.Mat4(node.MatrixOrDefault())
	if !m.ApproxEqual(math3d.Identity(), 0) {
		return m
	}
	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	return math3d.Translate(math3d.V3(t[0], t[1], t[2])).
		Mul(math3d.FromQuat(r[0], r[1], r[2], r[3])).
		Mul(math3d.Scale(math3d.V3(s[0], s[1], s[2])))
}

// meshObject merges every triangle primitive of a mesh into one object in
// mesh-local space.
func meshObject(doc *gltf.Document, meshIdx int) (Object, error) {
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
		return Object{}, fmt.Errorf("mesh %d: %w", meshIdx, ErrIndexOutOfRange)
	}
	m := doc.Meshes[meshIdx]
	obj := Object{Name: m.Name}
	if obj.Name == "" {
		obj.Name = fmt.Sprintf("mesh%d", meshIdx)
	}

	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			// Lines, points and strips carry no surface.
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readPositions(doc, posIdx)
		if err != nil {
			return Object{}, fmt.Errorf("mesh %q primitive %d: read positions: %w", m.Name, pi, err)
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return Object{}, fmt.Errorf("mesh %q primitive %d: read indices: %w", m.Name, pi, err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		base := uint32(len(obj.Vertices))
		obj.Vertices = append(obj.Vertices, positions...)
		for i := 0; i+2 < len(indices); i += 3 {
			obj.Triangles = append(obj.Triangles, [3]uint32{
				base + indices[i],
				base + indices[i+1],
				base + indices[i+2],
			})
		}
	}

	if err := obj.Validate(); err != nil {
		return Object{}, fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	return obj, nil
}

// accessor returns the accessor at idx, bounds-checked.
func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d: %w", idx, ErrIndexOutOfRange)
	}
	acr := doc.Accessors[idx]
	if acr.BufferView != nil && acr.Sparse == nil {
		bv := *acr.BufferView
		if bv < 0 || bv >= len(doc.BufferViews) {
			return nil, fmt.Errorf("accessor %d: buffer view %d: %w", idx, bv, ErrIndexOutOfRange)
		}
		if acr.ByteOffset < 0 || acr.ByteOffset > doc.BufferViews[bv].ByteLength {
			return nil, fmt.Errorf("accessor %d: offset %d: %w", idx, acr.ByteOffset, ErrMalformed)
		}
	}
	return acr, nil
}

// readPositions reads float VEC3 positions. Buffers loaded from .bin files
// and data URIs read the same way as GLB chunks.
func readPositions(doc *gltf.Document, idx int) ([]math3d.Vec3, error) {
	acr, err := accessor(doc, idx)
	if err != nil {
		return nil, err
	}
	if acr.Type != gltf.AccessorVec3 || acr.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("%w: positions are %v/%v, want VEC3 float", ErrUnsupported, acr.Type, acr.ComponentType)
	}

	raw, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w: %w", idx, ErrMalformed, err)
	}
	out := make([]math3d.Vec3, len(raw))
	for i, p := range raw {
		out[i] = math3d.V3(float64(p[0]), float64(p[1]), float64(p[2]))
	}
	return out, nil
}

// readIndices reads unsigned byte, short or int indices as uint32.
func readIndices(doc *gltf.Document, idx int) ([]uint32, error) {
	acr, err := accessor(doc, idx)
	if err != nil {
		return nil, err
	}
	switch acr.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentUint:
	default:
		return nil, fmt.Errorf("%w: index component %v", ErrUnsupported, acr.ComponentType)
	}
	if acr.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: indices are %v, want SCALAR", ErrUnsupported, acr.Type)
	}

	indices, err := modeler.ReadIndices(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w: %w", idx, ErrMalformed, err)
	}
	return indices, nil
}
