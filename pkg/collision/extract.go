package collision

import (
	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// ExtractMesh returns the triangle mesh of the file's concave shape.
func ExtractMesh(f *tagfile.File) (*mesh.Mesh, error) {
	shape := findConcave(f)
	if shape == nil {
		return nil, ErrShapeNotFound
	}
	tris, verts, err := geometryArrays(shape)
	if err != nil {
		return nil, err
	}

	m := &mesh.Mesh{Indices: make([]uint32, 0, len(tris.Children)*3)}
	if m.Vertices, err = readPoints(verts); err != nil {
		return nil, err
	}
	for i, t := range tris.Children {
		idx, err := triangleIndices(t)
		if err != nil {
			return nil, errors.Wrapf(err, "triangle %d", i)
		}
		m.Indices = append(m.Indices, idx[0], idx[1], idx[2])
	}
	return m, nil
}

// ExtractConvexPoints returns the vertex set of the file's convex shape.
func ExtractConvexPoints(f *tagfile.File) ([]math.Vec3, error) {
	shape := findConvex(f)
	if shape == nil {
		return nil, ErrShapeNotFound
	}
	verts, err := member(shape, memberVertices)
	if err != nil {
		return nil, err
	}
	return readPoints(verts)
}

var triangleFields = [3]string{"a", "b", "c"}

// triangleIndices reads a triangle stored either as a class with a, b, c
// members or as a tuple of indices.
func triangleIndices(t *tagfile.Object) ([3]uint32, error) {
	var idx [3]uint32
	for k := range idx {
		leaf, err := triangleField(t, k)
		if err != nil {
			return idx, err
		}
		idx[k] = uint32(leaf.Int())
	}
	return idx, nil
}

func triangleField(t *tagfile.Object, k int) (*tagfile.Object, error) {
	if t.Kind == tagfile.SubTypeClass {
		if leaf := t.Member(triangleFields[k]); leaf != nil {
			return leaf, nil
		}
	} else if k < len(t.Children) {
		return t.Children[k], nil
	}
	return nil, errors.Wrapf(ErrLayout, "triangle %s", t)
}
