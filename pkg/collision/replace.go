package collision

import (
	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/bvh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// ReplaceMesh rebuilds the concave shape's triangles, vertices, key width
// and AABB tree from m. It returns false without touching the file when
// the triangle count needs more than MaxShapeKeyBits key bits.
func ReplaceMesh(f *tagfile.File, m *mesh.Mesh) (bool, error) {
	return replaceMesh(f, m, MaxShapeKeyBits)
}

func replaceMesh(f *tagfile.File, m *mesh.Mesh, maxBits int) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	shape := findConcave(f)
	if shape == nil {
		return false, ErrShapeNotFound
	}

	keyBits, _ := ShapeKeyBits(m.TriangleCount())
	if keyBits > maxBits {
		return false, nil
	}

	// Resolve everything that can fail before the first mutation.
	tris, verts, err := geometryArrays(shape)
	if err != nil {
		return false, err
	}
	triTmpl, err := template(tris)
	if err != nil {
		return false, err
	}
	vertTmpl, err := template(verts)
	if err != nil {
		return false, err
	}
	for k := range triangleFields {
		if _, err := triangleField(triTmpl, k); err != nil {
			return false, err
		}
	}
	keyLeaf := shape.Member(memberShapeKeyBits)
	if keyLeaf == nil {
		return false, errors.Wrapf(ErrLayout, "%s has no %s", shape.TypeName(), memberShapeKeyBits)
	}
	tree, err := member(shape, memberBoundingVolume, memberSimdTree)
	if err != nil {
		return false, err
	}
	nodes, err := member(tree, memberNodes)
	if err != nil {
		return false, err
	}
	nodeTmpl, err := template(nodes)
	if err != nil {
		return false, err
	}
	if err := checkNodeLayout(nodeTmpl); err != nil {
		return false, err
	}
	built, err := bvh.Build(m.Vertices, m.Indices)
	if err != nil {
		return false, err
	}

	if err := writePoints(verts, vertTmpl, m.Vertices, ConcaveVertexW); err != nil {
		return false, err
	}

	triChildren := make([]*tagfile.Object, m.TriangleCount())
	for i := range triChildren {
		t := triTmpl.Clone()
		idx := m.Triangle(i)
		for k := range idx {
			leaf, _ := triangleField(t, k)
			leaf.SetInt(int64(idx[k]))
		}
		triChildren[i] = t
	}
	tris.Children = triChildren

	keyLeaf.SetInt(int64(keyBits))

	if err := writeSimdTree(tree, nodes, nodeTmpl, built); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceConvex rebuilds the convex shape's vertex set from points. It
// returns false without touching the file when there are more points than
// MaxConvexVertices.
func ReplaceConvex(f *tagfile.File, points []math.Vec3) (bool, error) {
	if len(points) == 0 {
		return false, ErrNoPoints
	}
	shape := findConvex(f)
	if shape == nil {
		return false, ErrShapeNotFound
	}
	if len(points) > MaxConvexVertices {
		return false, nil
	}

	verts, err := member(shape, memberVertices)
	if err != nil {
		return false, err
	}
	tmpl, err := template(verts)
	if err != nil {
		return false, err
	}
	if err := writePoints(verts, tmpl, points, ConvexVertexW); err != nil {
		return false, err
	}
	return true, nil
}
