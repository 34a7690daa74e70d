// Package collision maps physics shape objects of a tag file to and from
// the neutral mesh representation.
//
// Concave shapes (hknpExternMeshShape) carry an indexed triangle list and a
// SIMD AABB tree over it. Convex shapes (hknpConvexShape and
// hknpConvexPolytopeShape) carry only a vertex set.
package collision

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// Recognized shape classes.
const (
	ClassExternMesh     = "hknpExternMeshShape"
	ClassConvex         = "hknpConvexShape"
	ClassConvexPolytope = "hknpConvexPolytopeShape"
)

// Member names along the object paths the adapter touches.
const (
	memberGeometry       = "geometry"
	memberTriangles      = "triangles"
	memberVertices       = "vertices"
	memberShapeKeyBits   = "numShapeKeyBits"
	memberBoundingVolume = "boundingVolumeData"
	memberSimdTree       = "simdTree"
	memberNodes          = "nodes"
	memberDomain         = "domain"
)

// MaxShapeKeyBits is the widest triangle key the engine can address.
const MaxShapeKeyBits = 24

// MaxConvexVertices is the largest vertex set a convex shape can index.
// Polytope faces address their vertices with 8-bit indices.
const MaxConvexVertices = 256

// Vertex W components written by the adapter.
const (
	ConcaveVertexW = 0
	ConvexVertexW  = 0.5
)

var (
	ErrShapeNotFound = errors.New("collision: no supported shape in file")
	ErrLayout        = errors.New("collision: unexpected shape layout")
	ErrNoTemplate    = errors.New("collision: no existing element to use as template")
	ErrNoPoints      = errors.New("collision: empty point set")
)

// ShapeKeyBits returns ceil(log2(n)), the key width needed to address n
// triangles, and whether it fits MaxShapeKeyBits.
func ShapeKeyBits(n int) (int, bool) {
	if n <= 1 {
		return 0, true
	}
	b := bits.Len(uint(n - 1))
	return b, b <= MaxShapeKeyBits
}

// findShape returns the first class object, in depth-first order, whose
// type is or derives from one of classes.
func findShape(f *tagfile.File, classes ...string) *tagfile.Object {
	var found *tagfile.Object
	f.Root.Walk(func(o *tagfile.Object) bool {
		if o.Kind != tagfile.SubTypeClass {
			return true
		}
		for _, c := range classes {
			if f.Types.IsA(o.Type, c) {
				found = o
				return false
			}
		}
		return true
	})
	return found
}

func findConcave(f *tagfile.File) *tagfile.Object {
	return findShape(f, ClassExternMesh)
}

func findConvex(f *tagfile.File) *tagfile.Object {
	return findShape(f, ClassConvexPolytope, ClassConvex)
}

// IsConvexMesh reports whether the first supported shape in the file is a
// convex shape.
func IsConvexMesh(f *tagfile.File) bool {
	shape := findShape(f, ClassExternMesh, ClassConvexPolytope, ClassConvex)
	if shape == nil {
		return false
	}
	return !f.Types.IsA(shape.Type, ClassExternMesh)
}

// member returns a required child, following pointers.
func member(o *tagfile.Object, names ...string) (*tagfile.Object, error) {
	cur := o
	for _, n := range names {
		next := cur.Member(n).Deref()
		if next == nil {
			return nil, errors.Wrapf(ErrLayout, "%s has no %s", cur.TypeName(), n)
		}
		cur = next
	}
	return cur, nil
}

// geometryArrays returns the triangle and vertex arrays of a concave shape.
func geometryArrays(shape *tagfile.Object) (tris, verts *tagfile.Object, err error) {
	geom, err := member(shape, memberGeometry, memberGeometry)
	if err != nil {
		return nil, nil, err
	}
	if tris, err = member(geom, memberTriangles); err != nil {
		return nil, nil, err
	}
	if verts, err = member(geom, memberVertices); err != nil {
		return nil, nil, err
	}
	return tris, verts, nil
}

// template returns a detached copy of an array's first element.
func template(arr *tagfile.Object) (*tagfile.Object, error) {
	if len(arr.Children) == 0 {
		return nil, errors.Wrapf(ErrNoTemplate, "%s %s", arr.TypeName(), arr.Name)
	}
	return arr.Children[0].Clone(), nil
}
