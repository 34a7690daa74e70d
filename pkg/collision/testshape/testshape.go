// Package testshape builds small in-memory tag files holding the physics
// shape classes, for tests of packages that edit collision data.
package testshape

import (
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// Type IDs of the synthetic shape types.
const (
	tReal tagfile.TypeID = iota + 1
	tVector4
	tUint8
	tUint32
	tInt32
	tUint32x4
	tTriangle
	tTriangleArray
	tVectorArray
	tGeometry
	tMeshGeometry
	tMeshGeometryPtr
	tNode
	tNodeArray
	tAabb
	tSimdTree
	tVolumeData
	tShape
	tExternMesh
	tConvex
	tPolytope
	tShapePtr
	tRoot
	TypeCount = iota + 1
)

// Types builds a reduced version of the physics shape classes:
//
//	hkRootLevelContainer { shape hknpShape* }
//	hknpShape { numShapeKeyBits uint8 }
//	hknpExternMeshShape : hknpShape { geometry Geometry*, boundingVolumeData }
//	hknpConvexShape : hknpShape { vertices hkArray<hkVector4> }
//	hknpConvexPolytopeShape : hknpConvexShape
func Types() *tagfile.TypeTable {
	tt := tagfile.NewTypeTable(int(TypeCount))

	set := func(id tagfile.TypeID, name string, sub uint32, size, align int) *tagfile.TagType {
		t := tt.Get(id)
		t.Name = name
		t.Flags = tagfile.TypeHasSubType | tagfile.TypeHasSize
		t.SubTypeFlags = sub
		t.ByteSize = size
		t.Alignment = align
		return t
	}
	class := func(id tagfile.TypeID, name string, size, align int, members ...tagfile.Member) *tagfile.TagType {
		t := set(id, name, uint32(tagfile.SubTypeClass), size, align)
		t.Flags |= tagfile.TypeHasMembers
		t.Members = members
		return t
	}
	m := func(name string, off int, typ tagfile.TypeID) tagfile.Member {
		return tagfile.Member{Name: name, ByteOffset: off, Type: typ}
	}
	tuple := uint32(tagfile.SubTypeTuple)
	array := uint32(tagfile.SubTypeArray)
	pointer := uint32(tagfile.SubTypePointer)

	set(tReal, "hkReal", uint32(tagfile.SubTypeFloat)|0x1740, 4, 4)
	set(tVector4, "hkVector4", 4<<8|tuple, 16, 16).Pointee = tReal
	set(tUint8, "hkUint8", uint32(tagfile.SubTypeInt)|tagfile.SubTypeInt8, 1, 1)
	set(tUint32, "hkUint32", uint32(tagfile.SubTypeInt)|tagfile.SubTypeInt32, 4, 4)
	set(tInt32, "hkInt32", uint32(tagfile.SubTypeInt)|tagfile.SubTypeInt32|tagfile.SubTypeSigned, 4, 4)
	set(tUint32x4, "hkUint32[4]", 4<<8|tuple, 16, 4).Pointee = tUint32

	class(tTriangle, "hkGeometry::Triangle", 16, 4,
		m("a", 0, tInt32), m("b", 4, tInt32), m("c", 8, tInt32), m("material", 12, tInt32))
	set(tTriangleArray, "hkArray", array, 16, 8).Pointee = tTriangle
	set(tVectorArray, "hkArray", array, 16, 8).Pointee = tVector4
	class(tGeometry, "hkGeometry", 32, 8, m("vertices", 0, tVectorArray), m("triangles", 16, tTriangleArray))
	class(tMeshGeometry, "hknpDefaultExternMeshShapeGeometry", 32, 8, m("geometry", 0, tGeometry))
	set(tMeshGeometryPtr, "T*", pointer, 8, 8).Pointee = tMeshGeometry

	class(tNode, "hkcdSimdTree::Node", 112, 16,
		m("lx", 0, tVector4), m("hx", 16, tVector4),
		m("ly", 32, tVector4), m("hy", 48, tVector4),
		m("lz", 64, tVector4), m("hz", 80, tVector4),
		m("data", 96, tUint32x4))
	set(tNodeArray, "hkArray", array, 16, 8).Pointee = tNode
	class(tAabb, "hkAabb", 32, 16, m("min", 0, tVector4), m("max", 16, tVector4))
	class(tSimdTree, "hkcdSimdTree", 48, 16, m("nodes", 0, tNodeArray), m("domain", 16, tAabb))
	class(tVolumeData, "hknpExternMeshShape::BoundingVolumeData", 48, 16, m("simdTree", 0, tSimdTree))

	class(tShape, "hknpShape", 16, 16, m("numShapeKeyBits", 0, tUint8))
	class(tExternMesh, "hknpExternMeshShape", 80, 16,
		m("geometry", 16, tMeshGeometryPtr), m("boundingVolumeData", 32, tVolumeData)).Parent = tShape
	class(tConvex, "hknpConvexShape", 32, 16, m("vertices", 16, tVectorArray)).Parent = tShape
	class(tPolytope, "hknpConvexPolytopeShape", 32, 16).Parent = tConvex
	set(tShapePtr, "T*", pointer, 8, 8).Pointee = tShape
	class(tRoot, "hkRootLevelContainer", 8, 8, m("shape", 0, tShapePtr))

	return tt
}

type builder struct {
	tt *tagfile.TypeTable
}

func (b builder) obj(id tagfile.TypeID, name string, children ...*tagfile.Object) *tagfile.Object {
	o := b.tt.NewObject(b.tt.Get(id), name)
	o.Children = children
	return o
}

func (b builder) leaf(id tagfile.TypeID, name string, v any) *tagfile.Object {
	o := b.tt.NewObject(b.tt.Get(id), name)
	o.Value = v
	return o
}

func (b builder) vec(name string, x, y, z, w float32) *tagfile.Object {
	o := b.obj(tVector4, name)
	for _, f := range []float32{x, y, z, w} {
		o.Children = append(o.Children, b.leaf(tReal, "", f))
	}
	return o
}

func (b builder) node() *tagfile.Object {
	data := b.obj(tUint32x4, "data")
	for i := 0; i < 4; i++ {
		data.Children = append(data.Children, b.leaf(tUint32, "", uint64(0)))
	}
	return b.obj(tNode, "",
		b.vec("lx", 0, 0, 0, 0), b.vec("hx", 0, 0, 0, 0),
		b.vec("ly", 0, 0, 0, 0), b.vec("hy", 0, 0, 0, 0),
		b.vec("lz", 0, 0, 0, 0), b.vec("hz", 0, 0, 0, 0),
		data)
}

func (b builder) triangle(a, bb, c int64) *tagfile.Object {
	return b.obj(tTriangle, "",
		b.leaf(tInt32, "a", a), b.leaf(tInt32, "b", bb), b.leaf(tInt32, "c", c), b.leaf(tInt32, "material", int64(0)))
}

func (b builder) root(shape *tagfile.Object) *tagfile.Object {
	return b.obj(tRoot, "", b.obj(tShapePtr, "shape", shape))
}

// Concave returns a file holding one extern mesh shape with a single
// triangle and a two-node tree.
func Concave() *tagfile.File {
	tt := Types()
	b := builder{tt}

	verts := b.obj(tVectorArray, "vertices",
		b.vec("", 0, 0, 0, 0), b.vec("", 1, 0, 0, 0), b.vec("", 0, 0, 1, 0))
	tris := b.obj(tTriangleArray, "triangles", b.triangle(0, 1, 2))
	geom := b.obj(tMeshGeometry, "", b.obj(tGeometry, "geometry", verts, tris))

	tree := b.obj(tSimdTree, "simdTree",
		b.obj(tNodeArray, "nodes", b.node(), b.node()),
		b.obj(tAabb, "domain", b.vec("min", 0, 0, 0, 0), b.vec("max", 1, 0, 1, 0)))

	shape := b.obj(tExternMesh, "",
		b.leaf(tUint8, "numShapeKeyBits", uint64(0)),
		b.obj(tMeshGeometryPtr, "geometry", geom),
		b.obj(tVolumeData, "boundingVolumeData", tree))

	return tagfile.New(tt, b.root(shape), tagfile.DefaultOptions())
}

// Convex returns a file holding a convex shape with a tetrahedron.
func Convex(polytope bool) *tagfile.File {
	tt := Types()
	b := builder{tt}

	id := tConvex
	if polytope {
		id = tPolytope
	}
	shape := b.obj(id, "",
		b.leaf(tUint8, "numShapeKeyBits", uint64(0)),
		b.obj(tVectorArray, "vertices",
			b.vec("", 0, 0, 0, 0.5), b.vec("", 1, 0, 0, 0.5),
			b.vec("", 0, 1, 0, 0.5), b.vec("", 0, 0, 1, 0.5)))

	return tagfile.New(tt, b.root(shape), tagfile.DefaultOptions())
}

// Strip returns n separated triangles along X.
func Strip(n int) ([]math.Vec3, []uint32) {
	var verts []math.Vec3
	var idx []uint32
	for i := 0; i < n; i++ {
		x := float32(i) * 2
		base := uint32(len(verts))
		verts = append(verts,
			math.Vec3{X: x, Y: 0, Z: 0},
			math.Vec3{X: x + 1, Y: 0, Z: 0},
			math.Vec3{X: x, Y: 0, Z: 1},
		)
		idx = append(idx, base, base+1, base+2)
	}
	return verts, idx
}
