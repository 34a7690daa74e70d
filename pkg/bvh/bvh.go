// Package bvh builds the shallow 4-ary bounding volume hierarchy stored in
// mesh collision shapes.
//
// Triangles are grouped greedily with their three nearest neighbours by
// centroid, the resulting nodes are grouped the same way until one root
// remains, and the tree is then flattened depth-first with child slots
// visited from last to first.
package bvh

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
)

// Branching is the maximum number of slots per node.
const Branching = 4

var (
	ErrNoTriangles = errors.New("bvh: mesh has no triangles")
	ErrBadIndices  = errors.New("bvh: index count is not a multiple of 3")
	ErrBadVertex   = errors.New("bvh: triangle references missing vertex")
)

// Slot is one child entry of a node: either a triangle or a sub-node.
type Slot struct {
	Box      math.AABB
	Triangle int   // valid when Child is nil
	Child    *Node // nil for a leaf slot
}

// IsLeaf reports whether the slot references a triangle.
func (s Slot) IsLeaf() bool {
	return s.Child == nil
}

// Node is a construction node with up to four occupied slots.
type Node struct {
	Slots  []Slot
	Box    math.AABB
	Center math.Vec3
}

func newNode(slots []Slot) *Node {
	n := &Node{Slots: slots, Box: math.EmptyAABB()}
	for _, s := range slots {
		n.Box = n.Box.Union(s.Box)
	}
	n.Center = n.Box.Center()
	return n
}

// Tree is a built hierarchy.
type Tree struct {
	Root      *Node
	Triangles int
}

// Domain returns the bounding box of the whole tree.
func (t *Tree) Domain() math.AABB {
	return t.Root.Box
}

// Build groups the triangles of an indexed mesh into a tree.
func Build(vertices []math.Vec3, indices []uint32) (*Tree, error) {
	if len(indices)%3 != 0 {
		return nil, errors.Wrapf(ErrBadIndices, "%d indices", len(indices))
	}
	n := len(indices) / 3
	if n == 0 {
		return nil, ErrNoTriangles
	}

	slots := make([]Slot, n)
	centers := make([]math.Vec3, n)
	for tri := 0; tri < n; tri++ {
		box := math.EmptyAABB()
		for k := 0; k < 3; k++ {
			vi := indices[tri*3+k]
			if int(vi) >= len(vertices) {
				return nil, errors.Wrapf(ErrBadVertex, "triangle %d vertex %d", tri, vi)
			}
			box = box.Extend(vertices[vi])
		}
		slots[tri] = Slot{Box: box, Triangle: tri}
		centers[tri] = triangleCentroid(vertices, indices[tri*3:tri*3+3])
	}

	var nodes []*Node
	for _, group := range groupNearest(centers) {
		gs := make([]Slot, len(group))
		for i, idx := range group {
			gs[i] = slots[idx]
		}
		nodes = append(nodes, newNode(gs))
	}

	for len(nodes) > 1 {
		pts := make([]math.Vec3, len(nodes))
		for i, nd := range nodes {
			pts[i] = nd.Center
		}
		var next []*Node
		for _, group := range groupNearest(pts) {
			gs := make([]Slot, len(group))
			for i, idx := range group {
				gs[i] = Slot{Box: nodes[idx].Box, Child: nodes[idx]}
			}
			next = append(next, newNode(gs))
		}
		nodes = next
	}

	return &Tree{Root: nodes[0], Triangles: n}, nil
}

func triangleCentroid(vertices []math.Vec3, tri []uint32) math.Vec3 {
	return vertices[tri[0]].Add(vertices[tri[1]]).Add(vertices[tri[2]]).Scale(1.0 / 3.0)
}

// groupNearest partitions points into groups of at most Branching. Each
// group is seeded by the first ungrouped point in order and filled with the
// nearest remaining points.
func groupNearest(points []math.Vec3) [][]int {
	grouped := make([]bool, len(points))
	var groups [][]int

	type candidate struct {
		idx  int
		dist float32
	}
	cands := make([]candidate, 0, len(points))

	for seed := range points {
		if grouped[seed] {
			continue
		}
		grouped[seed] = true

		cands = cands[:0]
		for i, p := range points {
			if !grouped[i] {
				cands = append(cands, candidate{i, points[seed].DistanceSq(p)})
			}
		}
		sort.SliceStable(cands, func(a, b int) bool {
			return cands[a].dist < cands[b].dist
		})

		group := []int{seed}
		for _, c := range cands {
			if len(group) == Branching {
				break
			}
			group = append(group, c.idx)
			grouped[c.idx] = true
		}
		groups = append(groups, group)
	}
	return groups
}
