package bvh

import "github.com/LazyBone152/XV2-Tools-sub008/pkg/math"

// FlatSlot is a slot of a flattened node.
type FlatSlot struct {
	Used     bool
	Leaf     bool
	Triangle int
	Child    int // index into the flattened array
	Box      math.AABB
}

// FlatNode is one entry of the flattened array.
type FlatNode struct {
	Box   math.AABB
	Slots [Branching]FlatSlot
}

// Data returns the engine encoding of a slot: tri*2+1 for a triangle,
// (child+1)*2 for a sub-node and 0 for an empty slot.
func (n FlatNode) Data(slot int) uint32 {
	s := n.Slots[slot]
	switch {
	case !s.Used:
		return 0
	case s.Leaf:
		return uint32(s.Triangle)*2 + 1
	default:
		return uint32(s.Child+1) * 2
	}
}

// SlotBox returns the box of a slot. Empty slots get an inverted box.
func (n FlatNode) SlotBox(slot int) math.AABB {
	if !n.Slots[slot].Used {
		return math.EmptyAABB()
	}
	return n.Slots[slot].Box
}

// Flatten lays the tree out depth-first. The root is at index 0 and a
// node's children are emitted from slot 3 down to slot 0.
func (t *Tree) Flatten() []FlatNode {
	var out []FlatNode

	var visit func(n *Node) int
	visit = func(n *Node) int {
		idx := len(out)
		out = append(out, FlatNode{Box: n.Box})
		for s := len(n.Slots) - 1; s >= 0; s-- {
			src := n.Slots[s]
			fs := FlatSlot{Used: true, Box: src.Box}
			if src.IsLeaf() {
				fs.Leaf = true
				fs.Triangle = src.Triangle
			} else {
				fs.Child = visit(src.Child)
			}
			out[idx].Slots[s] = fs
		}
		return idx
	}

	if t.Root != nil {
		visit(t.Root)
	}
	return out
}
