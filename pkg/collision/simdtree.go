package collision

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/bvh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// Node members: per-axis slot bounds plus the slot data words.
var nodeBoundMembers = [6]string{"lx", "hx", "ly", "hy", "lz", "hz"}

const nodeDataMember = "data"

func checkNodeLayout(node *tagfile.Object) error {
	for _, name := range nodeBoundMembers {
		if c := node.Member(name); c == nil || len(c.Children) < bvh.Branching {
			return errors.Wrapf(ErrLayout, "tree node member %s", name)
		}
	}
	if c := node.Member(nodeDataMember); c == nil || len(c.Children) < bvh.Branching {
		return errors.Wrapf(ErrLayout, "tree node member %s", nodeDataMember)
	}
	return nil
}

// slotBounds returns the six per-axis vectors of a node, slot i in lane i.
// Empty slots are inverted so no query can hit them.
func slotBounds(n bvh.FlatNode) [6]mgl32.Vec4 {
	var out [6]mgl32.Vec4
	for s := 0; s < bvh.Branching; s++ {
		lo := math.Vec3{X: stdmath.MaxFloat32, Y: stdmath.MaxFloat32, Z: stdmath.MaxFloat32}
		hi := lo.Scale(-1)
		if n.Slots[s].Used {
			lo, hi = n.Slots[s].Box.Min, n.Slots[s].Box.Max
		}
		out[0][s], out[1][s] = lo.X, hi.X
		out[2][s], out[3][s] = lo.Y, hi.Y
		out[4][s], out[5][s] = lo.Z, hi.Z
	}
	return out
}

func writeNode(dst *tagfile.Object, n bvh.FlatNode) error {
	bounds := slotBounds(n)
	for i, name := range nodeBoundMembers {
		if err := writeVec4(dst.Member(name), bounds[i]); err != nil {
			return err
		}
	}
	data := dst.Member(nodeDataMember)
	for s := 0; s < bvh.Branching; s++ {
		data.Children[s].SetInt(int64(n.Data(s)))
	}
	return nil
}

// writeSimdTree replaces the tree's node array with a dummy node followed
// by the flattened hierarchy, and updates the domain box when present.
func writeSimdTree(tree, nodes, tmpl *tagfile.Object, built *bvh.Tree) error {
	flat := built.Flatten()
	children := make([]*tagfile.Object, 0, len(flat)+1)

	dummy := tmpl.Clone()
	if err := writeNode(dummy, bvh.FlatNode{}); err != nil {
		return err
	}
	children = append(children, dummy)

	for _, fn := range flat {
		// Data encodes child+1, matching the shift from the dummy node.
		n := tmpl.Clone()
		if err := writeNode(n, fn); err != nil {
			return err
		}
		children = append(children, n)
	}
	nodes.Children = children

	if domain := tree.Member(memberDomain); domain != nil {
		d := built.Domain()
		if lo := domain.Member("min"); lo != nil {
			if err := writeVec4(lo, toVec4(d.Min, 0)); err != nil {
				return err
			}
		}
		if hi := domain.Member("max"); hi != nil {
			if err := writeVec4(hi, toVec4(d.Max, 0)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadTree returns the engine node array of a concave shape, dummy node
// included. Child slots hold engine node indices.
func ReadTree(f *tagfile.File) ([]bvh.FlatNode, error) {
	shape := findConcave(f)
	if shape == nil {
		return nil, ErrShapeNotFound
	}
	nodes, err := member(shape, memberBoundingVolume, memberSimdTree, memberNodes)
	if err != nil {
		return nil, err
	}

	out := make([]bvh.FlatNode, len(nodes.Children))
	for i, src := range nodes.Children {
		if err := checkNodeLayout(src); err != nil {
			return nil, err
		}
		var axes [6]mgl32.Vec4
		for a, name := range nodeBoundMembers {
			if axes[a], err = readVec4(src.Member(name)); err != nil {
				return nil, err
			}
		}
		data := src.Member(nodeDataMember)
		box := math.EmptyAABB()
		for s := 0; s < bvh.Branching; s++ {
			d := uint32(data.Children[s].Int())
			if d == 0 {
				continue
			}
			slot := bvh.FlatSlot{
				Used: true,
				Box: math.AABB{
					Min: math.Vec3{X: axes[0][s], Y: axes[2][s], Z: axes[4][s]},
					Max: math.Vec3{X: axes[1][s], Y: axes[3][s], Z: axes[5][s]},
				},
			}
			if d&1 == 1 {
				slot.Leaf = true
				slot.Triangle = int(d >> 1)
			} else {
				slot.Child = int(d >> 1)
			}
			out[i].Slots[s] = slot
			box = box.Union(slot.Box)
		}
		out[i].Box = box
	}
	return out, nil
}
