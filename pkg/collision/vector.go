package collision

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// readVec4 reads an hkVector4 tuple.
func readVec4(o *tagfile.Object) (mgl32.Vec4, error) {
	var v mgl32.Vec4
	if o == nil || len(o.Children) < 3 {
		return v, errors.Wrapf(ErrLayout, "vector %s", o)
	}
	for i := 0; i < len(v) && i < len(o.Children); i++ {
		v[i] = o.Children[i].Float()
	}
	return v, nil
}

// writeVec4 stores v into an hkVector4 tuple.
func writeVec4(o *tagfile.Object, v mgl32.Vec4) error {
	if o == nil || len(o.Children) < 3 {
		return errors.Wrapf(ErrLayout, "vector %s", o)
	}
	for i := 0; i < len(v) && i < len(o.Children); i++ {
		o.Children[i].SetFloat(v[i])
	}
	return nil
}

func toVec4(p math.Vec3, w float32) mgl32.Vec4 {
	return mgl32.Vec4{p.X, p.Y, p.Z, w}
}

func fromVec4(v mgl32.Vec4) math.Vec3 {
	return math.Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// readPoints converts an array of hkVector4 to points.
func readPoints(arr *tagfile.Object) ([]math.Vec3, error) {
	pts := make([]math.Vec3, len(arr.Children))
	for i, c := range arr.Children {
		v, err := readVec4(c)
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		pts[i] = fromVec4(v)
	}
	return pts, nil
}

// writePoints rebuilds an array of hkVector4 from points, cloning tmpl for
// every element.
func writePoints(arr, tmpl *tagfile.Object, pts []math.Vec3, w float32) error {
	children := make([]*tagfile.Object, len(pts))
	for i, p := range pts {
		c := tmpl.Clone()
		if err := writeVec4(c, toVec4(p, w)); err != nil {
			return err
		}
		children[i] = c
	}
	arr.Children = children
	return nil
}
