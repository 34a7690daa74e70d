package mesh

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
)

// HullBuilder triangulates the convex hull of a point set.
type HullBuilder interface {
	Hull(points []math.Vec3) ([][3]uint32, error)
}

// ErrTooManyPoints is returned when a point set exceeds a builder's limit.
var ErrTooManyPoints = errors.New("mesh: too many points for hull")

// BruteForceHull tests every point triple as a candidate face. It is meant
// for the small vertex sets of convex collision shapes.
type BruteForceHull struct {
	MaxPoints int     // 0 means DefaultHullMaxPoints
	Epsilon   float64 // 0 means DefaultHullEpsilon
}

const (
	DefaultHullMaxPoints = 256
	DefaultHullEpsilon   = 1e-5
)

// Hull returns outward-facing triangles. Coplanar points on a hull face
// produce overlapping triangles.
func (h BruteForceHull) Hull(points []math.Vec3) ([][3]uint32, error) {
	limit := h.MaxPoints
	if limit == 0 {
		limit = DefaultHullMaxPoints
	}
	if len(points) > limit {
		return nil, errors.Wrapf(ErrTooManyPoints, "%d > %d", len(points), limit)
	}
	eps := h.Epsilon
	if eps == 0 {
		eps = DefaultHullEpsilon
	}

	pts := make([]r3.Vec, len(points))
	for i, p := range points {
		pts[i] = r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
	}

	var faces [][3]uint32
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				n := r3.Cross(r3.Sub(pts[j], pts[i]), r3.Sub(pts[k], pts[i]))
				norm := r3.Norm(n)
				if norm < eps {
					continue
				}
				n = r3.Scale(1/norm, n)

				above, below := false, false
				for m, p := range pts {
					if m == i || m == j || m == k {
						continue
					}
					d := r3.Dot(n, r3.Sub(p, pts[i]))
					if d > eps {
						above = true
					} else if d < -eps {
						below = true
					}
					if above && below {
						break
					}
				}

				switch {
				case above && below:
				case above:
					faces = append(faces, [3]uint32{uint32(i), uint32(k), uint32(j)})
				default:
					faces = append(faces, [3]uint32{uint32(i), uint32(j), uint32(k)})
				}
			}
		}
	}
	return faces, nil
}
