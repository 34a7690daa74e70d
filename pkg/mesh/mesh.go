// Package mesh holds the neutral triangle mesh exchanged with collision
// shapes, its OBJ import/export and the convex hull service.
package mesh

import (
	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
)

var (
	ErrBadIndexCount = errors.New("mesh: index count is not a multiple of 3")
	ErrBadIndex      = errors.New("mesh: index references missing vertex")
	ErrEmpty         = errors.New("mesh: no triangles")
)

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []math.Vec3
	Indices  []uint32
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) [3]uint32 {
	return [3]uint32{m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]}
}

// Bounds returns the box around all vertices.
func (m *Mesh) Bounds() math.AABB {
	return math.Bounds(m.Vertices)
}

// Validate checks the index list against the vertex list.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return errors.Wrapf(ErrBadIndexCount, "%d indices", len(m.Indices))
	}
	if len(m.Indices) == 0 {
		return ErrEmpty
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return errors.Wrapf(ErrBadIndex, "index %d = %d, %d vertices", i, idx, len(m.Vertices))
		}
	}
	return nil
}

// FromFaces builds a mesh from a point set and a face list.
func FromFaces(points []math.Vec3, faces [][3]uint32) *Mesh {
	m := &Mesh{Vertices: points, Indices: make([]uint32, 0, len(faces)*3)}
	for _, f := range faces {
		m.Indices = append(m.Indices, f[0], f[1], f[2])
	}
	return m
}
