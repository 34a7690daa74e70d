package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
)

// ReadOBJ parses vertex positions and faces from a Wavefront OBJ stream.
// Polygons are fan-triangulated, texture and normal references are ignored.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	m := &Mesh{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, errors.Errorf("obj line %d: vertex needs 3 coordinates", line)
			}
			var c [3]float32
			for i := range c {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, errors.Wrapf(err, "obj line %d", line)
				}
				c[i] = float32(f)
			}
			m.Vertices = append(m.Vertices, math.Vec3{X: c[0], Y: c[1], Z: c[2]})

		case "f":
			if len(fields) < 4 {
				return nil, errors.Errorf("obj line %d: face needs 3 vertices", line)
			}
			poly := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := parseFaceRef(ref, len(m.Vertices))
				if err != nil {
					return nil, errors.Wrapf(err, "obj line %d", line)
				}
				poly = append(poly, idx)
			}
			for i := 1; i+1 < len(poly); i++ {
				m.Indices = append(m.Indices, poly[0], poly[i], poly[i+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read obj")
	}
	return m, nil
}

// parseFaceRef resolves "v", "v/vt", "v//vn" or "v/vt/vn" to a zero-based
// vertex index. Negative references count back from the last vertex.
func parseFaceRef(ref string, nverts int) (uint32, error) {
	if slash := strings.IndexByte(ref, '/'); slash >= 0 {
		ref = ref[:slash]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = nverts + n + 1
	}
	if n < 1 || n > nverts {
		return 0, errors.Wrapf(ErrBadIndex, "face reference %s", ref)
	}
	return uint32(n - 1), nil
}

// WriteOBJ writes m as a Wavefront OBJ stream.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
	}
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangle(i)
		fmt.Fprintf(bw, "f %d %d %d\n", t[0]+1, t[1]+1, t[2]+1)
	}
	return bw.Flush()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// LoadOBJ reads an OBJ file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadOBJ(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return m, nil
}

// SaveOBJ writes m to an OBJ file.
func SaveOBJ(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
