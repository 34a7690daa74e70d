package mesh

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
)

func makeQuad() *Mesh {
	return &Mesh{
		Vertices: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		m    *Mesh
		want error
	}{
		{"ok", makeQuad(), nil},
		{"empty", &Mesh{}, ErrEmpty},
		{"partial", &Mesh{Vertices: makeQuad().Vertices, Indices: []uint32{0, 1}}, ErrBadIndexCount},
		{"out of range", &Mesh{Vertices: makeQuad().Vertices, Indices: []uint32{0, 1, 4}}, ErrBadIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadOBJ(t *testing.T) {
	src := `# quad
v 0 0 0
v 1 0 0
v 1 0 1
v 0 0 1
vn 0 1 0
f 1//1 2//1 3//1 4//1
f -4 -3 -2
`
	m, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ() error = %v", err)
	}
	if len(m.Vertices) != 4 {
		t.Errorf("vertices = %d, want 4", len(m.Vertices))
	}
	want := []uint32{0, 1, 2, 0, 2, 3, 0, 1, 2}
	if len(m.Indices) != len(want) {
		t.Fatalf("indices = %v, want %v", m.Indices, want)
	}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", m.Indices, want)
		}
	}
}

func TestReadOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"short vertex", "v 1 2\n"},
		{"bad float", "v 1 x 2\n"},
		{"short face", "v 0 0 0\nf 1 1\n"},
		{"bad reference", "v 0 0 0\nf 1 2 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadOBJ(strings.NewReader(tt.src)); err == nil {
				t.Error("ReadOBJ() should fail")
			}
		})
	}
}

func TestOBJRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	src := makeQuad()
	src.Vertices[2].Y = 0.25
	if err := SaveOBJ(path, src); err != nil {
		t.Fatalf("SaveOBJ() error = %v", err)
	}
	got, err := LoadOBJ(path)
	if err != nil {
		t.Fatalf("LoadOBJ() error = %v", err)
	}
	var a, b bytes.Buffer
	WriteOBJ(&a, src)
	WriteOBJ(&b, got)
	if a.String() != b.String() {
		t.Errorf("round trip differs:\n%s\nvs\n%s", a.String(), b.String())
	}
}

func TestBruteForceHullTetrahedron(t *testing.T) {
	pts := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0.1, Y: 0.1, Z: 0.1}}
	faces, err := BruteForceHull{}.Hull(pts)
	if err != nil {
		t.Fatalf("Hull() error = %v", err)
	}
	if len(faces) != 4 {
		t.Fatalf("Hull() = %d faces, want 4", len(faces))
	}

	center := math.Vec3{X: 0.25, Y: 0.25, Z: 0.25}
	for _, f := range faces {
		for _, idx := range f {
			if idx == 4 {
				t.Errorf("interior point used in face %v", f)
			}
		}
		a, b, c := pts[f[0]], pts[f[1]], pts[f[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(a.Sub(center)) <= 0 {
			t.Errorf("face %v is not outward facing", f)
		}
	}
}

func TestBruteForceHullCube(t *testing.T) {
	var pts []math.Vec3
	for i := 0; i < 8; i++ {
		pts = append(pts, math.Vec3{X: float32(i & 1), Y: float32(i >> 1 & 1), Z: float32(i >> 2 & 1)})
	}
	faces, err := BruteForceHull{}.Hull(pts)
	if err != nil {
		t.Fatalf("Hull() error = %v", err)
	}
	// Four coplanar points per side give every triple on that side.
	if len(faces) != 24 {
		t.Errorf("Hull() = %d faces, want 24", len(faces))
	}

	m := FromFaces(pts, faces)
	if err := m.Validate(); err != nil {
		t.Errorf("hull mesh invalid: %v", err)
	}
}

func TestBruteForceHullLimit(t *testing.T) {
	pts := make([]math.Vec3, 5)
	_, err := BruteForceHull{MaxPoints: 4}.Hull(pts)
	if !errors.Is(err, ErrTooManyPoints) {
		t.Errorf("Hull() error = %v, want ErrTooManyPoints", err)
	}
}
