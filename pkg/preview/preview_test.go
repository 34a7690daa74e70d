package preview

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
)

func makeQuad() *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestRender(t *testing.T) {
	for _, ss := range []int{1, 2} {
		opts := DefaultOptions()
		opts.Size = 64
		opts.Supersample = ss

		img, err := Render(makeQuad(), opts)
		if err != nil {
			t.Fatalf("ss=%d: Render() error = %v", ss, err)
		}
		if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
			t.Fatalf("ss=%d: bounds = %v", ss, b)
		}

		if a := img.NRGBAAt(32, 0).A; a != 0 {
			t.Errorf("ss=%d: margin alpha = %d, want 0", ss, a)
		}

		// The diagonal edge crosses the image center in a top-down view.
		drawn := false
		for dx := -1; dx <= 1 && !drawn; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if img.NRGBAAt(32+dx, 32+dy).A > 0 {
					drawn = true
					break
				}
			}
		}
		if !drawn {
			t.Errorf("ss=%d: no line near the center", ss)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := Render(&mesh.Mesh{}, DefaultOptions()); err != ErrEmptyMesh {
		t.Errorf("Render(empty) error = %v, want ErrEmptyMesh", err)
	}
	opts := DefaultOptions()
	opts.Size = 0
	if _, err := Render(makeQuad(), opts); err == nil {
		t.Error("Render(size 0) should fail")
	}
}

func TestEncode(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 32
	img, err := Render(makeQuad(), opts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatPNG); err != nil {
		t.Fatalf("Encode(png) error = %v", err)
	}
	back, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if back.Bounds() != img.Bounds() {
		t.Errorf("decoded bounds = %v", back.Bounds())
	}

	buf.Reset()
	if err := Encode(&buf, img, FormatWebP); err != nil {
		t.Fatalf("Encode(webp) error = %v", err)
	}
	b := buf.Bytes()
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
		t.Errorf("webp header = %q", b[:min(len(b), 12)])
	}

	if err := Encode(&buf, img, Format("bmp")); err == nil {
		t.Error("Encode(bmp) should fail")
	}

	path := filepath.Join(t.TempDir(), "quad.webp")
	if err := Save(path, img, FormatFromPath(path, FormatPNG)); err != nil {
		t.Errorf("Save() error = %v", err)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.png", FormatPNG},
		{"a.WEBP", FormatWebP},
		{"a.jpg", FormatPNG},
		{"noext", FormatPNG},
	}
	for _, tt := range tests {
		if got := FormatFromPath(tt.path, FormatPNG); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("ParseFormat(gif) should fail")
	}
}
