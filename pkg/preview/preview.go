// Package preview renders wireframe images of neutral meshes.
package preview

import (
	"image"
	"image/color"
	stdmath "math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/math"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
)

// Options controls the view and image size.
type Options struct {
	Size        int     // Output width and height in pixels
	Supersample int     // Render scale before downsampling
	Padding     float32 // Fraction of the image left empty on each side
	Yaw         float32 // Rotation around Y, radians
	Pitch       float32 // Rotation around X, radians; Pi/2 looks straight down
	Background  color.NRGBA
	Line        color.NRGBA
}

// DefaultOptions returns a 512px top-down view.
func DefaultOptions() Options {
	return Options{
		Size:        512,
		Supersample: 2,
		Padding:     0.05,
		Pitch:       stdmath.Pi / 2,
		Background:  color.NRGBA{0, 0, 0, 0},
		Line:        color.NRGBA{40, 200, 90, 255},
	}
}

var ErrEmptyMesh = errors.New("preview: mesh has no triangles")

// Render draws every triangle edge of m.
func Render(m *mesh.Mesh, opts Options) (*image.NRGBA, error) {
	if m.TriangleCount() == 0 {
		return nil, ErrEmptyMesh
	}
	if opts.Size <= 0 {
		return nil, errors.Errorf("preview: invalid size %d", opts.Size)
	}
	ss := max(opts.Supersample, 1)
	size := opts.Size * ss

	pts := project(m.Vertices, opts, size)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	line := color.RGBAModel.Convert(opts.Line).(color.RGBA)
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangle(i)
		for k := 0; k < 3; k++ {
			a, b := pts[t[k]], pts[t[(k+1)%3]]
			drawLine(canvas, a, b, line)
		}
	}

	var src image.Image = canvas
	if ss > 1 {
		small := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
		draw.CatmullRom.Scale(small, small.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
		src = small
	}

	out := image.NewNRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, image.Point{}, draw.Src)
	return out, nil
}

// project rotates the vertices into view space and fits their XY extent
// into a size x size pixel square.
func project(verts []math.Vec3, opts Options, size int) []math.Vec2 {
	view := math.RotateX(opts.Pitch).Mul(math.RotateY(opts.Yaw))

	pts := make([]math.Vec2, len(verts))
	box := math.EmptyAABB()
	for i, v := range verts {
		p := view.TransformVec3(v)
		pts[i] = p.XY()
		box = box.Extend(math.Vec3{X: p.X, Y: p.Y})
	}

	extent := max(box.Size().X, box.Size().Y)
	usable := float32(size) * (1 - 2*opts.Padding)
	scale := float32(1)
	if extent > 0 {
		scale = usable / extent
	}
	center := box.Center().XY()
	half := float32(size) / 2

	for i, p := range pts {
		d := p.Sub(center).Scale(scale)
		// Image Y grows downwards.
		pts[i] = math.Vec2{X: half + d.X, Y: half - d.Y}
	}
	return pts
}

// drawLine rasterizes a segment with Bresenham's algorithm.
func drawLine(img *image.RGBA, a, b math.Vec2, c color.RGBA) {
	x0, y0 := int(stdmath.Round(float64(a.X))), int(stdmath.Round(float64(a.Y)))
	x1, y1 := int(stdmath.Round(float64(b.X))), int(stdmath.Round(float64(b.Y)))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
