// hkxtool is a CLI utility for inspecting and editing physics tag files.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/LazyBone152/XV2-Tools-sub008/internal/batch"
	"github.com/LazyBone152/XV2-Tools-sub008/internal/config"
	"github.com/LazyBone152/XV2-Tools-sub008/internal/logger"
	"github.com/LazyBone152/XV2-Tools-sub008/internal/watch"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/collision"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/preview"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

var cfg *config.Config

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	var err error
	if cfg, err = config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		err = cmdInfo(args)
	case "types":
		err = cmdTypes(args)
	case "dump":
		err = cmdDump(args)
	case "extract", "x":
		err = cmdExtract(args)
	case "replace":
		err = cmdReplace(args)
	case "convex":
		err = cmdConvex(args)
	case "roundtrip", "rt":
		err = cmdRoundTrip(args)
	case "preview":
		err = cmdPreview(args)
	case "batch":
		err = cmdBatch(args)
	case "watch":
		err = cmdWatch(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error(command+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hkxtool - physics tag file utility

Usage:
  hkxtool [global options] <command> [args]

Commands:
  info <file.hkx>                          Show version, parts, types and shape summary
  types <file.hkx>                         Print the type table as YAML
  dump <file.hkx>                          Print the object tree as YAML
  extract <file.hkx> <out.obj>             Export the collision mesh (convex: hull or points)
  replace <file.hkx> <mesh.obj> [out.hkx]  Replace a concave mesh and rebuild its tree
  convex <file.hkx> <points.obj> [out.hkx] Replace a convex shape's vertices
  roundtrip <file.hkx>                     Check that re-encoding reproduces the file
  preview <file.hkx|mesh.obj> <out.png>    Render a wireframe image (png or webp)
  batch <manifest.ini>                     Run replacements listed in a manifest
  watch <dir>...                           Re-validate tag files as they change

Global options:
  -config <path>  -debug  -log <file>  -little-endian
  -workers <n>  -size <px>  -format <png|webp>  -no-hull

Examples:
  hkxtool info BTL_ST01_col.hkx
  hkxtool extract BTL_ST01_col.hkx st01.obj
  hkxtool replace BTL_ST01_col.hkx st01_edit.obj
  hkxtool -format webp preview BTL_ST01_col.hkx st01.webp`)
}

func usage(line string) {
	fmt.Fprintln(os.Stderr, "Usage: hkxtool "+line)
	os.Exit(1)
}

func load(path string) (*tagfile.File, error) {
	opts, err := cfg.Codec.TagfileOptions()
	if err != nil {
		return nil, err
	}
	f, err := tagfile.LoadWithOptions(path, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded", zap.String("file", path), zap.String("sdk", f.Version()),
		zap.Int("types", len(f.Types.Types())), zap.Int("items", f.Items.Len()))
	return f, nil
}

func save(f *tagfile.File, path string) error {
	data, err := f.Save(path)
	if err != nil {
		return err
	}
	logger.Info("saved", zap.String("file", path), zap.Int("bytes", len(data)))
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		usage("info <file.hkx>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	root, err := tagfile.ReadPart(data, 0)
	if err != nil {
		return err
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:    %s\n", args[0])
	fmt.Printf("SDK:     %s\n", f.Version())
	fmt.Printf("Types:   %d\n", len(f.Types.Types()))
	fmt.Printf("Items:   %d\n", f.Items.Len())
	fmt.Printf("Root:    %s\n", f.Root.TypeName())
	fmt.Println()
	fmt.Println("Parts:")
	printPart(root, 1)
	fmt.Println()

	switch {
	case collision.IsConvexMesh(f):
		pts, err := collision.ExtractConvexPoints(f)
		if err != nil {
			return err
		}
		fmt.Printf("Shape:   convex, %d vertices\n", len(pts))
	default:
		m, err := collision.ExtractMesh(f)
		if errors.Is(err, collision.ErrShapeNotFound) {
			fmt.Println("Shape:   none")
			return nil
		}
		if err != nil {
			return err
		}
		bits, _ := collision.ShapeKeyBits(m.TriangleCount())
		b := m.Bounds()
		fmt.Printf("Shape:   mesh, %d triangles, %d vertices, %d key bits\n",
			m.TriangleCount(), len(m.Vertices), bits)
		fmt.Printf("Bounds:  (%g, %g, %g) - (%g, %g, %g)\n",
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	}
	return nil
}

func printPart(p *tagfile.Part, depth int) {
	fmt.Printf("%s%s  offset=0x%x size=%d\n", strings.Repeat("  ", depth), p.Signature, p.Offset, p.Size)
	for _, c := range p.Children {
		printPart(c, depth+1)
	}
}

func cmdTypes(args []string) error {
	if len(args) < 1 {
		usage("types <file.hkx>")
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}
	out, err := f.DumpTypes()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func cmdDump(args []string) error {
	if len(args) < 1 {
		usage("dump <file.hkx>")
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}
	out, err := f.DumpObjects()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// shapeMesh returns a renderable mesh for the file's shape. Convex point
// sets go through the hull builder when one is configured.
func shapeMesh(f *tagfile.File) (*mesh.Mesh, error) {
	if !collision.IsConvexMesh(f) {
		return collision.ExtractMesh(f)
	}
	pts, err := collision.ExtractConvexPoints(f)
	if err != nil {
		return nil, err
	}
	hull := cfg.Mesh.HullBuilder()
	if hull == nil {
		return &mesh.Mesh{Vertices: pts}, nil
	}
	faces, err := hull.Hull(pts)
	if err != nil {
		return nil, err
	}
	return mesh.FromFaces(pts, faces), nil
}

func cmdExtract(args []string) error {
	if len(args) < 2 {
		usage("extract <file.hkx> <out.obj>")
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}
	m, err := shapeMesh(f)
	if err != nil {
		return err
	}
	if err := mesh.SaveOBJ(args[1], m); err != nil {
		return err
	}
	fmt.Printf("Extracted: %s -> %s (%d vertices, %d triangles)\n",
		args[0], args[1], len(m.Vertices), m.TriangleCount())
	return nil
}

func outputPath(args []string) string {
	if len(args) > 2 {
		return args[2]
	}
	return args[0]
}

func cmdReplace(args []string) error {
	if len(args) < 2 {
		usage("replace <file.hkx> <mesh.obj> [out.hkx]")
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}
	m, err := mesh.LoadOBJ(args[1])
	if err != nil {
		return err
	}

	ok, err := collision.ReplaceMesh(f, m)
	if err != nil {
		return err
	}
	if !ok {
		bits, _ := collision.ShapeKeyBits(m.TriangleCount())
		return fmt.Errorf("%d triangles need %d key bits, the limit is %d; simplify the mesh",
			m.TriangleCount(), bits, collision.MaxShapeKeyBits)
	}
	return save(f, outputPath(args))
}

func cmdConvex(args []string) error {
	if len(args) < 2 {
		usage("convex <file.hkx> <points.obj> [out.hkx]")
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}
	m, err := mesh.LoadOBJ(args[1])
	if err != nil {
		return err
	}

	ok, err := collision.ReplaceConvex(f, m.Vertices)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%d points exceed the convex limit of %d", len(m.Vertices), collision.MaxConvexVertices)
	}
	return save(f, outputPath(args))
}

func cmdRoundTrip(args []string) error {
	if len(args) < 1 {
		usage("roundtrip <file.hkx>")
	}
	orig, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	f, err := load(args[0])
	if err != nil {
		return err
	}
	out, err := f.Bytes()
	if err != nil {
		return err
	}

	if bytes.Equal(orig, out) {
		fmt.Printf("%s: identical (%d bytes)\n", args[0], len(out))
		return nil
	}
	n := min(len(orig), len(out))
	first := n
	for i := 0; i < n; i++ {
		if orig[i] != out[i] {
			first = i
			break
		}
	}
	return fmt.Errorf("%s: re-encoded file differs at 0x%x (%d vs %d bytes)", args[0], first, len(orig), len(out))
}

func cmdPreview(args []string) error {
	if len(args) < 2 {
		usage("preview <file.hkx|mesh.obj> <out.png|out.webp>")
	}

	var m *mesh.Mesh
	var err error
	if strings.EqualFold(filepath.Ext(args[0]), ".obj") {
		m, err = mesh.LoadOBJ(args[0])
	} else {
		var f *tagfile.File
		if f, err = load(args[0]); err == nil {
			m, err = shapeMesh(f)
		}
	}
	if err != nil {
		return err
	}

	def, err := cfg.Preview.ImageFormat()
	if err != nil {
		return err
	}
	img, err := preview.Render(m, cfg.Preview.Options())
	if err != nil {
		return err
	}
	format := preview.FormatFromPath(args[1], def)
	if err := preview.Save(args[1], img, format); err != nil {
		return err
	}
	fmt.Printf("Rendered: %s -> %s (%s, %dpx)\n", args[0], args[1], format, cfg.Preview.Size)
	return nil
}

func cmdBatch(args []string) error {
	if len(args) < 1 {
		usage("batch <manifest.ini>")
	}
	jobs, err := batch.LoadManifest(args[0])
	if err != nil {
		return err
	}
	opts, err := cfg.Codec.TagfileOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := batch.Run(ctx, batch.Config{
		Workers: cfg.Batch.Workers,
		Backup:  cfg.Batch.Backup,
		Options: opts,
		Log:     logger.Named("batch"),
	}, jobs)

	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "FAILED: " + r.Error
		}
		fmt.Printf("  %-40s %s\n", r.Name, status)
	}
	if n := batch.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d jobs failed", n, len(results))
	}
	return nil
}

func cmdWatch(args []string) error {
	if len(args) < 1 {
		usage("watch <dir>...")
	}
	opts, err := cfg.Codec.TagfileOptions()
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		Extensions: cfg.Watch.Extensions,
		Debounce:   cfg.Watch.Debounce,
		Options:    opts,
		Log:        logger.Named("watch"),
	}, nil)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range args {
		if err := w.Add(dir); err != nil {
			return err
		}
		logger.Info("watching", zap.String("dir", dir))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}
