// Package config handles hkxtool configuration loading and management.
package config

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"strings"
	"time"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/preview"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// Config holds all tool settings.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Preview PreviewConfig `yaml:"preview"`
	Batch   BatchConfig   `yaml:"batch"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// CodecConfig holds tag file codec settings.
type CodecConfig struct {
	ByteOrder string `yaml:"byte_order"` // "big" or "little", for DATA and ITEM
}

// MeshConfig holds mesh import and convex hull settings.
type MeshConfig struct {
	Hull          bool `yaml:"hull"`            // Triangulate convex point sets for preview/export
	HullMaxPoints int  `yaml:"hull_max_points"` // Largest point set handed to the hull builder
}

// PreviewConfig holds wireframe image settings.
type PreviewConfig struct {
	Size        int     `yaml:"size"`
	Supersample int     `yaml:"supersample"`
	Padding     float32 `yaml:"padding"`
	Yaw         float32 `yaml:"yaw"`   // Degrees
	Pitch       float32 `yaml:"pitch"` // Degrees, 90 looks straight down
	Format      string  `yaml:"format"`
}

// BatchConfig holds batch replacement settings.
type BatchConfig struct {
	Workers int  `yaml:"workers"`
	Backup  bool `yaml:"backup"` // Keep a .bak copy of every rewritten file
}

// WatchConfig holds directory watcher settings.
type WatchConfig struct {
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			ByteOrder: "big",
		},
		Mesh: MeshConfig{
			Hull:          true,
			HullMaxPoints: mesh.DefaultHullMaxPoints,
		},
		Preview: PreviewConfig{
			Size:        512,
			Supersample: 2,
			Padding:     0.05,
			Yaw:         0,
			Pitch:       90,
			Format:      "png",
		},
		Batch: BatchConfig{
			Workers: 4,
			Backup:  true,
		},
		Watch: WatchConfig{
			Extensions: []string{".hkx"},
			Debounce:   200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// TagfileOptions converts the codec section to codec options.
func (c CodecConfig) TagfileOptions() (tagfile.Options, error) {
	opts := tagfile.DefaultOptions()
	switch strings.ToLower(c.ByteOrder) {
	case "", "big", "be":
		opts.ByteOrder = binary.BigEndian
	case "little", "le":
		opts.ByteOrder = binary.LittleEndian
	default:
		return opts, fmt.Errorf("unknown byte order %q", c.ByteOrder)
	}
	return opts, nil
}

// HullBuilder returns the configured hull builder, or nil when disabled.
func (c MeshConfig) HullBuilder() mesh.HullBuilder {
	if !c.Hull {
		return nil
	}
	return mesh.BruteForceHull{MaxPoints: c.HullMaxPoints}
}

// Options converts the preview section to render options.
func (c PreviewConfig) Options() preview.Options {
	opts := preview.DefaultOptions()
	opts.Size = c.Size
	opts.Supersample = c.Supersample
	opts.Padding = c.Padding
	opts.Yaw = c.Yaw * stdmath.Pi / 180
	opts.Pitch = c.Pitch * stdmath.Pi / 180
	return opts
}

// ImageFormat returns the configured image format.
func (c PreviewConfig) ImageFormat() (preview.Format, error) {
	return preview.ParseFormat(c.Format)
}
