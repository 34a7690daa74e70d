package batch

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Job describes the replacement applied to one tag file.
type Job struct {
	Name   string // Manifest section name
	Input  string
	Output string // Same as Input when rewriting in place
	Mesh   string // OBJ whose triangles replace a concave shape
	Convex string // OBJ whose vertices replace a convex shape
}

// LoadManifest reads an INI manifest. Every named section is one tag file;
// the section name is its path unless an "input" key is given. Keys in the
// default section apply to all jobs:
//
//	input_dir  = stages
//	output_dir = out
//
//	[BTL_ST01_col.hkx]
//	mesh = meshes/st01.obj
//
//	[CMN_hit.hkx]
//	convex = meshes/hit.obj
//
// Relative paths resolve against the manifest's directory.
func LoadManifest(path string) ([]Job, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load manifest %s", path)
	}
	base := filepath.Dir(path)
	resolve := func(dir, p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	def := cfg.Section(ini.DefaultSection)
	inputDir := resolve(base, def.Key("input_dir").String())
	if inputDir == "" {
		inputDir = base
	}
	outputDir := resolve(base, def.Key("output_dir").String())

	var jobs []Job
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		name := sec.Name()
		in := sec.Key("input").MustString(name)

		j := Job{
			Name:   name,
			Input:  resolve(inputDir, in),
			Mesh:   resolve(base, sec.Key("mesh").String()),
			Convex: resolve(base, sec.Key("convex").String()),
		}
		switch {
		case sec.HasKey("output"):
			j.Output = resolve(base, sec.Key("output").String())
		case outputDir != "":
			j.Output = filepath.Join(outputDir, filepath.Base(in))
		default:
			j.Output = j.Input
		}

		if (j.Mesh == "") == (j.Convex == "") {
			return nil, errors.Errorf("manifest %s: section [%s] needs exactly one of mesh or convex", path, name)
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return nil, errors.Errorf("manifest %s: no jobs", path)
	}
	return jobs, nil
}
