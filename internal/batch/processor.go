// Package batch applies collision mesh replacements to many tag files.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LazyBone152/XV2-Tools-sub008/internal/logger"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/collision"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/mesh"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// Config holds all shared settings for a batch run.
type Config struct {
	Workers int
	Backup  bool
	Options tagfile.Options
	Log     *zap.Logger
}

// Result holds the outcome of one job.
type Result struct {
	Name      string
	Success   bool
	Triangles int
	Vertices  int
	Error     string
}

// Run processes all jobs using a worker pool. Jobs not started before ctx
// is cancelled are reported as failed.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	log := cfg.Log

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64
	start := time.Now()

	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Name: jobs[idx].Name, Error: err.Error()}
					continue
				}
				results[idx] = processJob(cfg, jobs[idx])
				n := processed.Add(1)

				if r := results[idx]; r.Success {
					log.Info("replaced",
						zap.String("job", r.Name),
						zap.Int("triangles", r.Triangles),
						zap.Int("vertices", r.Vertices),
						zap.Int64("done", n),
						zap.Int("total", total))
				}
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	log.Info("batch finished",
		zap.Int("jobs", total),
		zap.Int("failed", Failed(results)),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// Failed counts unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

func processJob(cfg Config, job Job) Result {
	res := Result{Name: job.Name}
	if err := replace(cfg, job, &res); err != nil {
		res.Error = err.Error()
		logger.Failed(cfg.Log.With(zap.String("job", job.Name)), "replace failed", job.Input, err)
		return res
	}
	res.Success = true
	return res
}

func replace(cfg Config, job Job, res *Result) error {
	f, err := tagfile.LoadWithOptions(job.Input, cfg.Options)
	if err != nil {
		return err
	}

	var ok bool
	if job.Mesh != "" {
		m, err := mesh.LoadOBJ(job.Mesh)
		if err != nil {
			return err
		}
		if ok, err = collision.ReplaceMesh(f, m); err != nil {
			return err
		}
		if !ok {
			bits, _ := collision.ShapeKeyBits(m.TriangleCount())
			return fmt.Errorf("%d triangles need %d key bits, limit is %d",
				m.TriangleCount(), bits, collision.MaxShapeKeyBits)
		}
		res.Triangles = m.TriangleCount()
		res.Vertices = len(m.Vertices)
	} else {
		m, err := mesh.LoadOBJ(job.Convex)
		if err != nil {
			return err
		}
		if ok, err = collision.ReplaceConvex(f, m.Vertices); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%d points exceed the convex limit of %d",
				len(m.Vertices), collision.MaxConvexVertices)
		}
		res.Vertices = len(m.Vertices)
	}

	if cfg.Backup && sameFile(job.Input, job.Output) {
		if err := backup(job.Input); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(job.Output), 0755); err != nil {
		return err
	}
	_, err = f.Save(job.Output)
	return err
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path+".bak", data, 0644), "write backup")
}
