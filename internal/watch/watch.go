// Package watch re-validates tag files whenever they change on disk.
package watch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/LazyBone152/XV2-Tools-sub008/internal/logger"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/collision"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

// Report describes one validated file.
type Report struct {
	Path      string
	Err       error
	Types     int
	Items     int
	Convex    bool
	Triangles int  // Concave shapes only
	Vertices  int  // Shape vertex count, 0 when no shape was found
	Stable    bool // Re-encoding reproduces the file byte for byte
}

// Inspect loads path and summarizes it.
func Inspect(path string, opts tagfile.Options) Report {
	r := Report{Path: path}
	orig, err := os.ReadFile(path)
	if err != nil {
		r.Err = err
		return r
	}
	f, err := tagfile.ParseWithOptions(orig, opts)
	if err != nil {
		r.Err = err
		return r
	}
	r.Types = len(f.Types.Types())
	r.Items = f.Items.Len()

	if r.Convex = collision.IsConvexMesh(f); r.Convex {
		if pts, err := collision.ExtractConvexPoints(f); err == nil {
			r.Vertices = len(pts)
		}
	} else if m, err := collision.ExtractMesh(f); err == nil {
		r.Triangles = m.TriangleCount()
		r.Vertices = len(m.Vertices)
	}

	out, err := f.Bytes()
	if err != nil {
		r.Err = err
		return r
	}
	r.Stable = bytes.Equal(orig, out)
	return r
}

// Config holds watcher settings.
type Config struct {
	Extensions []string
	Debounce   time.Duration
	Options    tagfile.Options
	Log        *zap.Logger
}

// Watcher inspects matching files after they are written or created.
type Watcher struct {
	cfg    Config
	log    *zap.Logger
	fsw    *fsnotify.Watcher
	handle func(Report)

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New starts a watcher. handle runs on a timer goroutine once per settled
// change.
func New(cfg Config, handle func(Report)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		cfg:     cfg,
		log:     log,
		fsw:     fsw,
		handle:  handle,
		pending: make(map[string]*time.Timer),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add starts watching a directory.
func (w *Watcher) Add(dir string) error {
	return w.fsw.Add(dir)
}

// Close stops the watcher and drops pending inspections.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if w.matches(event.Name) {
					w.schedule(event.Name)
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.cfg.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// schedule (re)starts the debounce timer for path. A running timer is
// replaced rather than reset, so a callback that already fired sees it has
// been superseded.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if old, ok := w.pending[path]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.cfg.Debounce, func() { w.fire(path, t) })
	w.pending[path] = t
}

// fire inspects path if t is still the current timer for it.
func (w *Watcher) fire(path string, t *time.Timer) {
	w.mu.Lock()
	if w.closed || w.pending[path] != t {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	r := Inspect(path, w.cfg.Options)
	if r.Err != nil {
		logger.Failed(w.log, "invalid tag file", path, r.Err)
	} else {
		w.log.Info("tag file ok",
			zap.String("file", path),
			zap.Int("types", r.Types),
			zap.Int("triangles", r.Triangles),
			zap.Int("vertices", r.Vertices),
			zap.Bool("stable", r.Stable))
	}
	if w.handle != nil {
		w.handle(r)
	}
}
