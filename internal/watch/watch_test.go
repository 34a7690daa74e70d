package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LazyBone152/XV2-Tools-sub008/pkg/collision/testshape"
	"github.com/LazyBone152/XV2-Tools-sub008/pkg/tagfile"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	concave := filepath.Join(dir, "st01.hkx")
	if _, err := testshape.Concave().Save(concave); err != nil {
		t.Fatal(err)
	}
	r := Inspect(concave, tagfile.DefaultOptions())
	if r.Err != nil {
		t.Fatalf("Inspect() error = %v", r.Err)
	}
	if r.Convex || r.Triangles != 1 || r.Vertices != 3 || !r.Stable {
		t.Errorf("Inspect(concave) = %+v", r)
	}
	if r.Types != int(testshape.TypeCount)-1 {
		t.Errorf("types = %d, want %d", r.Types, testshape.TypeCount-1)
	}

	convex := filepath.Join(dir, "hit.hkx")
	if _, err := testshape.Convex(false).Save(convex); err != nil {
		t.Fatal(err)
	}
	r = Inspect(convex, tagfile.DefaultOptions())
	if r.Err != nil || !r.Convex || r.Vertices != 4 {
		t.Errorf("Inspect(convex) = %+v", r)
	}

	garbage := filepath.Join(dir, "bad.hkx")
	os.WriteFile(garbage, []byte("not a tag file"), 0644)
	if r := Inspect(garbage, tagfile.DefaultOptions()); r.Err == nil {
		t.Error("Inspect(garbage) should fail")
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	reports := make(chan Report, 4)

	w, err := New(Config{
		Extensions: []string{".HKX"},
		Debounce:   20 * time.Millisecond,
		Options:    tagfile.DefaultOptions(),
	}, func(r Report) { reports <- r })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Ignored extension.
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	path := filepath.Join(dir, "st01.hkx")
	if _, err := testshape.Concave().Save(path); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-reports:
		if r.Path != path {
			t.Errorf("report path = %s, want %s", r.Path, path)
		}
		if r.Err != nil || r.Triangles != 1 {
			t.Errorf("report = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no report received")
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := New(Config{Extensions: []string{".hkx"}, Debounce: time.Hour}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.schedule("pending.hkx")
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if len(w.pending) != 0 {
		t.Errorf("pending = %d after Close", len(w.pending))
	}
	w.schedule("late.hkx")
	if len(w.pending) != 0 {
		t.Error("schedule after Close should be ignored")
	}
}

func TestWatcherSupersededTimerSkips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "st01.hkx")
	if _, err := testshape.Concave().Save(path); err != nil {
		t.Fatal(err)
	}

	var reports []Report
	w, err := New(Config{Extensions: []string{".hkx"}, Debounce: time.Hour, Options: tagfile.DefaultOptions()},
		func(r Report) { reports = append(reports, r) })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	w.schedule(path)
	stale := w.pending[path]
	w.schedule(path)
	current := w.pending[path]
	current.Stop()
	if current == stale {
		t.Fatal("reschedule should install a new timer")
	}

	// A callback of the replaced timer that already fired does nothing.
	w.fire(path, stale)
	if len(reports) != 0 {
		t.Fatalf("stale timer produced %d reports", len(reports))
	}
	if w.pending[path] != current {
		t.Fatal("stale timer removed the current one")
	}

	w.fire(path, current)
	if len(reports) != 1 || reports[0].Err != nil {
		t.Fatalf("reports = %+v, want one clean report", reports)
	}
	w.fire(path, current)
	if len(reports) != 1 {
		t.Errorf("timer fired twice produced %d reports", len(reports))
	}
}
