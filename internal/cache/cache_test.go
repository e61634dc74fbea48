package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/httpfs/httpfs/internal/encoding"
)

func TestGeneratedCacheHitMiss(t *testing.T) {
	c := NewGeneratedCache()
	content := []byte("hello world hello world hello world hello world")

	out1, err := c.GetOrEncode(content, encoding.Gzip)
	if err != nil {
		t.Fatal(err)
	}
	if c.Size() == 0 {
		t.Fatalf("expected nonzero size after insert")
	}

	out2, err := c.GetOrEncode(content, encoding.Gzip)
	if err != nil {
		t.Fatal(err)
	}
	if string(out1) != string(out2) {
		t.Fatalf("cache hit returned different bytes")
	}
}

func TestFileCacheSmallFileNotUseful(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tiny.txt")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	fc := NewFileCache(filepath.Join(dir, "cache"))
	e, err := fc.GetOrEncodeFile(src, 1, ".txt", encoding.Gzip)
	if err != nil {
		t.Fatal(err)
	}
	if e.Useful {
		t.Fatalf("tiny file should not be considered useful to encode")
	}
	if e.Path != src {
		t.Fatalf("path = %q, want source path %q", e.Path, src)
	}
}

func TestFileCacheEncodesLargeCompressibleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.txt")
	data := make([]byte, 200*1024)
	for i := range data {
		data[i] = 'a'
	}
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	fc := NewFileCache(filepath.Join(dir, "cache"))
	e, err := fc.GetOrEncodeFile(src, int64(len(data)), ".txt", encoding.Gzip)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Useful {
		t.Fatalf("expected highly compressible file to be useful")
	}
	if _, err := os.Stat(e.Path); err != nil {
		t.Fatalf("expected encoded file to exist: %v", err)
	}
}

func TestPrunerLastPruneOnlyAdvancesWhenSweepRuns(t *testing.T) {
	gc := NewGeneratedCache()
	fc := NewFileCache(t.TempDir())

	aged := NewPruner(gc, fc, 0, 0, time.Hour)
	aged.pruneInterval = 20 * time.Millisecond // override for a fast test

	// First call always fires: lastPrune starts at the zero time, which
	// is decades before pruneInterval ago.
	aged.Prune()
	afterFirst := aged.lastPrune.Load()
	if afterFirst == 0 {
		t.Fatalf("expected lastPrune to advance past its zero value after the first sweep")
	}

	// Calling Prune repeatedly well inside pruneInterval must leave
	// lastPrune untouched. The old behaviour (an unconditional Swap on
	// every call) reset this clock regardless of whether the sweep ran,
	// which meant continuous faster-than-interval traffic could prevent
	// the age branch from ever firing again.
	for i := 0; i < 20; i++ {
		aged.Prune()
	}
	if got := aged.lastPrune.Load(); got != afterFirst {
		t.Fatalf("lastPrune advanced on a call where the age sweep didn't run: got %d, want %d", got, afterFirst)
	}

	time.Sleep(30 * time.Millisecond)
	aged.Prune()
	if got := aged.lastPrune.Load(); got == afterFirst {
		t.Fatalf("expected lastPrune to advance once pruneInterval had genuinely elapsed")
	}
}

func TestPrunerEvictsSmallestFirst(t *testing.T) {
	gc := NewGeneratedCache()
	gc.GetOrEncode([]byte("aaaaaaaaaa"), encoding.Identity)
	time.Sleep(2 * time.Millisecond)
	gc.GetOrEncode([]byte("bbbbbbbbbb"), encoding.Identity)

	p := NewPruner(gc, NewFileCache(t.TempDir()), 10, 0, 0)
	p.Prune()

	if gc.Size() > 10 {
		t.Fatalf("expected size <= 10 after prune, got %d", gc.Size())
	}
}
