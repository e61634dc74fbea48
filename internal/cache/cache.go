// Package cache implements the content-addressed compression cache from
// spec.md §4.3: two stores keyed by (BLAKE3(content), encoding tag), one
// holding encoded bytes in memory (generated HTML), one holding encoded
// file paths on disk (static files). Gain/insert logic is grounded on
// original_source/src/ops/mod.rs's handle_get_file_encoded; eviction is
// in prune.go, grounded on original_source/src/ops/prune.rs.
package cache

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	"github.com/httpfs/httpfs/internal/encoding"
)

// Key identifies one cache entry: the content hash plus the encoding tag,
// stringified exactly as spec.md §4.2 requires ("the encoding tag is
// stringified... to avoid collisions").
type Key struct {
	Hash [32]byte
	Tag  string
}

// HashBytes returns the BLAKE3 digest of b.
func HashBytes(b []byte) [32]byte {
	return blake3.Sum256(b)
}

// HashFile returns the BLAKE3 digest of the file at path.
func HashFile(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, err
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// nowNanos returns a monotonic-ish wall clock reading used for
// last-access bookkeeping. A plain atomic int64 of UnixNano, exactly as
// the original's AtomicU64 tracks last_access_ns.
func nowNanos() int64 { return time.Now().UnixNano() }

// GeneratedEntry holds one in-memory cached encoded blob.
type GeneratedEntry struct {
	Data       []byte
	lastAccess atomic.Int64
}

func (e *GeneratedEntry) touch() { e.lastAccess.Store(nowNanos()) }

// LastAccess returns the entry's last-access timestamp in UnixNano.
func (e *GeneratedEntry) LastAccess() int64 { return e.lastAccess.Load() }

// GeneratedCache is the in-memory store for encoded HTML bodies.
type GeneratedCache struct {
	mu      sync.RWMutex
	entries map[Key]*GeneratedEntry
	size    atomic.Int64 // monotone sum of member sizes
}

func NewGeneratedCache() *GeneratedCache {
	return &GeneratedCache{entries: make(map[Key]*GeneratedEntry)}
}

// Size returns the current sum of cached payload sizes.
func (c *GeneratedCache) Size() int64 { return c.size.Load() }

func (c *GeneratedCache) get(key Key) (*GeneratedEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		e.touch()
	}
	return e, ok
}

func (c *GeneratedCache) insert(key Key, data []byte) *GeneratedEntry {
	e := &GeneratedEntry{Data: data}
	e.touch()

	c.mu.Lock()
	if old, exists := c.entries[key]; exists {
		c.size.Add(-int64(len(old.Data)))
	}
	c.entries[key] = e
	c.mu.Unlock()
	c.size.Add(int64(len(data)))
	return e
}

// GetOrEncode returns the encoded form of content for tag, encoding and
// inserting on miss. Two concurrent misses on the same key may both
// encode and race to insert; the later writer wins, matching spec.md
// §4.3's documented acceptable race (content is deterministic).
func (c *GeneratedCache) GetOrEncode(content []byte, tag encoding.Tag) ([]byte, error) {
	key := Key{Hash: HashBytes(content), Tag: tag.CacheTag()}
	if e, ok := c.get(key); ok {
		return e.Data, nil
	}

	if tag == encoding.Identity {
		e := c.insert(key, content)
		return e.Data, nil
	}

	out, err := encoding.Encode(content, tag)
	if err != nil {
		return content, err
	}
	e := c.insert(key, out)
	return e.Data, nil
}

// FileEntry holds one on-disk cached encoding of a served file.
type FileEntry struct {
	Path       string // encoded path, or the source path if Useful is false
	Useful     bool   // false => Path is the identity source, not a real cache artifact
	Size       int64
	lastAccess atomic.Int64
}

func (e *FileEntry) touch() { e.lastAccess.Store(nowNanos()) }

func (e *FileEntry) LastAccess() int64 { return e.lastAccess.Load() }

// FileCache is the on-disk store for encoded static files.
type FileCache struct {
	Dir string // encoded-cache-dir

	mu      sync.RWMutex
	entries map[Key]*FileEntry
	size    atomic.Int64
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir, entries: make(map[Key]*FileEntry)}
}

func (c *FileCache) Size() int64 { return c.size.Load() }

func (c *FileCache) get(key Key) (*FileEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		e.touch()
	}
	return e, ok
}

func (c *FileCache) insert(key Key, e *FileEntry) {
	e.touch()
	c.mu.Lock()
	if old, exists := c.entries[key]; exists && old.Useful {
		c.size.Add(-old.Size)
	}
	c.entries[key] = e
	c.mu.Unlock()
	if e.Useful {
		c.size.Add(e.Size)
	}
}

// GetOrEncodeFile serves srcPath under tag, consulting the on-disk cache
// first. On miss, it encodes srcPath into Dir/<hash>.<ext>.<tag>; if the
// gain threshold (encoding.MinEncodingGain) isn't met the partial output
// is deleted and the entry records Useful=false so later requests skip
// encoding immediately, matching handle_get_file_encoded's behavior.
func (c *FileCache) GetOrEncodeFile(srcPath string, srcSize int64, ext string, tag encoding.Tag) (*FileEntry, error) {
	hash, err := HashFile(srcPath)
	if err != nil {
		return nil, err
	}
	key := Key{Hash: hash, Tag: tag.CacheTag()}

	if e, ok := c.get(key); ok {
		return e, nil
	}

	if tag == encoding.Identity || !encoding.Eligible(srcPath, srcSize) {
		e := &FileEntry{Path: srcPath, Useful: false, Size: srcSize}
		c.insert(key, e)
		return e, nil
	}

	outPath := c.outputPath(hash, ext, tag)
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, err
	}
	out, err := os.Create(outPath)
	if err != nil {
		src.Close()
		return nil, err
	}

	encodedSize, encErr := encoding.EncodeFile(out, src, tag)
	src.Close()
	out.Close()
	if encErr != nil {
		os.Remove(outPath)
		e := &FileEntry{Path: srcPath, Useful: false, Size: srcSize}
		c.insert(key, e)
		return e, nil
	}

	if encoding.Gain(srcSize, encodedSize) < encoding.MinEncodingGain {
		os.Remove(outPath)
		e := &FileEntry{Path: srcPath, Useful: false, Size: srcSize}
		c.insert(key, e)
		return e, nil
	}

	e := &FileEntry{Path: outPath, Useful: true, Size: encodedSize}
	c.insert(key, e)
	return e, nil
}

func (c *FileCache) outputPath(hash [32]byte, ext string, tag encoding.Tag) string {
	return c.Dir + "/" + hexString(hash[:]) + ext + "." + string(tag)
}

const hexDigits = "0123456789abcdef"

func hexString(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
