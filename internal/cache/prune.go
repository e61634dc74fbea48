package cache

import (
	"os"
	"sync/atomic"
	"time"
)

// evictSmallest removes entries with the smallest last-access timestamp
// first from fc until its size is at or under limit. If removing an
// entry's on-disk file fails, the entry (and the loop) stops rather than
// orphaning a cache record of a file that's still there, matching
// original_source/src/ops/prune.rs's prune().
func (c *FileCache) evictSmallest(limit int64) int64 {
	var freed int64
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.size.Load()-freed > limit {
		var victimKey Key
		var victim *FileEntry
		for k, e := range c.entries {
			if victim == nil || e.LastAccess() < victim.LastAccess() {
				victimKey, victim = k, e
			}
		}
		if victim == nil {
			break
		}
		if victim.Useful {
			if err := os.Remove(victim.Path); err != nil {
				break
			}
		}
		delete(c.entries, victimKey)
		if victim.Useful {
			freed += victim.Size
		}
	}
	c.size.Add(-freed)
	return freed
}

func (c *GeneratedCache) evictSmallest(limit int64) int64 {
	var freed int64
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.size.Load()-freed > limit {
		var victimKey Key
		var victim *GeneratedEntry
		for k, e := range c.entries {
			if victim == nil || e.LastAccess() < victim.LastAccess() {
				victimKey, victim = k, e
			}
		}
		if victim == nil {
			break
		}
		delete(c.entries, victimKey)
		freed += int64(len(victim.Data))
	}
	c.size.Add(-freed)
	return freed
}

// evictOlderThan removes entries whose last-access predates now by more
// than ageLimit. An entry whose last-access is in the future (clock skew)
// is treated as recent, per spec.md §4.9.
func (c *FileCache) evictOlderThan(ageLimit time.Duration, now time.Time) int64 {
	var freed int64
	nowNs := now.UnixNano()
	limitNs := ageLimit.Nanoseconds()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		at := e.LastAccess()
		if at > nowNs || nowNs-at <= limitNs {
			continue
		}
		if e.Useful {
			if err := os.Remove(e.Path); err != nil {
				continue
			}
			freed += e.Size
		}
		delete(c.entries, k)
	}
	c.size.Add(-freed)
	return freed
}

func (c *GeneratedCache) evictOlderThan(ageLimit time.Duration, now time.Time) int64 {
	var freed int64
	nowNs := now.UnixNano()
	limitNs := ageLimit.Nanoseconds()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		at := e.LastAccess()
		if at > nowNs || nowNs-at <= limitNs {
			continue
		}
		freed += int64(len(e.Data))
		delete(c.entries, k)
	}
	c.size.Add(-freed)
	return freed
}

// Pruner periodically and opportunistically evicts cache entries past
// configured size or age ceilings. It is driven once per request (as an
// after-middleware, per spec.md §4.9) but only does real work when a
// ceiling is exceeded or the age sweep interval has elapsed.
type Pruner struct {
	Generated *GeneratedCache
	File      *FileCache

	GeneratedSizeLimit int64 // 0 = unlimited
	FileSizeLimit      int64 // 0 = unlimited
	AgeLimit           time.Duration // 0 = unlimited

	pruneInterval time.Duration
	lastPrune     atomic.Int64 // UnixNano
}

// NewPruner builds a Pruner with the documented interval formula:
// max(ageLimit/6, 10s), matching original_source/src/ops/prune.rs.
func NewPruner(gen *GeneratedCache, file *FileCache, genLimit, fileLimit int64, ageLimit time.Duration) *Pruner {
	interval := ageLimit / 6
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	return &Pruner{
		Generated:          gen,
		File:               file,
		GeneratedSizeLimit: genLimit,
		FileSizeLimit:      fileLimit,
		AgeLimit:           ageLimit,
		pruneInterval:      interval,
	}
}

// Prune runs one pruning pass, returning the total bytes freed (across
// both the size-ceiling and age sweeps) so the caller can log a summary.
// Safe to call after every request.
func (p *Pruner) Prune() int64 {
	now := time.Now()
	var freed int64

	if p.FileSizeLimit > 0 && p.File.Size() > p.FileSizeLimit {
		freed += p.File.evictSmallest(p.FileSizeLimit)
	}
	if p.GeneratedSizeLimit > 0 && p.Generated.Size() > p.GeneratedSizeLimit {
		freed += p.Generated.evictSmallest(p.GeneratedSizeLimit)
	}

	if p.AgeLimit > 0 {
		last := p.lastPrune.Load()
		if now.Sub(time.Unix(0, last)) >= p.pruneInterval && p.lastPrune.CompareAndSwap(last, now.UnixNano()) {
			freed += p.File.evictOlderThan(p.AgeLimit, now)
			freed += p.Generated.evictOlderThan(p.AgeLimit, now)
		}
	}
	return freed
}
