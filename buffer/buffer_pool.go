// Package buffer implements the page-cache core: a fixed-size pool of
// page frames, the LRU-K policy that picks which frame to evict, and
// the glue between them and the hash table that tracks residency.
package buffer

import (
	"fmt"
	"sync"

	"pagecache/common"
	"pagecache/disk"
	"pagecache/disk/page"
	"pagecache/hash"
	"pagecache/wal"
)

// PoolManager owns the frame array, the free list, and directs every
// fetch/new/unpin/flush/delete through the page table and replacer. One
// mutex (mu) is the outermost lock for every public operation; it is
// held across disk I/O, which serializes the pool under I/O pressure by
// design.
type PoolManager struct {
	mu sync.Mutex

	diskManager disk.IDiskManager
	logManager  wal.LogManager
	replacer    Replacer
	pageTable   *hash.Table[page.ID, int]

	frames   []*page.Page
	freeList []int

	stats *common.Stats
}

// NewPoolManager builds a pool of poolSize frames, backed by dm and lm,
// using an LRU-K replacer with history depth replacerK and a page table
// whose buckets hold up to bucketSize entries before splitting.
func NewPoolManager(poolSize, replacerK, bucketSize int, dm disk.IDiskManager, lm wal.LogManager) *PoolManager {
	if lm == nil {
		lm = wal.NoopLogManager{}
	}

	frames := make([]*page.Page, poolSize)
	freeList := make([]int, poolSize)
	for i := range frames {
		frames[i] = page.New()
		freeList[i] = i
	}

	return &PoolManager{
		diskManager: dm,
		logManager:  lm,
		replacer:    NewLRUKReplacer(poolSize, replacerK),
		pageTable:   hash.New[page.ID, int](bucketSize),
		frames:      frames,
		freeList:    freeList,
		stats:       common.NewStats(),
	}
}

// PoolSize returns the fixed number of frames the pool was built with.
func (p *PoolManager) PoolSize() int {
	return len(p.frames)
}

// NewPage allocates a fresh logical page id, pins a frame for it
// (pin_count = 1), and returns it. Returns nil, nil iff no frame is
// free and none is evictable. An error indicates the Disk Manager
// failed while this call had to evict a dirty victim to make room.
func (p *PoolManager) NewPage() (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	if frameIdx < 0 {
		return nil, nil
	}

	id := p.diskManager.AllocatePage()
	fr := p.frames[frameIdx]
	fr.ID = id
	p.pageTable.Insert(id, frameIdx)
	p.stats.Avg("new_page", 1)
	return fr, nil
}

// FetchPage returns the frame holding id, reading it from disk first if
// it isn't already resident. Returns nil, nil iff id is not resident and
// no frame is free or evictable. An error indicates a failed disk read
// or a failed write-back of a dirty victim evicted to make room.
func (p *PoolManager) FetchPage(id page.ID) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameIdx, ok := p.pageTable.Find(id); ok {
		fr := p.frames[frameIdx]
		p.replacer.RecordAccess(frameIdx)
		p.replacer.SetEvictable(frameIdx, false)
		fr.PinCount++
		p.stats.Avg("hit", 1)
		return fr, nil
	}
	p.stats.Avg("miss", 1)

	frameIdx, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	if frameIdx < 0 {
		return nil, nil
	}

	fr := p.frames[frameIdx]
	if err := p.diskManager.ReadPage(id, fr.Data); err != nil {
		// the frame was already pulled out of the free list / replacer by
		// acquireFrame; give it back rather than stranding it.
		fr.Reset()
		p.freeList = append(p.freeList, frameIdx)
		return nil, fmt.Errorf("ReadPage failed: %w", err)
	}
	fr.ID = id
	p.pageTable.Insert(id, frameIdx)
	return fr, nil
}

// UnpinPage decrements id's pin count, making its frame evictable once
// the count reaches zero, and sets its dirty flag to isDirty — last
// writer wins on every call, even one that clears a previously-set
// dirty bit (see SPEC_FULL.md §9). Returns false if id is not resident
// or its pin count is already zero.
func (p *PoolManager) UnpinPage(id page.ID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable.Find(id)
	if !ok {
		return false
	}

	fr := p.frames[frameIdx]
	if fr.PinCount == 0 {
		return false
	}

	fr.PinCount--
	if fr.PinCount == 0 {
		p.replacer.SetEvictable(frameIdx, true)
	}
	fr.Dirty = isDirty
	return true
}

// FlushPage writes id's frame back to disk if dirty, clearing the dirty
// flag. Returns false iff id is not resident; true (even if the page
// was already clean) otherwise, along with any Disk Manager error.
func (p *PoolManager) FlushPage(id page.ID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable.Find(id)
	if !ok {
		return false, nil
	}

	err := p.flushFrame(p.frames[frameIdx])
	return true, err
}

// FlushAllPages writes back every resident dirty frame. Sequential
// under mu, so no concurrent unpin can re-dirty a frame mid-flush.
func (p *PoolManager) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, fr := range p.frames {
		if fr.ID == page.InvalidID || !fr.Dirty {
			continue
		}
		if err := p.flushFrame(fr); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes id's mapping and deallocates it on disk. Returns
// true if id was not resident (nothing to do), false if it is resident
// but pinned, or true after actually deleting it.
func (p *PoolManager) DeletePage(id page.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameIdx, ok := p.pageTable.Find(id)
	if !ok {
		return true
	}

	fr := p.frames[frameIdx]
	if fr.PinCount != 0 {
		return false
	}

	p.pageTable.Remove(id)
	p.replacer.Remove(frameIdx)
	fr.Reset()
	p.diskManager.DeallocatePage(id)
	p.freeList = append(p.freeList, frameIdx)
	p.stats.Avg("delete_page", 1)
	return true
}

// flushFrame writes fr back to disk if dirty. Must be called with mu held.
func (p *PoolManager) flushFrame(fr *page.Page) error {
	if !fr.Dirty {
		return nil
	}
	if err := p.diskManager.WritePage(fr.ID, fr.Data); err != nil {
		return fmt.Errorf("WritePage failed: %w", err)
	}
	fr.Dirty = false
	return nil
}

// acquireFrame is the shared subroutine behind NewPage and FetchPage's
// miss path: pop the free list, or ask the replacer for a victim and
// write it back if dirty. Returns -1, nil iff nothing is free or
// evictable. Must be called with mu held.
func (p *PoolManager) acquireFrame() (int, error) {
	if len(p.freeList) > 0 {
		frameIdx := p.freeList[0]
		p.freeList = p.freeList[1:]
		p.replacer.RecordAccess(frameIdx)
		fr := p.frames[frameIdx]
		fr.ID = page.InvalidID
		fr.PinCount = 1
		fr.Dirty = false
		return frameIdx, nil
	}

	frameIdx, ok := p.replacer.Evict()
	if !ok {
		return -1, nil
	}
	p.stats.Avg("eviction", 1)

	victim := p.frames[frameIdx]
	p.pageTable.Remove(victim.ID)
	if victim.Dirty {
		if err := p.diskManager.WritePage(victim.ID, victim.Data); err != nil {
			// the disk interface is assumed total (see SPEC_FULL.md §7); on
			// the rare failure we still return the frame to the free list
			// rather than strand it outside every tracked set.
			victim.Reset()
			p.freeList = append(p.freeList, frameIdx)
			return -1, fmt.Errorf("WritePage failed: %w", err)
		}
	}

	p.replacer.RecordAccess(frameIdx)
	victim.ID = page.InvalidID
	victim.PinCount = 1
	victim.Dirty = false
	return frameIdx, nil
}

// Stats reports running pool counters. Not part of the spec'd contract;
// purely observational, guarded by the same latch as everything else.
func (p *PoolManager) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		Hits:       p.stats.Count("hit"),
		Misses:     p.stats.Count("miss"),
		Evictions:  p.stats.Count("eviction"),
		NewPages:   p.stats.Count("new_page"),
		Deletes:    p.stats.Count("delete_page"),
		PoolSize:   len(p.frames),
		FreeFrames: len(p.freeList),
	}
}
