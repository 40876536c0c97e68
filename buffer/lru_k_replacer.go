package buffer

import "sync"

// frameRecord is the bounded access history the replacer keeps for one
// tracked frame: at most k timestamps, FIFO, plus whether the frame is
// currently a candidate for eviction.
type frameRecord struct {
	history   []int64
	evictable bool
}

// kDistance is the timestamp a frame is ordered by: the head of its
// bounded history, i.e. its K-th-most-recent access, or the seeded
// earliest-possible timestamp when fewer than k accesses have happened.
func (f *frameRecord) kDistance() int64 {
	return f.history[0]
}

// LRUKReplacer selects the evictable frame whose K-th-most-recent access
// is oldest, preferring frames with fewer than k accesses over any frame
// that has seen k or more.
type LRUKReplacer struct {
	mu        sync.Mutex
	k         int
	numFrames int
	clock     int64
	frames    map[int]*frameRecord
	// index holds exactly the evictable frames, keyed by their current
	// K-distance timestamp. Scanned for its minimum on Evict rather than
	// kept in a heap: the evictable set is bounded by numFrames, small
	// enough that a linear scan costs nothing a tree would meaningfully
	// save.
	index map[int64]int
	size  int
}

// NewLRUKReplacer builds a replacer tracking up to numFrames frames with
// history depth k. k must be at least 1.
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	if k < 1 {
		panic("buffer: k must be at least 1")
	}
	return &LRUKReplacer{
		k:         k,
		numFrames: numFrames,
		frames:    make(map[int]*frameRecord, numFrames),
		index:     make(map[int64]int, numFrames),
	}
}

var _ Replacer = (*LRUKReplacer)(nil)

// RecordAccess registers a new access to frameID at the next logical
// timestamp. The first time a frame is seen, a seeded pseudo-access is
// pushed ahead of it so the frame's K-distance is biased to appear older
// than any frame with a full k-deep history, until it too accumulates k
// real accesses. Frame ids from 0 through numFrames are accepted; any
// other id panics.
func (r *LRUKReplacer) RecordAccess(frameID int) {
	if frameID < 0 || frameID > r.numFrames {
		panic("buffer: frame id out of range")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.frames[frameID]
	if !ok {
		f = &frameRecord{}
		// seed an earliest-possible pseudo-access so a frame with fewer
		// than k real accesses always K-distances behind one with k.
		f.history = append(f.history, minTimestamp+r.clock)
		r.frames[frameID] = f
	}

	ts := r.clock
	r.clock++

	f.history = append(f.history, ts)
	if len(f.history) > r.k {
		old := f.history[0]
		f.history = f.history[1:]

		if f.evictable {
			delete(r.index, old)
			r.index[f.kDistance()] = frameID
		}
	}
}

// minTimestamp biases the pseudo-access seeded for a frame's first-ever
// access far enough behind real timestamps that any frame with fewer
// than k accesses always loses a K-distance comparison to one with k.
const minTimestamp = -(int64(1) << 62)

// SetEvictable toggles whether frameID is a candidate for Evict, keeping
// the K-distance index in sync. Panics if frameID was never recorded.
func (r *LRUKReplacer) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.frames[frameID]
	if !ok {
		panic("buffer: SetEvictable on an untracked frame")
	}

	if !f.evictable && evictable {
		r.index[f.kDistance()] = frameID
		r.size++
	} else if f.evictable && !evictable {
		delete(r.index, f.kDistance())
		r.size--
	}
	f.evictable = evictable
}

// Evict removes and returns the evictable frame with the smallest
// K-distance. ok is false iff no frame is currently evictable.
func (r *LRUKReplacer) Evict() (frameID int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.index) == 0 {
		return 0, false
	}

	var minTS int64
	first := true
	for ts := range r.index {
		if first || ts < minTS {
			minTS = ts
			first = false
		}
	}

	frameID = r.index[minTS]
	r.removeLocked(frameID)
	return frameID, true
}

// Remove forcibly drops frameID from tracking. The frame must currently
// be evictable; calling this on a pinned frame is a programming error.
func (r *LRUKReplacer) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.frames[frameID]; !ok {
		return
	}
	r.removeLocked(frameID)
}

// removeLocked drops frameID's record. Must be called with mu held and
// frameID present in r.frames.
func (r *LRUKReplacer) removeLocked(frameID int) {
	f := r.frames[frameID]
	if !f.evictable {
		panic("buffer: Remove on a frame that is not evictable")
	}

	delete(r.index, f.kDistance())
	r.size--
	delete(r.frames, frameID)
}

// Size returns the number of currently evictable tracked frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}
