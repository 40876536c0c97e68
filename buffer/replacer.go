package buffer

// Replacer selects which frame to evict when the pool needs a free one.
// Implementations track only frames the pool has told them about via
// RecordAccess; a frame the replacer has never seen has no record.
type Replacer interface {
	// RecordAccess registers a new access to frameID at the current
	// logical timestamp, creating its record if this is the first time
	// the replacer has seen it.
	RecordAccess(frameID int)

	// SetEvictable toggles whether frameID is a candidate for Evict.
	// Panics if frameID has never been recorded.
	SetEvictable(frameID int, evictable bool)

	// Evict removes and returns the frame with the smallest K-distance
	// among evictable frames. ok is false iff none are evictable.
	Evict() (frameID int, ok bool)

	// Remove forcibly drops frameID from tracking. The caller must
	// ensure frameID is currently evictable; violating this is a
	// programming error and panics.
	Remove(frameID int)

	// Size returns the number of currently evictable tracked frames.
	Size() int
}
