package buffer

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"pagecache/disk/page"
)

// PoolStats is a point-in-time snapshot of a PoolManager's running
// counters, rendered in operator-facing human-readable form by String.
type PoolStats struct {
	Hits       int
	Misses     int
	Evictions  int
	NewPages   int
	Deletes    int
	PoolSize   int
	FreeFrames int
}

// HitRate returns Hits / (Hits + Misses), or 0 if neither has happened yet.
func (s PoolStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Footprint is the total byte size of the pool's pre-allocated frames.
func (s PoolStats) Footprint() uint64 {
	return uint64(s.PoolSize) * uint64(page.Size)
}

func (s PoolStats) String() string {
	return fmt.Sprintf(
		"pool: %s (%d frames, %d free) | hits=%d misses=%d (%.1f%% hit rate) | evictions=%d new=%d deleted=%d",
		humanize.Bytes(s.Footprint()), s.PoolSize, s.FreeFrames,
		s.Hits, s.Misses, s.HitRate()*100,
		s.Evictions, s.NewPages, s.Deletes,
	)
}
