package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecache/buffer"
	"pagecache/disk"
	"pagecache/disk/page"
	"pagecache/wal"
)

func newPool(t *testing.T, poolSize, replacerK, bucketSize int) *buffer.PoolManager {
	t.Helper()
	dm := disk.NewMemoryManager()
	return buffer.NewPoolManager(poolSize, replacerK, bucketSize, dm, wal.NoopLogManager{})
}

// TestPoolManager_ScenarioB1 reproduces spec.md §8 scenario B1: eviction
// under pressure with a pool of 3 frames.
func TestPoolManager_ScenarioB1(t *testing.T) {
	p := newPool(t, 3, 2, 4)

	p0, err := p.NewPage()
	require.NoError(t, err)
	p1, err := p.NewPage()
	require.NoError(t, err)
	p2, err := p.NewPage()
	require.NoError(t, err)

	require.True(t, p.UnpinPage(p0.ID, false))
	require.True(t, p.UnpinPage(p1.ID, false))
	require.True(t, p.UnpinPage(p2.ID, false))

	p3, err := p.NewPage()
	require.NoError(t, err)
	require.NotNil(t, p3, "some prior page should have been evicted")

	p4, err := p.NewPage()
	require.NoError(t, err)
	require.NotNil(t, p4)

	p5, err := p.NewPage()
	require.NoError(t, err)
	require.NotNil(t, p5)

	p6, err := p.NewPage()
	require.NoError(t, err)
	assert.Nil(t, p6, "all frames are pinned, nothing evictable")

	require.True(t, p.UnpinPage(p3.ID, false))
	p7, err := p.NewPage()
	require.NoError(t, err)
	assert.NotNil(t, p7)
}

// TestPoolManager_ScenarioB2 reproduces spec.md §8 scenario B2: a dirty
// page survives eviction pressure and round-trips through the disk.
func TestPoolManager_ScenarioB2(t *testing.T) {
	p := newPool(t, 3, 2, 4)

	p0, err := p.NewPage()
	require.NoError(t, err)
	id0 := p0.ID
	for i := range p0.Data {
		p0.Data[i] = 0xAB
	}
	require.True(t, p.UnpinPage(id0, true))

	// force eviction of p0 by filling the pool with new pages.
	for i := 0; i < 3; i++ {
		pg, err := p.NewPage()
		require.NoError(t, err)
		require.NotNil(t, pg)
		require.True(t, p.UnpinPage(pg.ID, false))
	}

	fetched, err := p.FetchPage(id0)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	for i, b := range fetched.Data {
		require.Equal(t, byte(0xAB), b, "byte %d should have survived eviction", i)
	}
}

// TestPoolManager_ScenarioB3 reproduces spec.md §8 scenario B3: delete
// rejects a pinned page, then succeeds once unpinned.
func TestPoolManager_ScenarioB3(t *testing.T) {
	p := newPool(t, 3, 2, 4)

	p0, err := p.NewPage()
	require.NoError(t, err)
	id0 := p0.ID

	assert.False(t, p.DeletePage(id0))

	require.True(t, p.UnpinPage(id0, false))
	assert.True(t, p.DeletePage(id0))
}

func TestPoolManager_UnpinUnknownPageReturnsFalse(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	assert.False(t, p.UnpinPage(page.ID(999), false))
}

func TestPoolManager_UnpinAlreadyAtZeroReturnsFalse(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	p0, err := p.NewPage()
	require.NoError(t, err)

	require.True(t, p.UnpinPage(p0.ID, false))
	assert.False(t, p.UnpinPage(p0.ID, false))
}

func TestPoolManager_DeleteUnknownPageReturnsTrue(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	assert.True(t, p.DeletePage(page.ID(999)))
}

func TestPoolManager_FlushUnknownPageReturnsFalse(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	ok, err := p.FlushPage(page.ID(999))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoolManager_FlushCleanPageReturnsTrue(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	p0, err := p.NewPage()
	require.NoError(t, err)

	ok, err := p.FlushPage(p0.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPoolManager_DirtyFlagIsLastWriterWins(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	p0, err := p.NewPage()
	require.NoError(t, err)

	require.True(t, p.UnpinPage(p0.ID, true))
	fetched, err := p.FetchPage(p0.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.True(t, fetched.Dirty)

	// a later unpin with isDirty=false clears the bit even though no one
	// claims to have cleaned the page — the documented footgun of §9.
	require.True(t, p.UnpinPage(p0.ID, false))
	fetched, err = p.FetchPage(p0.ID)
	require.NoError(t, err)
	assert.False(t, fetched.Dirty)
}

func TestPoolManager_FetchPageIncrementsPinCount(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	p0, err := p.NewPage()
	require.NoError(t, err)
	require.Equal(t, 1, p0.PinCount)

	fetched, err := p.FetchPage(p0.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.PinCount)
}

func TestPoolManager_FrameCountInvariantAcrossPressure(t *testing.T) {
	const poolSize = 4
	p := newPool(t, poolSize, 2, 4)

	ids := make([]page.ID, 0)
	for i := 0; i < poolSize; i++ {
		pg, err := p.NewPage()
		require.NoError(t, err)
		require.NotNil(t, pg)
		ids = append(ids, pg.ID)
	}
	for _, id := range ids {
		require.True(t, p.UnpinPage(id, false))
	}

	for i := 0; i < 20; i++ {
		pg, err := p.NewPage()
		require.NoError(t, err)
		require.NotNil(t, pg)
		require.True(t, p.UnpinPage(pg.ID, false))
	}

	stats := p.Stats()
	assert.Equal(t, poolSize, stats.PoolSize)
}

func TestPoolManager_StatsTracksHitsAndMisses(t *testing.T) {
	p := newPool(t, 2, 2, 4)
	p0, err := p.NewPage()
	require.NoError(t, err)
	require.True(t, p.UnpinPage(p0.ID, false))

	_, err = p.FetchPage(p0.ID)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 0, stats.Misses)
	assert.Equal(t, 1, stats.NewPages)
}
