// Package hash implements a concurrent-safe extendible hash table: a
// directory of buckets indexed by the low bits of a key's hash, doubling
// the directory and splitting buckets as they fill up rather than
// rehashing the whole table at once.
package hash

import "sync"

type entry[K comparable, V any] struct {
	key   K
	value V
}

// bucket is an unordered, bounded collection of entries sharing the same
// low local-depth hash bits. Multiple directory slots may point at the
// same bucket; a bucket is never copied on directory growth, only its
// pointer is.
type bucket[K comparable, V any] struct {
	depth int
	size  int
	items []entry[K, V]
}

func newBucket[K comparable, V any](size, depth int) *bucket[K, V] {
	return &bucket[K, V]{size: size, depth: depth}
}

func (b *bucket[K, V]) isFull() bool {
	return len(b.items) >= b.size
}

func (b *bucket[K, V]) find(k K) (V, bool) {
	for _, e := range b.items {
		if e.key == k {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(k K) bool {
	for i, e := range b.items {
		if e.key == k {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// insert overwrites an existing binding for k, or appends a new one if
// there's room. Returns false only when k is absent and b is full, the
// signal for the caller to split.
func (b *bucket[K, V]) insert(k K, v V) bool {
	for i, e := range b.items {
		if e.key == k {
			b.items[i].value = v
			return true
		}
	}
	if b.isFull() {
		return false
	}
	b.items = append(b.items, entry[K, V]{k, v})
	return true
}

// Table is a generic extendible hash table mapping K to V, guarded by a
// single table-wide mutex.
type Table[K comparable, V any] struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*bucket[K, V]
}

// New builds a Table with one empty bucket and a directory of size 1.
// bucketSize is the max number of entries any bucket may hold before it
// must split; it must be at least 1.
func New[K comparable, V any](bucketSize int) *Table[K, V] {
	if bucketSize < 1 {
		panic("hash: bucketSize must be at least 1")
	}

	initial := newBucket[K, V](bucketSize, 0)
	return &Table[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		dir:        []*bucket[K, V]{initial},
	}
}

func (t *Table[K, V]) indexOf(k K) int {
	mask := uint64(1)<<uint(t.globalDepth) - 1
	return int(keyHash(k) & mask)
}

// Find returns the value bound to k, if any.
func (t *Table[K, V]) Find(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.dir[t.indexOf(k)]
	return b.find(k)
}

// Remove deletes any binding for k and reports whether one existed.
// Buckets are never coalesced back together after a remove.
func (t *Table[K, V]) Remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.dir[t.indexOf(k)]
	return b.remove(k)
}

// Insert installs k => v, overwriting any prior value for k. It never
// fails: if the destination bucket is full, it splits (possibly doubling
// the directory) and retries until the insert succeeds.
func (t *Table[K, V]) Insert(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		b := t.dir[t.indexOf(k)]
		if b.insert(k, v) {
			return
		}
		t.split(b)
	}
}

// split partitions a full bucket b across a new high-bit boundary,
// growing the directory first if b's depth has caught up to the
// table's global depth. Must be called with t.mu held.
func (t *Table[K, V]) split(b *bucket[K, V]) {
	if len(b.items) == 0 {
		panic("hash: splitting an empty bucket")
	}

	depth := b.depth
	// every entry still in b shares the same low `depth` hash bits, so
	// any one of them identifies the pre-split directory slot range.
	sampleKey := b.items[0].key
	highBit := uint64(1) << uint(depth)

	sibling := newBucket[K, V](t.bucketSize, depth+1)
	kept := b.items[:0:0]
	for _, e := range b.items {
		if keyHash(e.key)&highBit != 0 {
			sibling.items = append(sibling.items, e)
		} else {
			kept = append(kept, e)
		}
	}
	b.items = kept

	if depth == t.globalDepth {
		t.growDirectory()
	}
	b.depth = depth + 1
	t.numBuckets++

	base := keyHash(sampleKey) & (highBit - 1)
	dirSize := uint64(len(t.dir))
	for i := base + highBit; i < dirSize; i += 2 * highBit {
		t.dir[i] = sibling
	}
}

// growDirectory doubles the directory, mirroring slot i into i+oldSize,
// and increments the global depth. Must be called with t.mu held.
func (t *Table[K, V]) growDirectory() {
	oldSize := len(t.dir)
	next := make([]*bucket[K, V], oldSize*2)
	copy(next, t.dir)
	copy(next[oldSize:], t.dir)
	t.dir = next
	t.globalDepth++
}

// GlobalDepth returns the number of low hash bits the directory consults.
func (t *Table[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.globalDepth
}

// LocalDepth returns the depth of the bucket referenced by the given
// directory slot.
func (t *Table[K, V]) LocalDepth(slot int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.dir[slot].depth
}

// NumBuckets returns the number of distinct buckets currently in the
// directory (buckets shared by multiple slots are counted once).
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.numBuckets
}
