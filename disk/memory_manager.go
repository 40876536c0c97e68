package disk

import (
	"fmt"
	"sync"

	"pagecache/disk/page"
)

// MemoryManager is an in-memory IDiskManager used by tests that want
// fast, deterministic I/O without a backing file.
type MemoryManager struct {
	mu         sync.Mutex
	pages      map[page.ID][]byte
	nextPageID int64
}

var _ IDiskManager = (*MemoryManager)(nil)

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{pages: make(map[page.ID][]byte)}
}

func (m *MemoryManager) ReadPage(id page.ID, dst []byte) error {
	if len(dst) != page.Size {
		panic(fmt.Sprintf("ReadPage: dst must be page.Size bytes, got %d", len(dst)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.pages[id]; ok {
		copy(dst, data)
		return nil
	}
	for i := range dst {
		dst[i] = 0
	}
	return nil
}

func (m *MemoryManager) WritePage(id page.ID, src []byte) error {
	if len(src) != page.Size {
		panic(fmt.Sprintf("WritePage: src must be page.Size bytes, got %d", len(src)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data := make([]byte, page.Size)
	copy(data, src)
	m.pages[id] = data
	return nil
}

func (m *MemoryManager) AllocatePage() page.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := page.ID(m.nextPageID)
	m.nextPageID++
	return id
}

func (m *MemoryManager) DeallocatePage(id page.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pages, id)
}

func (m *MemoryManager) Close() error { return nil }
