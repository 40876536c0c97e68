package disk

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"pagecache/disk/page"
)

// IDiskManager is the block-oriented collaborator the buffer pool reads
// through and writes back to. Every method is synchronous and total: it
// either completes or returns an error, there is no partial-success case.
type IDiskManager interface {
	// ReadPage fills dst (len(dst) must be page.Size) with id's on-disk bytes.
	ReadPage(id page.ID, dst []byte) error

	// WritePage persists src (len(src) must be page.Size) as id's contents.
	WritePage(id page.ID, src []byte) error

	// AllocatePage reserves a fresh page id. The counter is strictly
	// monotonic and never reuses an id, even after DeallocatePage.
	AllocatePage() page.ID

	// DeallocatePage releases id's on-disk allocation. Manager's version
	// is a no-op (real space reclamation is a durability concern out of
	// scope here, see DESIGN.md); MemoryManager's drops the stored bytes,
	// so id reads back as zeroes.
	DeallocatePage(id page.ID)

	Close() error
}

// Manager is a single-file IDiskManager: page id n lives at byte offset
// n*page.Size in the backing file.
type Manager struct {
	file       *os.File
	mu         sync.Mutex
	nextPageID int64
}

var _ IDiskManager = (*Manager)(nil)

// NewDiskManager opens (creating if necessary) file as the backing store.
func NewDiskManager(file string) (*Manager, error) {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening backing file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("statting backing file: %w", err)
	}

	return &Manager{
		file:       f,
		nextPageID: stat.Size() / int64(page.Size),
	}, nil
}

func (d *Manager) ReadPage(id page.ID, dst []byte) error {
	if len(dst) != page.Size {
		panic(fmt.Sprintf("ReadPage: dst must be page.Size bytes, got %d", len(dst)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(id) * int64(page.Size)
	n, err := d.file.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading page %d: %w", id, err)
	}
	// a page that was allocated but never written reads back as zeroes.
	for i := n; i < page.Size; i++ {
		dst[i] = 0
	}
	return nil
}

func (d *Manager) WritePage(id page.ID, src []byte) error {
	if len(src) != page.Size {
		panic(fmt.Sprintf("WritePage: src must be page.Size bytes, got %d", len(src)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(id) * int64(page.Size)
	n, err := d.file.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("writing page %d: %w", id, err)
	}
	if n != page.Size {
		panic(fmt.Sprintf("partial page write for page %d: wrote %d of %d bytes", id, n, page.Size))
	}
	return nil
}

func (d *Manager) AllocatePage() page.ID {
	return page.ID(atomic.AddInt64(&d.nextPageID, 1) - 1)
}

func (d *Manager) DeallocatePage(id page.ID) {}

func (d *Manager) Close() error {
	return d.file.Close()
}
