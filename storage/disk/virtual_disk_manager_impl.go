package disk

import (
	"fmt"
	"sync"

	"github.com/dsnet/golib/memfile"
	"github.com/ryogrid/blockbufferpool/common"
	"github.com/ryogrid/blockbufferpool/types"
)

// MemBlockManager is an in-memory Block Store Adapter backed by
// github.com/dsnet/golib/memfile, one memfile per distinct file name.
// It satisfies the same contract as FileBlockManager so the core
// buffer pool's tests never touch the filesystem.
type MemBlockManager struct {
	blockSize int

	mu    sync.Mutex
	files map[string]*memfile.File
	sizes map[string]int64
}

// NewMemBlockManager returns an in-memory Block Store Adapter.
func NewMemBlockManager(blockSize int) *MemBlockManager {
	if blockSize <= 0 {
		blockSize = common.DefaultBlockSize
	}
	return &MemBlockManager{
		blockSize: blockSize,
		files:     make(map[string]*memfile.File),
		sizes:     make(map[string]int64),
	}
}

// BlockSize returns the fixed block size every Read/Write buffer must match.
func (m *MemBlockManager) BlockSize() int {
	return m.blockSize
}

// Read fills into with the bytes of block b, zero-filling past the
// current end of the (virtual) file.
func (m *MemBlockManager) Read(b types.BlockID, into []byte) error {
	if len(into) != m.blockSize {
		return fmt.Errorf("disk: read buffer for %s is %d bytes, want %d", b, len(into), m.blockSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.fileLocked(b.FileName)
	offset := b.BlockNumber * int64(m.blockSize)
	size := m.sizes[b.FileName]

	for i := range into {
		into[i] = 0
	}
	if offset >= size {
		return nil
	}
	n, err := f.ReadAt(into, offset)
	if err != nil && n == 0 {
		return fmt.Errorf("disk: read %s: %w", b, err)
	}
	return nil
}

// Write persists data as block b. len(data) must equal BlockSize().
func (m *MemBlockManager) Write(b types.BlockID, data []byte) error {
	if len(data) != m.blockSize {
		return fmt.Errorf("disk: write buffer for %s is %d bytes, want %d", b, len(data), m.blockSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.fileLocked(b.FileName)
	offset := b.BlockNumber * int64(m.blockSize)
	if _, err := f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("disk: write %s: %w", b, err)
	}
	if end := offset + int64(m.blockSize); end > m.sizes[b.FileName] {
		m.sizes[b.FileName] = end
	}
	return nil
}

// Close is a no-op; present so MemBlockManager can stand in wherever a
// FileBlockManager is used behind an interface that includes it.
func (m *MemBlockManager) Close() error { return nil }

func (m *MemBlockManager) fileLocked(name string) *memfile.File {
	f, ok := m.files[name]
	if !ok {
		f = memfile.New(make([]byte, 0))
		m.files[name] = f
	}
	return f
}
