// this code is adapted from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

// Package disk provides Block Store Adapter implementations: the real
// file-backed store used in production, and an in-memory one used by
// tests (see virtual_disk_manager_impl.go).
package disk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ryogrid/blockbufferpool/common"
	"github.com/ryogrid/blockbufferpool/types"
)

// FileBlockManager is the file-backed Block Store Adapter. A BlockID
// names a block by (file name, block number); FileBlockManager opens
// one *os.File per distinct file name, lazily, and keeps it open for
// the life of the manager.
type FileBlockManager struct {
	dir       string
	blockSize int

	mu    sync.Mutex
	files map[string]*os.File
	sizes map[string]int64
}

// NewFileBlockManager returns a Block Store Adapter rooted at dir,
// using blockSize-byte blocks.
func NewFileBlockManager(dir string, blockSize int) *FileBlockManager {
	if blockSize <= 0 {
		blockSize = common.DefaultBlockSize
	}
	return &FileBlockManager{
		dir:       dir,
		blockSize: blockSize,
		files:     make(map[string]*os.File),
		sizes:     make(map[string]int64),
	}
}

// BlockSize returns the fixed block size every Read/Write buffer must match.
func (m *FileBlockManager) BlockSize() int {
	return m.blockSize
}

// Read fills into with the bytes of block b. Reads past end-of-file
// are zero-filled rather than erroring, matching how most block
// stores in the retrieved pack treat a block that was never written.
func (m *FileBlockManager) Read(b types.BlockID, into []byte) error {
	if len(into) != m.blockSize {
		return fmt.Errorf("disk: read buffer for %s is %d bytes, want %d", b, len(into), m.blockSize)
	}

	m.mu.Lock()
	f, err := m.openLocked(b.FileName)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("disk: read %s: %w", b, err)
	}

	offset := b.BlockNumber * int64(m.blockSize)
	n, err := f.ReadAt(into, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("disk: read %s: %w", b, err)
	}
	for i := n; i < len(into); i++ {
		into[i] = 0
	}
	return nil
}

// Write persists data as block b. len(data) must equal BlockSize().
func (m *FileBlockManager) Write(b types.BlockID, data []byte) error {
	if len(data) != m.blockSize {
		return fmt.Errorf("disk: write buffer for %s is %d bytes, want %d", b, len(data), m.blockSize)
	}

	m.mu.Lock()
	f, err := m.openLocked(b.FileName)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("disk: write %s: %w", b, err)
	}
	offset := b.BlockNumber * int64(m.blockSize)
	if end := offset + int64(m.blockSize); end > m.sizes[b.FileName] {
		m.sizes[b.FileName] = end
	}
	m.mu.Unlock()

	n, err := f.WriteAt(data, offset)
	if err != nil {
		return fmt.Errorf("disk: write %s: %w", b, err)
	}
	if n != m.blockSize {
		return fmt.Errorf("disk: write %s: short write (%d of %d bytes)", b, n, m.blockSize)
	}
	return f.Sync()
}

// Close releases every open file handle.
func (m *FileBlockManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.files, name)
	}
	return firstErr
}

// openLocked returns the open file for name, opening (and creating)
// it if this is the first access. Caller must hold m.mu.
func (m *FileBlockManager) openLocked(name string) (*os.File, error) {
	if f, ok := m.files[name]; ok {
		return f, nil
	}

	path := name
	if m.dir != "" {
		path = m.dir + string(os.PathSeparator) + name
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	m.files[name] = f
	m.sizes[name] = fi.Size()
	return f, nil
}
