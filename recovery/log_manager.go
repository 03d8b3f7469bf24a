// Package recovery provides the Log Adapter: an in-memory append log
// with LSN bookkeeping and durability via an underlying block file,
// satisfying buffer.LogManager. Log replay and checkpointing are out
// of scope here; this package only guarantees that Flush(lsn) makes
// every record up to and including lsn durable.
package recovery

import (
	"fmt"

	"github.com/ryogrid/blockbufferpool/common"
	"github.com/ryogrid/blockbufferpool/types"
)

// blockWriter is the slice of buffer.BlockStore the log needs: one
// fixed-size block to append into. It is satisfied structurally by
// storage/disk's adapters without this package importing buffer.
type blockWriter interface {
	BlockSize() int
	Write(block types.BlockID, data []byte) error
}

// LogManager is the Log Adapter. Records are appended to an in-memory
// buffer and assigned increasing LSNs; Flush writes the buffer's
// contents to the backing log file and advances persistentLSN.
type LogManager struct {
	blocks   blockWriter
	logBlock types.BlockID

	latch common.ReaderWriterLatch

	buffer        []byte
	nextLSN       types.LSN
	persistentLSN types.LSN
}

// NewLogManager returns a Log Adapter that appends into logBlock,
// writing through blocks on Flush.
func NewLogManager(blocks blockWriter, logBlock types.BlockID) *LogManager {
	return &LogManager{
		blocks:        blocks,
		logBlock:      logBlock,
		latch:         common.NewRWLatch(),
		buffer:        make([]byte, 0, common.LogBufferSize),
		nextLSN:       0,
		persistentLSN: types.InvalidLSN,
	}
}

// Append records a new log entry and returns its assigned LSN. It is
// additional surface this Log Adapter exposes beyond the minimal
// Flush contract buffer.LogManager requires, mirroring how a real log
// manager is actually driven by callers that write records before
// relying on Flush for durability.
func (lm *LogManager) Append(record []byte) types.LSN {
	lm.latch.WLock()
	defer lm.latch.WUnlock()

	lsn := lm.nextLSN
	lm.nextLSN++
	lm.buffer = append(lm.buffer, record...)
	return lsn
}

// NextLSN returns the LSN that will be assigned to the next Append.
func (lm *LogManager) NextLSN() types.LSN {
	lm.latch.RLock()
	defer lm.latch.RUnlock()
	return lm.nextLSN
}

// PersistentLSN returns the highest LSN known durable.
func (lm *LogManager) PersistentLSN() types.LSN {
	lm.latch.RLock()
	defer lm.latch.RUnlock()
	return lm.persistentLSN
}

// Flush guarantees every record with LSN <= lsn is durable. lsn < 0 is
// a no-op, matching the adapter contract the buffer pool depends on
// for its log-before-data ordering.
func (lm *LogManager) Flush(lsn types.LSN) error {
	if lsn < 0 {
		return nil
	}

	lm.latch.WLock()
	defer lm.latch.WUnlock()

	if lsn <= lm.persistentLSN {
		return nil
	}

	block := make([]byte, lm.blocks.BlockSize())
	copy(block, lm.buffer)
	if err := lm.blocks.Write(lm.logBlock, block); err != nil {
		return fmt.Errorf("recovery: flush log up to lsn %d: %w", lsn, err)
	}

	lm.persistentLSN = lm.nextLSN - 1
	return nil
}
