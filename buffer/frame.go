package buffer

import (
	"fmt"

	"github.com/ryogrid/blockbufferpool/common"
	"github.com/ryogrid/blockbufferpool/types"
)

// BlockStore is the external collaborator that reads and writes whole
// blocks. Read and write are synchronous and total: they either
// succeed or return an error the core treats as fatal to the current
// operation. Buffers passed to Read/Write are always exactly
// BlockSize() bytes.
type BlockStore interface {
	BlockSize() int
	Read(block types.BlockID, into []byte) error
	Write(block types.BlockID, data []byte) error
}

// LogManager is the external collaborator that guarantees log records
// up to and including a given LSN are durable. Flush(lsn) with
// lsn < 0 is a no-op.
type LogManager interface {
	Flush(lsn types.LSN) error
}

// Frame is an in-memory slot capable of holding one block's contents
// plus pin/dirty/modifying-tx/lsn bookkeeping. Frame performs no
// locking of its own: every method here is only ever called while the
// Coordinator holds the pool-wide mutex.
type Frame struct {
	blocks BlockStore
	logs   LogManager

	block    types.BlockID
	assigned bool // block has ever been assigned; false means "never assigned"
	contents []byte
	pins     int
	dirty    bool
	txNum    types.TxnID
	lsn      types.LSN
}

// NewFrame allocates an unassigned frame backed by the given adapters.
func NewFrame(blocks BlockStore, logs LogManager) *Frame {
	return &Frame{
		blocks:   blocks,
		logs:     logs,
		contents: make([]byte, blocks.BlockSize()),
		txNum:    types.InvalidTxnID,
		lsn:      types.InvalidLSN,
	}
}

// Contents returns the frame's byte buffer. The spec leaves
// concurrency-safe access to callers once a frame is pinned (§1 non-goal).
func (f *Frame) Contents() []byte { return f.contents }

// Block returns the block currently assigned to this frame. Only
// meaningful when Assigned() is true.
func (f *Frame) Block() types.BlockID { return f.block }

// Assigned reports whether the frame has ever been assigned a block.
func (f *Frame) Assigned() bool { return f.assigned }

// IsPinned reports whether any caller currently holds this frame.
func (f *Frame) IsPinned() bool { return f.pins > 0 }

// IsDirty reports whether the frame's contents differ from disk.
func (f *Frame) IsDirty() bool { return f.dirty }

// ModifyingTx returns the transaction that last called SetModified, or
// types.InvalidTxnID if none is recorded.
func (f *Frame) ModifyingTx() types.TxnID { return f.txNum }

// SetModified marks the frame dirty on behalf of tx, widening the
// frame's tracked LSN to lsn (only when lsn is itself valid). The
// caller is responsible for calling SetModified before Unpin.
func (f *Frame) SetModified(tx types.TxnID, lsn types.LSN) {
	common.Assert(f.assigned, "set_modified on an unassigned frame")
	f.dirty = true
	f.txNum = tx
	if lsn >= 0 {
		f.lsn = f.lsn.Max(lsn)
	}
}

// pin increments the pin count.
func (f *Frame) pin() { f.pins++ }

// unpin decrements the pin count. Precondition: pins > 0.
func (f *Frame) unpin() {
	common.Assert(f.pins > 0, "unpin of a frame that is not pinned")
	f.pins--
}

// flush writes the frame's contents back to the Block Store if it
// carries a pending modification, observing the mandatory
// log-before-data ordering: Log.Flush(lsn) always happens before
// Block.Write. If no modification is pending this is a no-op.
func (f *Frame) flush() error {
	if !f.txNum.IsValid() {
		return nil
	}
	if err := f.logs.Flush(f.lsn); err != nil {
		return fmt.Errorf("buffer: flush log for %s: %w", f.block, err)
	}
	if err := f.blocks.Write(f.block, f.contents); err != nil {
		return fmt.Errorf("buffer: write block %s: %w", f.block, err)
	}
	f.txNum = types.InvalidTxnID
	f.dirty = false
	return nil
}

// assignToBlock reassigns this (unpinned) frame to block b: if dirty,
// it is flushed first so modifications to the previous block survive;
// then b's contents are read in. On any I/O failure the frame is left
// unassigned (block/pins/dirty cleared) rather than half-updated, so
// the pool never loses a slot silently (spec §7).
func (f *Frame) assignToBlock(b types.BlockID) error {
	common.Assert(f.pins == 0, "assign_to_block on a pinned frame")

	if f.dirty {
		if err := f.flush(); err != nil {
			f.resetUnassigned()
			return err
		}
	}

	if err := f.blocks.Read(b, f.contents); err != nil {
		f.resetUnassigned()
		return fmt.Errorf("buffer: read block %s: %w", b, err)
	}

	f.block = b
	f.assigned = true
	f.pins = 0
	return nil
}

func (f *Frame) resetUnassigned() {
	f.assigned = false
	f.block = types.BlockID{}
	f.pins = 0
	f.dirty = false
	f.txNum = types.InvalidTxnID
	f.lsn = types.InvalidLSN
}
