package types

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// BlockID identifies a fixed-size block of an external file by name
// and zero-based block number. It is an immutable value object: two
// BlockIDs are equal iff both fields match, which Go gives us for free
// since BlockID is a comparable struct and can key a map directly.
type BlockID struct {
	FileName    string
	BlockNumber int64
}

// NewBlockID constructs a BlockID. blockNumber must be non-negative.
func NewBlockID(fileName string, blockNumber int64) BlockID {
	if blockNumber < 0 {
		panic(fmt.Sprintf("block number must be non-negative, got %d", blockNumber))
	}
	return BlockID{FileName: fileName, BlockNumber: blockNumber}
}

// String renders the block id for logging/debugging.
func (b BlockID) String() string {
	return fmt.Sprintf("%s#%d", b.FileName, b.BlockNumber)
}

// Hash returns a stable 64-bit hash over both fields, for callers that
// want their own open-addressed table instead of Go's built-in map
// (which already hashes BlockID correctly since it is comparable).
func (b BlockID) Hash() uint64 {
	h := murmur3.New64()
	_, _ = h.Write([]byte(b.FileName))
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(b.BlockNumber >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
