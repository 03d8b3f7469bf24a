package buffer

import (
	"math"

	"github.com/ryogrid/blockbufferpool/types"
)

const kDistance = 3

// accessHistory tracks, per block currently represented by some frame,
// the timestamps of its most recent accesses (up to kDistance of them)
// and the resulting backward distance: the gap between "now" and the
// k-th most recent access, or +Inf if fewer than k accesses have been
// recorded yet. recordAccess implements the aging rule from the
// replacement policy: every other tracked block's distance widens by
// one on each access, since one more access has now elapsed since they
// were last touched.
type accessHistory struct {
	now      int64
	accesses map[types.BlockID][]int64 // oldest..newest, len <= kDistance
	distance map[types.BlockID]float64
}

func newAccessHistory() *accessHistory {
	return &accessHistory{
		accesses: make(map[types.BlockID][]int64),
		distance: make(map[types.BlockID]float64),
	}
}

// recordAccess advances the logical clock, then registers one more
// access to block at the new time. Every other block tracked in this
// history ages by one tick; block itself is skipped and gets its
// distance recomputed from its updated access window.
func (h *accessHistory) recordAccess(block types.BlockID) {
	h.now++

	for b, dist := range h.distance {
		if b == block {
			continue
		}
		if !math.IsInf(dist, 1) {
			h.distance[b] = dist + 1
		}
	}

	hist := append(h.accesses[block], h.now)
	if len(hist) > kDistance {
		hist = hist[len(hist)-kDistance:]
	}
	h.accesses[block] = hist

	if len(hist) < kDistance {
		h.distance[block] = math.Inf(1)
	} else {
		kth := hist[0] // oldest of the kDistance most recent accesses
		h.distance[block] = float64(h.now - kth)
	}
}

// backwardDistance returns the current backward-k distance for block,
// or +Inf if the block has no recorded accesses at all.
func (h *accessHistory) backwardDistance(block types.BlockID) float64 {
	if d, ok := h.distance[block]; ok {
		return d
	}
	return math.Inf(1)
}

// forget drops all history for block, called when its frame is
// reassigned to a different block.
func (h *accessHistory) forget(block types.BlockID) {
	delete(h.accesses, block)
	delete(h.distance, block)
}
