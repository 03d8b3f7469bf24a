package buffer

import (
	"fmt"

	"github.com/ryogrid/blockbufferpool/types"
)

// Pool is the frame table, recency queue, and capacity/availability
// accounting. Every method here runs under the Coordinator's
// pool-wide mutex; Pool itself does no locking.
type Pool struct {
	blocks BlockStore
	logs   LogManager

	capacity int
	slots    []*Frame
	table    map[types.BlockID]int
	queue    *recencyQueue
	history  *accessHistory
}

func newPool(capacity int, blocks BlockStore, logs LogManager) *Pool {
	return &Pool{
		blocks:   blocks,
		logs:     logs,
		capacity: capacity,
		table:    make(map[types.BlockID]int, capacity),
		queue:    newRecencyQueue(),
		history:  newAccessHistory(),
	}
}

// findExisting returns the slot index currently holding blk, if any.
func (p *Pool) findExisting(blk types.BlockID) (int, bool) {
	idx, ok := p.table[blk]
	return idx, ok
}

// touch moves an already-resident slot to the recency queue's tail.
func (p *Pool) touch(idx int) {
	p.queue.moveToTail(idx)
}

// acquire finds or creates a slot for blk: a hit returns its existing
// slot index; a miss allocates a fresh slot while under capacity, or
// evicts a victim (evicted=true), assigning it to blk either way. ok
// is false with a nil err when every resident frame is pinned and the
// pool is at capacity, the signal for the Coordinator to wait; it is
// also false when assignment fails, with err set.
func (p *Pool) acquire(blk types.BlockID) (idx int, hit bool, evicted bool, reason string, ok bool, err error) {
	if idx, found := p.table[blk]; found {
		return idx, true, false, "", true, nil
	}

	var victim int
	if len(p.slots) < p.capacity {
		victim = len(p.slots)
		p.slots = append(p.slots, NewFrame(p.blocks, p.logs))
		p.queue.grow()
	} else {
		v, r, found := p.chooseVictim()
		if !found {
			return -1, false, false, "", false, nil
		}
		victim = v
		reason = r
		evicted = true
		oldBlock := p.slots[victim].Block()
		delete(p.table, oldBlock)
		p.queue.remove(victim)
		p.history.forget(oldBlock)
	}

	if err := p.slots[victim].assignToBlock(blk); err != nil {
		// The slot is unassigned and unpinned again (assignToBlock's own
		// failure path guarantees that) but is linked into neither table
		// nor queue at this point. Push it back onto the queue so it
		// stays reachable by a future chooseVictim scan instead of
		// permanently shrinking capacity by one: it carries no history,
		// so its backward distance is +Inf and it is picked ahead of any
		// tracked frame.
		p.queue.pushTail(victim)
		return -1, false, false, "", false, fmt.Errorf("buffer: acquire %s: %w", blk, err)
	}

	p.table[blk] = victim
	p.queue.pushTail(victim)
	return victim, false, evicted, reason, true, nil
}

// frame returns the Frame at slot idx.
func (p *Pool) frame(idx int) *Frame { return p.slots[idx] }

// recordAccess delegates to the access history for blk.
func (p *Pool) recordAccess(blk types.BlockID) { p.history.recordAccess(blk) }

// residentCount reports how many slots are currently assigned to a block.
func (p *Pool) residentCount() int { return len(p.table) }

// allocatedCount reports how many slots have ever been allocated.
func (p *Pool) allocatedCount() int { return len(p.slots) }
