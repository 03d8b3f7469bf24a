package buffer

import "math"

// chooseVictim picks the frame slot to evict, or ok=false if every
// resident frame is pinned. It only ever considers frames currently
// linked in the recency queue (i.e. currently in the table), per the
// fixed semantics in the replacement-policy design notes: the frame
// table and the access history are kept in lockstep, so scanning one
// via the other's keys would never actually diverge here, but scanning
// the queue directly is the one true source of "what's resident".
func (p *Pool) chooseVictim() (idx int, reason string, ok bool) {
	infIdx, found := -1, false
	p.queue.forEach(func(i int) bool {
		frame := p.slots[i]
		if frame.IsPinned() {
			return true
		}
		if math.IsInf(p.history.backwardDistance(frame.Block()), 1) {
			infIdx, found = i, true
			return false
		}
		return true
	})
	if found {
		return infIdx, reasonUnderK, true
	}

	maxDist := math.Inf(-1)
	anyUnpinned := false
	p.queue.forEach(func(i int) bool {
		frame := p.slots[i]
		if frame.IsPinned() {
			return true
		}
		anyUnpinned = true
		if d := p.history.backwardDistance(frame.Block()); d > maxDist {
			maxDist = d
		}
		return true
	})
	if !anyUnpinned {
		return -1, "", false
	}

	bestIdx, bestFound := -1, false
	p.queue.forEach(func(i int) bool {
		frame := p.slots[i]
		if frame.IsPinned() {
			return true
		}
		if p.history.backwardDistance(frame.Block()) == maxDist {
			bestIdx, bestFound = i, true
			return false
		}
		return true
	})
	return bestIdx, reasonLRUK, bestFound
}
