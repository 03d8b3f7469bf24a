package buffer

import (
	"sync"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/ryogrid/blockbufferpool/internal/logger"
	"github.com/ryogrid/blockbufferpool/types"
)

// Coordinator is the buffer pool's public contract: Pin, Unpin,
// FlushAll, Available, FindExisting. A single pool-wide mutex guards
// the Pool, every Frame's metadata, and the access history; pin()
// waits on the associated condition variable, bounded by
// Config.MaxWait, when no frame can be secured immediately.
type Coordinator struct {
	mu   deadlock.Mutex
	cond *sync.Cond

	pool      *Pool
	available int

	cfg     Config
	log     *zap.Logger
	metrics *Metrics
}

// NewCoordinator builds a Coordinator over blocks/logs with the given
// configuration. If log is nil, a no-op logger is used. If metrics is
// nil, a private unregistered Metrics set is created so callers who
// don't care about prometheus still get a working Coordinator.
func NewCoordinator(cfg Config, blocks BlockStore, logs LogManager, log *zap.Logger, metrics *Metrics) *Coordinator {
	if cfg.Capacity <= 0 {
		panic("buffer: capacity must be positive")
	}
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheusNopRegisterer{})
	}

	c := &Coordinator{
		pool:      newPool(cfg.Capacity, blocks, logs),
		available: cfg.Capacity,
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
	}
	c.cond = sync.NewCond(&c.mu)
	c.metrics.AvailableGauge.Set(float64(cfg.Capacity))
	return c
}

// Pin secures a Frame holding blk, blocking until one is available or
// Config.MaxWait elapses, at which point it returns an error wrapping
// ErrBufferAbort.
func (c *Coordinator) Pin(blk types.BlockID) (*Frame, error) {
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		frame, hit, acquired, err := c.tryToPin(blk)
		if err != nil {
			c.log.Warn("buffer: pin failed", zap.Stringer("block", blk), zap.Error(err))
			return nil, err
		}
		if acquired {
			if hit {
				c.metrics.PinHits.Inc()
			} else {
				c.metrics.PinMisses.Inc()
			}
			c.metrics.AvailableGauge.Set(float64(c.available))
			c.log.Debug("buffer: pinned",
				zap.Stringer("block", blk),
				zap.Bool("hit", hit),
				zap.Duration("waited", time.Since(start)))
			return frame, nil
		}

		elapsed := time.Since(start)
		remaining := c.cfg.maxWait() - elapsed
		if remaining <= 0 {
			c.metrics.BufferAborts.Inc()
			c.log.Warn("buffer: pin aborted", zap.Stringer("block", blk), zap.Duration("waited", elapsed))
			return nil, newAbortError(blk, elapsed)
		}

		c.waitWithDeadline(remaining)
	}
}

// waitWithDeadline waits on the condition variable, holding c.mu on
// entry and on return, and wakes no later than d from now even if no
// Unpin ever broadcasts.
//
// sync.Cond has no built-in timeout. Rather than race a detached
// goroutine's Wait() against time.After (which leaves that goroutine
// orphaned inside Wait()'s queue forever if the timer wins — a later,
// unrelated Broadcast would eventually wake it only to exit without
// ever unlocking c.mu, wedging the Coordinator for good), the deadline
// is enforced by a timer that calls Broadcast itself. The only
// goroutine that ever calls Wait() is this one, the one already
// holding c.mu, so there is never an orphan: Pin's loop re-checks
// elapsed time on every wakeup, forced or genuine, and decides there
// whether to abort.
func (c *Coordinator) waitWithDeadline(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()
	c.cond.Wait()
}

// tryToPin attempts to resolve blk to a pinned Frame without waiting.
// Caller must hold c.mu.
func (c *Coordinator) tryToPin(blk types.BlockID) (frame *Frame, hit bool, ok bool, err error) {
	// Victim choice is deterministic under c.mu, so the slot named here
	// is the one acquire evicts; note whether that eviction flushes it.
	victimDirty := false
	if _, resident := c.pool.findExisting(blk); !resident && c.pool.allocatedCount() >= c.pool.capacity {
		if v, _, found := c.pool.chooseVictim(); found {
			victimDirty = c.pool.frame(v).IsDirty()
		}
	}

	idx, wasHit, evicted, reason, acquired, err := c.pool.acquire(blk)
	if err != nil {
		return nil, false, false, err
	}
	if !acquired {
		return nil, false, false, nil
	}

	if wasHit {
		c.pool.touch(idx)
	} else if evicted {
		c.metrics.Evictions.WithLabelValues(reason).Inc()
		if victimDirty {
			c.metrics.DirtyFlushes.Inc()
		}
	}

	f := c.pool.frame(idx)
	if !f.IsPinned() {
		c.available--
	}
	f.pin()
	c.pool.recordAccess(blk)

	return f, wasHit, true, nil
}

// Unpin releases one hold on frame. When its pin count reaches zero,
// a waiter (if any) is woken.
func (c *Coordinator) Unpin(frame *Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame.unpin()
	if !frame.IsPinned() {
		c.available++
		c.metrics.AvailableGauge.Set(float64(c.available))
		c.cond.Broadcast()
	}
}

// FlushAll flushes every Frame currently modified by tx.
func (c *Coordinator) FlushAll(tx types.TxnID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, idx := range c.pool.table {
		f := c.pool.frame(idx)
		if f.ModifyingTx() != tx {
			continue
		}
		if err := f.flush(); err != nil {
			return err
		}
		c.metrics.DirtyFlushes.Inc()
	}
	return nil
}

// Available returns the current count of unpinned-or-unallocated frame slots.
func (c *Coordinator) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.AvailableGauge.Set(float64(c.available))
	return c.available
}

// FindExisting returns the Frame currently holding blk, primarily for
// diagnostics and tests; it returns (nil, false) when blk isn't resident.
func (c *Coordinator) FindExisting(blk types.BlockID) (*Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.pool.findExisting(blk)
	if !ok {
		return nil, false
	}
	return c.pool.frame(idx), true
}
