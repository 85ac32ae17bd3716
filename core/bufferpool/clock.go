/*
Package bufferpool's replacement policy is clock sweep, the same
approximation-of-LRU second-chance algorithm used by Postgres: a single
cursor sweeps the descriptor array as a ring, clearing reference bits on
a frame's first encounter and evicting the first unpinned frame whose
reference bit is already clear. This clock carries no usage-count or
per-frame locking of its own; every allocBuf call already runs under
Manager.mu, so the sweep itself never needs to coordinate with anything
but that one lock.
*/
package bufferpool

import "github.com/arvindsinha/gojobuf/core/storage/page"

// clockSweep is the cursor state: one hand position, advanced one frame
// per tick.
type clockSweep struct {
	hand    int32
	numBufs int32
}

// newClockSweep positions the hand so the first tick visits frame 0.
func newClockSweep(numBufs int) clockSweep {
	return clockSweep{hand: int32(numBufs) - 1, numBufs: int32(numBufs)}
}

// tick advances the hand by one, modulo numBufs, and returns the new
// position.
func (c *clockSweep) tick() page.FrameID {
	c.hand = (c.hand + 1) % c.numBufs
	return page.FrameID(c.hand)
}

// allocBuf runs one full clock sweep and returns a victim frame ready to
// receive a new page. Callers must hold m.mu.
//
// The sweep advances the hand, skipping invalid-and-skippable states
// until it finds a frame to select:
//   - an invalid (empty) frame is selected immediately;
//   - a valid frame with its reference bit set has the bit cleared and
//     is passed over (this does not count toward the pinned-frame
//     termination check);
//   - a valid, reference-bit-clear frame that is pinned increments a
//     local pinnedCnt; if pinnedCnt reaches numBufs the call fails with
//     ErrBufferExceeded. pinnedCnt is never reset during the call, so a
//     pinned frame met on more than one lap is counted each time;
//   - a valid, reference-bit-clear, unpinned frame is selected.
//
// On selection, if the frame was valid: the resident page is flushed to
// its file if dirty, removed from the page table, and the descriptor is
// cleared.
func (m *Manager) allocBuf() (page.FrameID, error) {
	pinnedCnt := int32(0)
	ticks := 0
	for {
		fid := m.sweep.tick()
		ticks++
		d := &m.descs[fid]

		if !d.valid {
			m.metrics.ObserveSweepLength(ticks)
			return m.evictForReuse(fid)
		}
		if d.refbit {
			d.refbit = false
			continue
		}
		if d.pinCnt > 0 {
			pinnedCnt++
			if pinnedCnt == m.sweep.numBufs {
				return page.InvalidFrameID, ErrBufferExceeded
			}
			continue
		}
		m.metrics.ObserveSweepLength(ticks)
		return m.evictForReuse(fid)
	}
}

// evictForReuse finishes selecting frame fid: if it currently holds a
// valid page, that page is flushed (if dirty), dropped from the page
// table, and the descriptor is cleared before the frame is handed back
// for reuse.
func (m *Manager) evictForReuse(fid page.FrameID) (page.FrameID, error) {
	d := &m.descs[fid]
	if d.valid {
		if d.dirty {
			if err := d.file.WritePage(m.pages[fid]); err != nil {
				return page.InvalidFrameID, err
			}
			m.metrics.Writeback(m.instanceID)
			m.log.Debug("wrote back dirty frame during eviction",
				logFrame(fid), logPage(d.pageNo))
		}
		m.table.Remove(d.file, d.pageNo)
		m.metrics.Eviction(m.instanceID)
		d.clear()
	}
	return fid, nil
}
