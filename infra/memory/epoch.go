package memory

import "sync/atomic"

// GlobalEpoch monotonically increases with every reclaim pass.
var GlobalEpoch atomic.Uint64

const inactive = ^uint64(0)

// ReaderEpoch marks when a reader entered a read section. A reader in
// a section pins every object retired since it entered.
type ReaderEpoch struct {
	epoch atomic.Uint64
}

func NewReaderEpoch() *ReaderEpoch {
	r := &ReaderEpoch{}
	r.epoch.Store(inactive)
	return r
}

func (r *ReaderEpoch) Enter() {
	r.epoch.Store(GlobalEpoch.Load())
}

func (r *ReaderEpoch) Exit() {
	r.epoch.Store(inactive)
}

func (r *ReaderEpoch) Value() uint64 {
	return r.epoch.Load()
}

// ReclaimablePool is the only requirement reclamation places on a pool.
type ReclaimablePool interface {
	PutAny(any)
}

// AdvanceEpochAndReclaim advances the global epoch and, when no reader
// is inside a read section, drains the retire ring back into the pool.
// FIFO order means that if the oldest object is pinned, newer ones are
// too, so the pass simply waits for the next tick.
func AdvanceEpochAndReclaim(ring *RetireRing, pool ReclaimablePool, readers ...*ReaderEpoch) {
	GlobalEpoch.Add(1)
	if minReaderEpoch(readers...) != inactive {
		return
	}
	for {
		obj := ring.Dequeue()
		if obj == nil {
			return
		}
		pool.PutAny(obj)
	}
}

func minReaderEpoch(rs ...*ReaderEpoch) uint64 {
	min := inactive
	for _, r := range rs {
		if r == nil {
			continue
		}
		if v := r.Value(); v < min {
			min = v
		}
	}
	return min
}
