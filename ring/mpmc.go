package ring

import "sync/atomic"

// MPMC is the fully general variant: multiple producers CAS-claim and
// independently publish contiguous runs (as in MPSC), and multiple
// consumers CAS-claim a shared read cursor and commit via a ReadGuard (as
// in SPMC). It is the slowest variant and does not guarantee
// inter-producer ordering — consumers see a linearisation consistent with
// sequence numbers, not necessarily producer submission order.
type MPMC[T Entry] struct {
	mask  uint64
	slots []T

	claim paddedCursor
	// available[i] holds seq+1 once the slot at index i has been
	// published for sequence seq (reserved-but-unpublished otherwise).
	available []atomic.Uint64

	read paddedCursor // shared consumer claim cursor
	// completed[i] holds seq+1 once the slot at index i has been
	// committed by whichever consumer claimed sequence seq.
	completed []atomic.Uint64
	reclaimed paddedCursor

	cachedReclaimed uint64
}

// NewMPMC creates an MPMC ring of the given capacity.
func NewMPMC[T Entry](capacity uint64, newEntry func() T) (*MPMC[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	r := &MPMC[T]{
		mask:      capacity - 1,
		slots:     make([]T, capacity),
		available: make([]atomic.Uint64, capacity),
		completed: make([]atomic.Uint64, capacity),
	}
	for i := range r.slots {
		r.slots[i] = newEntry()
	}
	return r, nil
}

func (r *MPMC[T]) Capacity() uint64 { return r.mask + 1 }

// TryClaim CAS-reserves n contiguous sequences for a producer, gated by the
// lowest sequence not yet reclaimed by a consumer commit.
func (r *MPMC[T]) TryClaim(n uint64) (uint64, bool) {
	for {
		start := r.claim.value.Load()
		end := start + n
		if end-r.cachedReclaimed > r.Capacity() {
			r.cachedReclaimed = r.reclaimed.value.Load()
			if end-r.cachedReclaimed > r.Capacity() {
				return 0, false
			}
		}
		if r.claim.value.CompareAndSwap(start, end) {
			return start, true
		}
	}
}

func (r *MPMC[T]) WriteSlot(seq uint64, value T) {
	idx := seq & r.mask
	r.slots[idx] = value
	r.slots[idx].SetSequence(seq)
}

// Publish marks sequences [start, end) as available to consumers.
func (r *MPMC[T]) Publish(start, end uint64) {
	for seq := start; seq < end; seq++ {
		r.available[seq&r.mask].Store(seq + 1)
	}
}

// ClaimRead atomically claims the next published-and-unclaimed sequence.
func (r *MPMC[T]) ClaimRead() (ReadGuard[T], bool) {
	for {
		pos := r.read.value.Load()
		idx := pos & r.mask
		if r.available[idx].Load() != pos+1 {
			return ReadGuard[T]{}, false
		}
		if r.read.value.CompareAndSwap(pos, pos+1) {
			return ReadGuard[T]{
				Sequence: pos,
				Value:    r.slots[idx],
				onCommit: r.commit,
			}, true
		}
	}
}

func (r *MPMC[T]) commit(seq uint64) {
	idx := seq & r.mask
	r.completed[idx].Store(seq + 1)
	r.advanceReclaim()
}

func (r *MPMC[T]) advanceReclaim() {
	for {
		cur := r.reclaimed.value.Load()
		idx := cur & r.mask
		if r.completed[idx].Load() != cur+1 {
			return
		}
		if !r.reclaimed.value.CompareAndSwap(cur, cur+1) {
			continue
		}
	}
}

func (r *MPMC[T]) ClaimCursor() uint64     { return r.claim.value.Load() }
func (r *MPMC[T]) ReadCursor() uint64      { return r.read.value.Load() }
func (r *MPMC[T]) ReclaimedCursor() uint64 { return r.reclaimed.value.Load() }
