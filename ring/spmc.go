package ring

import "sync/atomic"

// SPMC is a single-producer, multi-consumer ring performing work
// distribution: each published slot is delivered to exactly one consumer.
// Consumers race a CAS on a shared read cursor to claim the next sequence.
type SPMC[T Entry] struct {
	mask     uint64
	slots    []T
	producer paddedCursor

	producerClaim paddedCursor // next sequence the producer will hand out

	claimed paddedCursor // next sequence a consumer will claim
	// completed[i] holds seq+1 once the slot at index i has been
	// committed for sequence seq; zero means not yet committed for any
	// sequence that maps to this index.
	completed []atomic.Uint64
	reclaimed paddedCursor // lowest sequence the producer may reuse

	cachedReclaimed uint64
}

// NewSPMC creates an SPMC ring of the given capacity.
func NewSPMC[T Entry](capacity uint64, newEntry func() T) (*SPMC[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	r := &SPMC[T]{
		mask:      capacity - 1,
		slots:     make([]T, capacity),
		completed: make([]atomic.Uint64, capacity),
	}
	for i := range r.slots {
		r.slots[i] = newEntry()
	}
	return r, nil
}

func (r *SPMC[T]) Capacity() uint64 { return r.mask + 1 }

// TryClaim reserves n contiguous sequences for the producer, gated by the
// slowest outstanding (uncommitted) consumer claim. The producer's claim
// cursor is tracked separately from the published cursor so that several
// batches can be claimed before a single Publish makes them all visible.
func (r *SPMC[T]) TryClaim(n uint64) (uint64, bool) {
	start := r.producerClaim.value.Load()
	end := start + n

	if end-r.cachedReclaimed > r.Capacity() {
		r.cachedReclaimed = r.reclaimed.value.Load()
		if end-r.cachedReclaimed > r.Capacity() {
			return 0, false
		}
	}
	r.producerClaim.value.Store(end)
	return start, true
}

func (r *SPMC[T]) WriteSlot(seq uint64, value T) {
	idx := seq & r.mask
	r.slots[idx] = value
	r.slots[idx].SetSequence(seq)
}

func (r *SPMC[T]) Publish(newEnd uint64) {
	r.producer.value.Store(newEnd)
}

// ClaimRead atomically claims the next unclaimed published sequence for
// this consumer. It returns (guard, true) if a slot was available, or
// (zero guard, false) if the consumer has caught up to the producer.
func (r *SPMC[T]) ClaimRead() (ReadGuard[T], bool) {
	for {
		claimed := r.claimed.value.Load()
		published := r.producer.value.Load()
		if claimed >= published {
			return ReadGuard[T]{}, false
		}
		if r.claimed.value.CompareAndSwap(claimed, claimed+1) {
			idx := claimed & r.mask
			return ReadGuard[T]{
				Sequence: claimed,
				Value:    r.slots[idx],
				onCommit: r.commit,
			}, true
		}
	}
}

func (r *SPMC[T]) commit(seq uint64) {
	idx := seq & r.mask
	r.completed[idx].Store(seq + 1)
	r.advanceReclaim()
}

// advanceReclaim walks the reclaim cursor forward through contiguously
// completed sequences. Multiple consumers may call this concurrently; the
// CAS ensures only one advances the cursor for a given step.
func (r *SPMC[T]) advanceReclaim() {
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

// ClaimedCursor returns the shared consumer claim cursor.
func (r *SPMC[T]) ClaimedCursor() uint64 { return r.claimed.value.Load() }

// ProducerClaimCursor returns the producer's claim cursor, which may be
// ahead of the published producer cursor.
func (r *SPMC[T]) ProducerClaimCursor() uint64 { return r.producerClaim.value.Load() }

// ReclaimedCursor returns the lowest sequence available for producer reuse.
func (r *SPMC[T]) ReclaimedCursor() uint64 { return r.reclaimed.value.Load() }

func (r *SPMC[T]) ProducerCursor() uint64 { return r.producer.value.Load() }
