package ring

import "sync/atomic"

// MPSC is a multi-producer, single-consumer ring. Producers CAS-claim
// contiguous runs of sequences; each producer publishes its own run
// independently via a per-slot availability marker, and the consumer only
// advances through sequences that have actually been published, even if a
// later producer finished first.
type MPSC[T Entry] struct {
	mask  uint64
	slots []T

	claim paddedCursor // next sequence available to claim
	// available[i] holds seq+1 once the slot at index i has been
	// published for sequence seq.
	available []atomic.Uint64

	consumer paddedCursor
}

// NewMPSC creates an MPSC ring of the given capacity.
func NewMPSC[T Entry](capacity uint64, newEntry func() T) (*MPSC[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	r := &MPSC[T]{
		mask:      capacity - 1,
		slots:     make([]T, capacity),
		available: make([]atomic.Uint64, capacity),
	}
	for i := range r.slots {
		r.slots[i] = newEntry()
	}
	return r, nil
}

func (r *MPSC[T]) Capacity() uint64 { return r.mask + 1 }

// TryClaim CAS-reserves n contiguous sequences for a producer, gated by the
// consumer cursor so no producer overruns an un-consumed slot.
func (r *MPSC[T]) TryClaim(n uint64) (uint64, bool) {
	for {
		start := r.claim.value.Load()
		end := start + n
		if end-r.consumer.value.Load() > r.Capacity() {
			return 0, false
		}
		if r.claim.value.CompareAndSwap(start, end) {
			return start, true
		}
	}
}

// WriteSlot stores value for seq. The caller must have claimed seq.
func (r *MPSC[T]) WriteSlot(seq uint64, value T) {
	idx := seq & r.mask
	r.slots[idx] = value
	r.slots[idx].SetSequence(seq)
}

// Publish marks sequences [start, end) as available to the consumer. Each
// producer publishes only the run it claimed; the consumer's batch read
// only advances through sequences actually marked available, so a
// fast producer publishing ahead of a slow one does not create a gap the
// consumer walks past.
func (r *MPSC[T]) Publish(start, end uint64) {
	for seq := start; seq < end; seq++ {
		r.available[seq&r.mask].Store(seq + 1)
	}
}

// TryConsumeBatch returns up to max contiguously-available slots starting
// at the consumer cursor.
func (r *MPSC[T]) TryConsumeBatch(max uint64) []T {
	pos := r.consumer.value.Load()
	var out []T
	for uint64(len(out)) < max {
		idx := pos & r.mask
		if r.available[idx].Load() != pos+1 {
			break
		}
		out = append(out, r.slots[idx])
		pos++
	}
	return out
}

// AdvanceConsumer releases sequences < newCursor back to producers for
// reclamation.
func (r *MPSC[T]) AdvanceConsumer(newCursor uint64) {
	r.consumer.value.Store(newCursor)
}

func (r *MPSC[T]) ConsumerCursor() uint64 { return r.consumer.value.Load() }
func (r *MPSC[T]) ClaimCursor() uint64    { return r.claim.value.Load() }
