package ring

import "sync/atomic"

// paddedCursor isolates a cursor on its own 128-byte line so producer and
// consumer updates never false-share a cache line.
type paddedCursor struct {
	value atomic.Uint64
	_     [128 - 8]byte
}

// SPSC is a single-producer single-consumer ring buffer: the fastest
// variant, with one cursor per side and no CAS on the hot path.
type SPSC[T Entry] struct {
	mask     uint64
	slots    []T
	claimed  paddedCursor
	producer paddedCursor
	consumer paddedCursor

	// cachedConsumer lets the producer skip the atomic load on every claim;
	// it is refreshed only when the optimistic check against it fails.
	cachedConsumer uint64
}

// NewSPSC creates an SPSC ring of the given power-of-two capacity. newEntry
// allocates one zero-value T per slot.
func NewSPSC[T Entry](capacity uint64, newEntry func() T) (*SPSC[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	r := &SPSC[T]{
		mask:  capacity - 1,
		slots: make([]T, capacity),
	}
	for i := range r.slots {
		r.slots[i] = newEntry()
	}
	return r, nil
}

// Capacity returns the fixed slot count.
func (r *SPSC[T]) Capacity() uint64 { return r.mask + 1 }

// TryClaim reserves n contiguous sequences for the producer. It returns the
// starting sequence and true, or (0, false) if the consumer hasn't kept
// pace and there isn't room.
//
// The claim cursor is tracked separately from the published (producer)
// cursor so that a producer can claim several batches of slots before a
// single Publish makes them all visible at once; claims always advance
// regardless of when the caller chooses to publish.
func (r *SPSC[T]) TryClaim(n uint64) (uint64, bool) {
	start := r.claimed.value.Load()
	end := start + n

	if end-r.cachedConsumer > r.Capacity() {
		r.cachedConsumer = r.consumer.value.Load()
		if end-r.cachedConsumer > r.Capacity() {
			return 0, false
		}
	}
	r.claimed.value.Store(end)
	return start, true
}

// WriteSlot stores value at the slot for seq & mask and stamps it with seq.
// The mask keeps every index in range; seq is not checked against the
// claimed range, so the caller must only write sequences it has claimed.
func (r *SPSC[T]) WriteSlot(seq uint64, value T) {
	idx := seq & r.mask
	r.slots[idx] = value
	r.slots[idx].SetSequence(seq)
}

// WriteSlotUnchecked calls WriteSlot unchanged; in Go both forms are
// equally safe (there is no raw pointer arithmetic to elide), but the
// unchecked name is kept so callers porting from the claim/publish
// contract see the same two-tier API as every other layer.
func (r *SPSC[T]) WriteSlotUnchecked(seq uint64, value T) {
	r.WriteSlot(seq, value)
}

// Publish makes all sequences < newEnd visible to the consumer.
func (r *SPSC[T]) Publish(newEnd uint64) {
	r.producer.value.Store(newEnd)
}

// TryConsumeBatch returns up to max unread slots. The returned slice
// aliases the ring's backing array and is only valid until the next call
// to AdvanceConsumer past those sequences.
func (r *SPSC[T]) TryConsumeBatch(max uint64) []T {
	consumerPos := r.consumer.value.Load()
	published := r.producer.value.Load()

	available := published - consumerPos
	if available == 0 {
		return nil
	}
	if available > max {
		available = max
	}

	out := make([]T, available)
	for i := uint64(0); i < available; i++ {
		out[i] = r.slots[(consumerPos+i)&r.mask]
	}
	return out
}

// AdvanceConsumer releases sequences < newCursor back to the producer.
func (r *SPSC[T]) AdvanceConsumer(newCursor uint64) {
	r.consumer.value.Store(newCursor)
}

// ProducerCursor returns the current published producer cursor.
func (r *SPSC[T]) ProducerCursor() uint64 { return r.producer.value.Load() }

// ClaimCursor returns the current claim cursor, which may be ahead of the
// published producer cursor if the caller has claimed slots it hasn't
// published yet.
func (r *SPSC[T]) ClaimCursor() uint64 { return r.claimed.value.Load() }

// ConsumerCursor returns the current consumer cursor.
func (r *SPSC[T]) ConsumerCursor() uint64 { return r.consumer.value.Load() }
