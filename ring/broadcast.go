package ring

// Broadcast is a single-producer, N-consumer ring where every consumer
// observes every published slot. The producer is gated by the slowest
// consumer: TryClaim fails once the gap to the slowest consumer would
// exceed capacity.
type Broadcast[T Entry] struct {
	mask      uint64
	slots     []T
	claimed   paddedCursor // next sequence the producer will hand out
	producer  paddedCursor
	consumers []paddedCursor

	cachedMinConsumer uint64
}

// NewBroadcast creates a broadcast ring with the given capacity and number
// of independent consumer cursors.
func NewBroadcast[T Entry](capacity uint64, numConsumers int, newEntry func() T) (*Broadcast[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	if err := validateConsumers(capacity, numConsumers); err != nil {
		return nil, err
	}
	r := &Broadcast[T]{
		mask:      capacity - 1,
		slots:     make([]T, capacity),
		consumers: make([]paddedCursor, numConsumers),
	}
	for i := range r.slots {
		r.slots[i] = newEntry()
	}
	return r, nil
}

func (r *Broadcast[T]) Capacity() uint64    { return r.mask + 1 }
func (r *Broadcast[T]) NumConsumers() int   { return len(r.consumers) }

func (r *Broadcast[T]) minConsumerCursor() uint64 {
	min := r.consumers[0].value.Load()
	for i := 1; i < len(r.consumers); i++ {
		if v := r.consumers[i].value.Load(); v < min {
			min = v
		}
	}
	return min
}

// TryClaim reserves n sequences for the single producer, gated by
// min(consumer cursors) + capacity. The claim cursor advances independently
// of Publish so a producer can claim several batches before publishing them
// all at once.
func (r *Broadcast[T]) TryClaim(n uint64) (uint64, bool) {
	start := r.claimed.value.Load()
	end := start + n

	if end-r.cachedMinConsumer > r.Capacity() {
		r.cachedMinConsumer = r.minConsumerCursor()
		if end-r.cachedMinConsumer > r.Capacity() {
			return 0, false
		}
	}
	r.claimed.value.Store(end)
	return start, true
}

func (r *Broadcast[T]) WriteSlot(seq uint64, value T) {
	idx := seq & r.mask
	r.slots[idx] = value
	r.slots[idx].SetSequence(seq)
}

func (r *Broadcast[T]) Publish(newEnd uint64) {
	r.producer.value.Store(newEnd)
}

// TryConsumeBatch returns up to max unread slots for the given consumer id.
func (r *Broadcast[T]) TryConsumeBatch(consumerID int, max uint64) []T {
	pos := r.consumers[consumerID].value.Load()
	published := r.producer.value.Load()

	available := published - pos
	if available == 0 {
		return nil
	}
	if available > max {
		available = max
	}

	out := make([]T, available)
	for i := uint64(0); i < available; i++ {
		out[i] = r.slots[(pos+i)&r.mask]
	}
	return out
}

// AdvanceConsumer releases sequences < newCursor for the given consumer.
func (r *Broadcast[T]) AdvanceConsumer(consumerID int, newCursor uint64) {
	r.consumers[consumerID].value.Store(newCursor)
}

func (r *Broadcast[T]) ConsumerCursor(consumerID int) uint64 {
	return r.consumers[consumerID].value.Load()
}

func (r *Broadcast[T]) ProducerCursor() uint64 { return r.producer.value.Load() }

// ClaimCursor returns the current claim cursor, which may be ahead of the
// published producer cursor.
func (r *Broadcast[T]) ClaimCursor() uint64 { return r.claimed.value.Load() }
