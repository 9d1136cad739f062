package ring

// MessageRingBuffer is the L2 variable-length message ring: an SPSC engine
// of *MessageSlot, giving producers a byte-slice API instead of the raw
// generic Entry contract.
type MessageRingBuffer struct {
	engine *SPSC[*MessageSlot]
}

// NewMessageRingBuffer creates a message ring of the given capacity.
func NewMessageRingBuffer(cfg Config) (*MessageRingBuffer, error) {
	engine, err := NewSPSC[*MessageSlot](cfg.Capacity, func() *MessageSlot { return &MessageSlot{} })
	if err != nil {
		return nil, err
	}
	return &MessageRingBuffer{engine: engine}, nil
}

// TryClaimSlots reserves count contiguous slots and returns their starting
// sequence plus direct references to the backing slots for the caller to
// fill via SetData.
func (m *MessageRingBuffer) TryClaimSlots(count int) (uint64, []*MessageSlot, bool) {
	start, ok := m.engine.TryClaim(uint64(count))
	if !ok {
		return 0, nil, false
	}
	slots := make([]*MessageSlot, count)
	for i := 0; i < count; i++ {
		slots[i] = m.engine.slots[(start+uint64(i))&m.engine.mask]
	}
	return start, slots, true
}

// PublishBatch publishes count sequences starting at start, stamping each
// slot's sequence number.
func (m *MessageRingBuffer) PublishBatch(start uint64, count int) {
	for i := 0; i < count; i++ {
		seq := start + uint64(i)
		m.engine.slots[seq&m.engine.mask].SetSequence(seq)
	}
	m.engine.Publish(start + uint64(count))
}

// StampSlot sets the sequence number on the slot claimed for seq without
// publishing it. Callers that want to batch their publish calls (e.g. the
// async archive, publishing every 64 messages per §4.4) stamp each slot as
// they claim it and call Publish separately once the batch boundary is
// reached.
func (m *MessageRingBuffer) StampSlot(seq uint64) {
	m.engine.slots[seq&m.engine.mask].SetSequence(seq)
}

// Publish makes all sequences < newEnd visible to the consumer, without
// touching any slot contents. Pairs with StampSlot for batched publication.
func (m *MessageRingBuffer) Publish(newEnd uint64) {
	m.engine.Publish(newEnd)
}

// PeekBatch returns up to max published-but-unconsumed slots starting at
// the given offset from the consumer cursor. It does not advance the
// consumer; call AdvanceConsumer once the caller is done with the batch.
func (m *MessageRingBuffer) PeekBatch(offset int, max uint64) []*MessageSlot {
	pos := m.engine.ConsumerCursor() + uint64(offset)
	published := m.engine.ProducerCursor()
	if pos >= published {
		return nil
	}
	available := published - pos
	if available > max {
		available = max
	}
	out := make([]*MessageSlot, available)
	for i := uint64(0); i < available; i++ {
		out[i] = m.engine.slots[(pos+i)&m.engine.mask]
	}
	return out
}

// AdvanceConsumer releases sequences < newCursor back to the producer.
// newCursor is an absolute sequence, matching every other engine's
// AdvanceConsumer contract.
func (m *MessageRingBuffer) AdvanceConsumer(newCursor uint64) {
	m.engine.AdvanceConsumer(newCursor)
}

// Capacity returns the ring's fixed slot count.
func (m *MessageRingBuffer) Capacity() uint64 { return m.engine.Capacity() }

// ProducerCursor returns the current published producer cursor.
func (m *MessageRingBuffer) ProducerCursor() uint64 { return m.engine.ProducerCursor() }

// ConsumerCursor returns the current consumer cursor.
func (m *MessageRingBuffer) ConsumerCursor() uint64 { return m.engine.ConsumerCursor() }
