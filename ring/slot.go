package ring

import "sync/atomic"

const cacheLine = 64

// Entry is the constraint generic ring engines place on stored values: a
// value carries its own sequence number, which WriteSlot stamps on every
// write. The engines themselves decide what is visible through their
// cursors and availability markers and never read Sequence() back.
type Entry interface {
	Sequence() uint64
	SetSequence(seq uint64)
	Reset()
}

// Slot8 is a fixed 8-byte payload cell, cache-line aligned with its
// sequence number.
type Slot8 struct {
	seq  atomic.Uint64
	_    [cacheLine - 8]byte
	Data [8]byte
}

func (s *Slot8) Sequence() uint64     { return s.seq.Load() }
func (s *Slot8) SetSequence(v uint64) { s.seq.Store(v) }
func (s *Slot8) Reset()               { s.Data = [8]byte{} }

// Slot16 is a fixed 16-byte payload cell.
type Slot16 struct {
	seq  atomic.Uint64
	_    [cacheLine - 8]byte
	Data [16]byte
}

func (s *Slot16) Sequence() uint64     { return s.seq.Load() }
func (s *Slot16) SetSequence(v uint64) { s.seq.Store(v) }
func (s *Slot16) Reset()               { s.Data = [16]byte{} }

// Slot32 is a fixed 32-byte payload cell.
type Slot32 struct {
	seq  atomic.Uint64
	_    [cacheLine - 8]byte
	Data [32]byte
}

func (s *Slot32) Sequence() uint64     { return s.seq.Load() }
func (s *Slot32) SetSequence(v uint64) { s.seq.Store(v) }
func (s *Slot32) Reset()               { s.Data = [32]byte{} }

// Slot64 is a fixed 64-byte payload cell.
type Slot64 struct {
	seq  atomic.Uint64
	_    [cacheLine - 8]byte
	Data [64]byte
}

func (s *Slot64) Sequence() uint64     { return s.seq.Load() }
func (s *Slot64) SetSequence(v uint64) { s.seq.Store(v) }
func (s *Slot64) Reset()               { s.Data = [64]byte{} }

// MaxInlinePayload is the default inline payload capacity of a MessageSlot
// (§6.3 archive.msg_limit default).
const MaxInlinePayload = 1024

// MessageSlot is the L2 variable-length slot: a 2-byte length prefix plus
// an inline payload area. The inline capacity is the MaxInlinePayload
// constant; there is no per-ring override.
type MessageSlot struct {
	seq    atomic.Uint64
	_      [cacheLine - 8]byte
	Length uint16
	Data   [MaxInlinePayload]byte
}

func (s *MessageSlot) Sequence() uint64     { return s.seq.Load() }
func (s *MessageSlot) SetSequence(v uint64) { s.seq.Store(v) }
func (s *MessageSlot) Reset()               { s.Length = 0 }

// SetData copies data into the slot's inline area. It returns
// ErrPayloadTooLarge if data exceeds MaxInlinePayload instead of truncating
// — overflow is a caller error per the L2 contract.
func (s *MessageSlot) SetData(data []byte) error {
	if len(data) > MaxInlinePayload {
		return ErrPayloadTooLarge
	}
	s.Length = uint16(len(data))
	copy(s.Data[:s.Length], data)
	return nil
}

// Payload returns the slice of inline data currently stored in the slot.
// The returned slice aliases the slot's backing array: callers that retain
// it past the next AdvanceConsumer call must copy it out first.
func (s *MessageSlot) Payload() []byte {
	return s.Data[:s.Length]
}
