package rudp

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/relaymesh/core/archive"
	"github.com/relaymesh/core/ring"
)

// FlagReplay marks a frame as synthesized from the archive rather than sent
// live (§4.6). Nothing in this package reads the flag: replayed frames stay
// out of the tap because Replay never goes through Send, and the recorder
// archives tap payloads without inspecting any frame flags.
const FlagReplay uint8 = 0x02

// ArchivedSession wraps a Session with a lock-free archival tap: a
// dedicated SPSC ring of message slots fed on the hot send path, drained by
// a recorder goroutine into an L3 archive (§4.6).
type ArchivedSession struct {
	*Session

	tap       *ring.MessageRingBuffer
	archived  uint64
	archive   *archive.SyncArchive
	recordedN uint64

	cancel context.CancelFunc
	done   chan struct{}
	logger *zap.Logger
}

// NewArchivedSession wires session to a tap ring sized to window slots and
// starts the recorder goroutine writing into a freshly created archive at
// basePath.
func NewArchivedSession(session *Session, basePath string, logCapacity int, window uint64, opts ...archive.Option) (*ArchivedSession, error) {
	cfg, err := ring.NewConfig(nextPowerOfTwo(window))
	if err != nil {
		return nil, err
	}
	tap, err := ring.NewMessageRingBuffer(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := archive.Create(basePath, logCapacity, opts...)
	if err != nil {
		return nil, err
	}

	as := &ArchivedSession{
		Session: session,
		tap:     tap,
		archive: sink,
		done:    make(chan struct{}),
		logger:  zap.NewNop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	as.cancel = cancel
	go as.runRecorder(ctx)
	return as, nil
}

// Send performs both a claim-and-copy into the tap ring and the underlying
// reliable send (§4.6), failing with ErrBufferFull when the tap ring has no
// free slot. Frames reconstructed by Replay carry FlagReplay and never pass
// back through Send, so they cannot re-enter the tap.
func (as *ArchivedSession) Send(payload []byte) ([]byte, uint64, error) {
	start, slots, ok := as.tap.TryClaimSlots(1)
	if !ok {
		return nil, 0, ErrBufferFull
	}
	_ = slots[0].SetData(payload)
	as.tap.PublishBatch(start, 1)
	return as.Session.Send(payload)
}

// runRecorder drains the tap ring and appends to the archive in batches of
// 64, the same writer-task shape as the async archive (§4.4, §4.6).
func (as *ArchivedSession) runRecorder(ctx context.Context) {
	defer close(as.done)

	localConsumer := uint64(0)
	drain := func() {
		batch := as.tap.PeekBatch(0, 64)
		if len(batch) == 0 {
			return
		}
		for _, slot := range batch {
			_, _ = as.archive.Append(slot.Payload())
			localConsumer++
		}
		as.tap.AdvanceConsumer(localConsumer)
		as.recordedN = localConsumer
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return
		default:
			if as.tap.ProducerCursor() == localConsumer {
				runtime.Gosched()
				continue
			}
			drain()
		}
	}
}

// MsgCount returns the producer-side count of messages handed to the tap.
func (as *ArchivedSession) MsgCount() uint64 { return as.tap.ProducerCursor() }

// ArchivedSeq returns the consumer-side count of messages the recorder has
// durably archived.
func (as *ArchivedSession) ArchivedSeq() uint64 { return as.recordedN }

// WaitForArchive busy-waits until every tap message produced so far has
// been archived; the flush point before shutdown (§4.6).
func (as *ArchivedSession) WaitForArchive() {
	target := as.tap.ProducerCursor()
	for as.recordedN < target {
		runtime.Gosched()
	}
}

// Replay iterates archive entries [from, to) and synthesizes Data frames
// for handler, for late-joining peers that need history the live
// retransmit buffer has already evicted (§4.6).
func (as *ArchivedSession) Replay(from, to uint64, handler func(seq uint64, frame []byte)) error {
	for seq := from; seq < to; seq++ {
		payload, err := as.archive.Read(seq)
		if err != nil {
			return err
		}
		frame := as.Session.encodeReplayFrame(seq, payload)
		handler(seq, frame)
	}
	return nil
}

// Close stops the recorder goroutine and the underlying archive handle.
func (as *ArchivedSession) Close() error {
	as.WaitForArchive()
	as.cancel()
	<-as.done
	return as.archive.Close()
}

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
