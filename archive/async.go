package archive

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/relaymesh/core/ring"
)

// asyncRingSlots is the L4 ring depth (§6.3 archive.ring_slots default).
const asyncRingSlots = 65536

// writerBatchSize is how many slots the writer goroutine drains per pass
// (§4.4: "batches of up to 64").
const writerBatchSize = 64

// publishEvery batches the producer's cursor publication so the hot append
// path only takes a release store every N messages (§4.4).
const publishEvery = 64

// AsyncArchive wraps a SyncArchive behind an SPSC message ring (L2) and a
// dedicated writer goroutine, so producers never block on mmap I/O.
type AsyncArchive struct {
	ring *ring.MessageRingBuffer

	localCursor     uint64
	cachedConsumer  uint64

	cancel  context.CancelFunc
	done    chan struct{}
	logger  *zap.Logger
}

// NewAsync creates the backing SyncArchive at basePath with the given
// capacity and starts its writer goroutine.
func NewAsync(basePath string, capacity int, opts ...Option) (*AsyncArchive, error) {
	cfg, err := ring.NewConfig(asyncRingSlots)
	if err != nil {
		return nil, err
	}
	msgRing, err := ring.NewMessageRingBuffer(cfg)
	if err != nil {
		return nil, err
	}

	syncArc, err := Create(basePath, capacity, opts...)
	if err != nil {
		return nil, err
	}

	a := &AsyncArchive{
		ring:   msgRing,
		done:   make(chan struct{}),
		logger: syncArc.logger,
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.runWriter(ctx, syncArc)

	return a, nil
}

// runWriter is the dedicated long-lived goroutine that drains the SPSC
// ring and appends into the sync archive in batches, per §4.4 and the
// "dedicated OS-level thread" scheduling model in §5 (see SPEC_FULL.md's
// note on the Go translation of that requirement).
func (a *AsyncArchive) runWriter(ctx context.Context, sink *SyncArchive) {
	defer close(a.done)
	defer sink.Close()

	localConsumer := uint64(0)

	drain := func() {
		batch := a.ring.PeekBatch(0, writerBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, slot := range batch {
			_, _ = sink.AppendNoIndex(slot.Payload())
			localConsumer++
		}
		a.ring.AdvanceConsumer(localConsumer)
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return
		default:
			if a.ring.ProducerCursor() == localConsumer {
				runtime.Gosched()
				continue
			}
			drain()
		}
	}
}

// Append writes data into the ring buffer (non-blocking). It fails with
// ErrFull if the writer goroutine hasn't kept pace, or ErrPayloadTooLarge
// if data exceeds the ring's inline slot capacity.
func (a *AsyncArchive) Append(data []byte) (uint64, error) {
	if len(data) > ring.MaxInlinePayload {
		return 0, ErrPayloadTooLarge
	}

	next := a.localCursor + 1
	if next-a.cachedConsumer > asyncRingSlots {
		a.cachedConsumer = a.ring.ConsumerCursor()
		if next-a.cachedConsumer > asyncRingSlots {
			return 0, ErrFull
		}
	}

	start, slots, ok := a.ring.TryClaimSlots(1)
	if !ok {
		return 0, ErrFull
	}
	_ = slots[0].SetData(data)
	a.ring.StampSlot(start)

	seq := a.localCursor
	a.localCursor = next
	if a.localCursor%publishEvery == 0 {
		a.ring.Publish(a.localCursor)
	}
	return seq, nil
}

// Flush publishes any unpublished tail of the current batch and busy-waits
// for the writer goroutine to catch up.
func (a *AsyncArchive) Flush() {
	target := a.localCursor
	if a.ring.ProducerCursor() < target {
		a.ring.Publish(target)
	}
	for a.ring.ConsumerCursor() < target {
		runtime.Gosched()
	}
}

// Close flushes outstanding messages and stops the writer goroutine.
func (a *AsyncArchive) Close() error {
	a.Flush()
	a.cancel()
	<-a.done
	return nil
}
