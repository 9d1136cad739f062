package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// u64Entry is a minimal Entry implementation used across the ring tests: a
// single uint64 payload plus the sequence number every engine requires.
type u64Entry struct {
	seq   uint64
	Value uint64
}

func (e *u64Entry) Sequence() uint64     { return e.seq }
func (e *u64Entry) SetSequence(v uint64) { e.seq = v }
func (e *u64Entry) Reset()               { e.Value = 0 }

func newU64Entry() *u64Entry { return &u64Entry{} }

// TestSPSCRoundTrip is seed case 1 from spec §8: capacity 1024, sequences
// 1..=10000, consumer sums in batches of 64.
func TestSPSCRoundTrip(t *testing.T) {
	r, err := NewSPSC[*u64Entry](1024, newU64Entry)
	require.NoError(t, err)

	var sum uint64
	var consumed uint64

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 10000; i++ {
			for {
				start, ok := r.TryClaim(1)
				if ok {
					r.WriteSlot(start, &u64Entry{Value: i})
					r.Publish(start + 1)
					break
				}
			}
		}
	}()

	for consumed < 10000 {
		batch := r.TryConsumeBatch(64)
		if len(batch) == 0 {
			continue
		}
		for _, e := range batch {
			sum += e.Value
		}
		consumed += uint64(len(batch))
		r.AdvanceConsumer(r.ConsumerCursor() + uint64(len(batch)))
	}
	wg.Wait()

	assert.Equal(t, uint64(50005000), sum)
	assert.Equal(t, uint64(10000), r.ProducerCursor())
	assert.Equal(t, uint64(10000), r.ConsumerCursor())
}

// TestRingAtCapacityReturnsFalse covers the "ring at capacity" boundary
// behavior from spec §8.
func TestRingAtCapacityReturnsFalse(t *testing.T) {
	r, err := NewSPSC[*u64Entry](8, newU64Entry)
	require.NoError(t, err)

	start, ok := r.TryClaim(8)
	require.True(t, ok)
	r.Publish(start + 8)

	_, ok = r.TryClaim(1)
	assert.False(t, ok, "claim beyond capacity with no consumer progress must fail")
}

// TestSPSCClaimAdvancesIndependentlyOfPublish covers a caller that batches
// several claims before a single Publish, the pattern the async archive
// uses to publish every 64 messages (§4.4): each TryClaim must hand out a
// distinct sequence even though Publish hasn't been called yet.
func TestSPSCClaimAdvancesIndependentlyOfPublish(t *testing.T) {
	r, err := NewSPSC[*u64Entry](64, newU64Entry)
	require.NoError(t, err)

	var starts []uint64
	for i := 0; i < 10; i++ {
		start, ok := r.TryClaim(1)
		require.True(t, ok)
		r.WriteSlot(start, &u64Entry{Value: uint64(i)})
		starts = append(starts, start)
	}

	for i, start := range starts {
		assert.Equal(t, uint64(i), start, "each claim before Publish must advance to a fresh slot")
	}
	assert.Equal(t, uint64(0), r.ProducerCursor(), "nothing should be visible to the consumer yet")

	r.Publish(10)
	assert.Equal(t, uint64(10), r.ProducerCursor())
	batch := r.TryConsumeBatch(10)
	require.Len(t, batch, 10)
	for i, e := range batch {
		assert.Equal(t, uint64(i), e.Value)
	}
}

// TestMPMCSentinelDrain is seed case 2 from spec §8: 4 producers each
// publish 250,000 increasing values, 4 consumers drain with the
// read-then-commit guard, then 4 sentinel zeros signal completion.
func TestMPMCSentinelDrain(t *testing.T) {
	const perProducer = 250_000
	const numProducers = 4
	const numConsumers = 4

	r, err := NewMPMC[*u64Entry](1<<16, newU64Entry)
	require.NoError(t, err)

	var producers sync.WaitGroup
	producers.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func() {
			defer producers.Done()
			for i := uint64(1); i <= perProducer; i++ {
				for {
					start, ok := r.TryClaim(1)
					if ok {
						// Producer p writes p*perProducer+1 .. (p+1)*perProducer,
						// so together the producers cover 1..1,000,000.
						r.WriteSlot(start, &u64Entry{Value: uint64(p)*perProducer + i})
						r.Publish(start, start+1)
						break
					}
				}
			}
		}()
	}

	var total uint64
	var sum uint64
	var mu sync.Mutex
	var consumers sync.WaitGroup
	consumers.Add(numConsumers)
	sentinelsSeen := make(chan struct{})
	var sentinelCount atomicCounter

	for c := 0; c < numConsumers; c++ {
		go func() {
			defer consumers.Done()
			for {
				guard, ok := r.ClaimRead()
				if !ok {
					continue
				}
				v := guard.Value.Value
				guard.Commit()

				if v == 0 {
					if sentinelCount.inc() == numProducers {
						close(sentinelsSeen)
					}
					return
				}

				mu.Lock()
				total++
				sum += v
				mu.Unlock()
			}
		}()
	}

	// The consumers run alongside the producers: the ring holds 65,536
	// slots, far fewer than the 1,000,000 values, so producers only finish
	// once consumers have committed enough slots for reuse.
	producers.Wait()

	for s := 0; s < numProducers; s++ {
		for {
			start, ok := r.TryClaim(1)
			if ok {
				r.WriteSlot(start, &u64Entry{Value: 0})
				r.Publish(start, start+1)
				break
			}
		}
	}

	<-sentinelsSeen
	consumers.Wait()

	assert.Equal(t, uint64(numProducers*perProducer), total)
	assert.Equal(t, uint64(500000500000), sum)
}

// atomicCounter is a tiny helper so the sentinel test doesn't need to pull
// in sync/atomic just for one counter.
type atomicCounter struct {
	mu sync.Mutex
	n  int
}

func (c *atomicCounter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func TestConfigValidation(t *testing.T) {
	_, err := NewConfig(0)
	assert.ErrorIs(t, err, ErrZeroCapacity)

	_, err = NewConfig(1023)
	assert.ErrorIs(t, err, ErrNotPowerOfTwo)

	cfg, err := NewConfig(1024)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NumConsumers)

	cfg, err = cfg.WithConsumers(4)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NumConsumers)

	_, err = cfg.WithConsumers(0)
	assert.ErrorIs(t, err, ErrZeroConsumers)

	_, err = cfg.WithConsumers(2000)
	assert.ErrorIs(t, err, ErrTooManyConsumers)
}

func TestMessageSlotOverflow(t *testing.T) {
	s := &MessageSlot{}
	require.NoError(t, s.SetData([]byte("hello")))
	assert.Equal(t, []byte("hello"), s.Payload())

	huge := make([]byte, MaxInlinePayload+1)
	assert.ErrorIs(t, s.SetData(huge), ErrPayloadTooLarge)
}

func TestBroadcastDeliversToEveryConsumer(t *testing.T) {
	r, err := NewBroadcast[*u64Entry](16, 3, newU64Entry)
	require.NoError(t, err)

	start, ok := r.TryClaim(5)
	require.True(t, ok)
	for i := uint64(0); i < 5; i++ {
		r.WriteSlot(start+i, &u64Entry{Value: start + i})
	}
	r.Publish(start + 5)

	for c := 0; c < 3; c++ {
		batch := r.TryConsumeBatch(c, 10)
		assert.Len(t, batch, 5)
		r.AdvanceConsumer(c, 5)
	}

	// Producer should now be able to claim a full new capacity's worth
	// since every consumer advanced.
	_, ok = r.TryClaim(16)
	assert.True(t, ok)
}

func TestSPMCDistributesEachSlotOnce(t *testing.T) {
	r, err := NewSPMC[*u64Entry](64, newU64Entry)
	require.NoError(t, err)

	start, ok := r.TryClaim(10)
	require.True(t, ok)
	for i := uint64(0); i < 10; i++ {
		r.WriteSlot(start+i, &u64Entry{Value: start + i})
	}
	r.Publish(start + 10)

	seen := map[uint64]bool{}
	for i := 0; i < 10; i++ {
		g, ok := r.ClaimRead()
		require.True(t, ok)
		seen[g.Sequence] = true
		g.Commit()
	}
	assert.Len(t, seen, 10)

	_, ok = r.ClaimRead()
	assert.False(t, ok)
}

func TestMPSCOrdersByPublication(t *testing.T) {
	r, err := NewMPSC[*u64Entry](64, newU64Entry)
	require.NoError(t, err)

	start, ok := r.TryClaim(3)
	require.True(t, ok)
	r.WriteSlot(start, &u64Entry{Value: 1})
	r.WriteSlot(start+1, &u64Entry{Value: 2})
	r.WriteSlot(start+2, &u64Entry{Value: 3})

	// Publish only the second two slots first: the consumer must not see
	// them until the first slot is also published.
	r.Publish(start+1, start+3)
	batch := r.TryConsumeBatch(10)
	assert.Len(t, batch, 0)

	r.Publish(start, start+1)
	batch = r.TryConsumeBatch(10)
	require.Len(t, batch, 3)
	assert.Equal(t, uint64(1), batch[0].Value)
	assert.Equal(t, uint64(3), batch[2].Value)
}
