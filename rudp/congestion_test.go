package rudp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCongestionSlowStartThenLossHalvesWindow is seed case 6: window grows
// by one per ack in slow-start, then a loss event halves it.
func TestCongestionSlowStartThenLossHalvesWindow(t *testing.T) {
	c := NewCongestion(4, 1024)
	require.Equal(t, 4, c.Window())

	for i := 0; i < 4; i++ {
		c.OnSend()
	}
	for i := 0; i < 4; i++ {
		c.OnAck(10*time.Millisecond, 1)
	}
	assert.Equal(t, 8, c.Window())

	before := c.Window()
	now := time.Now()
	c.OnLoss(now)
	assert.Equal(t, before/2, c.Window())

	// A second loss within the same RTT window must be ignored.
	c.OnLoss(now.Add(time.Millisecond))
	assert.Equal(t, before/2, c.Window())
}

func TestCongestionCanSendGatesOnInFlight(t *testing.T) {
	c := NewCongestion(4, 1024)
	for i := 0; i < 4; i++ {
		require.True(t, c.CanSend())
		c.OnSend()
	}
	assert.False(t, c.CanSend())
}

func TestCongestionRTTEstimatorEWMA(t *testing.T) {
	c := NewCongestion(4, 1024)
	c.OnSend()
	c.OnAck(100*time.Millisecond, 1)
	assert.Equal(t, 100*time.Millisecond, c.RTT())

	c.OnSend()
	c.OnAck(20*time.Millisecond, 1)
	want := time.Duration(rttAlpha*float64(100*time.Millisecond) + rttBeta*float64(20*time.Millisecond))
	assert.Equal(t, want, c.RTT())
}
