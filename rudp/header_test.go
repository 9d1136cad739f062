package rudp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, FastHeaderSize)
	EncodeFastHeader(buf, FastHeader{Length: 123, Sequence: 99})

	got, ok := DecodeFastHeader(buf)
	require.True(t, ok)
	assert.Equal(t, uint32(123), got.Length)
	assert.Equal(t, uint32(99), got.Sequence)
}

func TestFullHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, FullHeaderSize)
	want := FullHeader{
		SessionID:  7,
		Sequence:   1 << 40,
		MsgType:    Nak,
		Flags:      FlagNoCRC,
		PayloadLen: 0,
		Timestamp:  555,
		Checksum:   0xDEADBEEF,
	}
	EncodeFullHeader(buf, want)

	got, ok := DecodeFullHeader(buf, true)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFullHeaderUnknownTypeStrictVsLossy(t *testing.T) {
	buf := make([]byte, FullHeaderSize)
	EncodeFullHeader(buf, FullHeader{MsgType: MessageType(200)})

	_, ok := DecodeFullHeader(buf, true)
	assert.False(t, ok, "strict decoding must drop unknown message types")

	got, ok := DecodeFullHeader(buf, false)
	require.True(t, ok, "lossy decoding must coerce unknown types")
	assert.Equal(t, Data, got.MsgType)
}
