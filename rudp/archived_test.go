package rudp

import (
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArchivedSessionReplay is seed case 5: 10,000 payloads sent through an
// archived session, then replayed in full for a late-joining peer.
func TestArchivedSessionReplay(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9100}
	session := NewSession(1, addr, 8192, 4, 65536)
	session.state = Open

	base := filepath.Join(t.TempDir(), "tap")
	as, err := NewArchivedSession(session, base, 64*1024*1024, 8192)
	require.NoError(t, err)

	const total = 10000
	for i := 0; i < total; i++ {
		_, _, err := as.Send([]byte(fmt.Sprintf("msg-%d", i)))
		require.NoError(t, err)
	}
	as.WaitForArchive()

	assert.Equal(t, uint64(total), as.ArchivedSeq())

	var replayed []uint64
	err = as.Replay(0, total, func(seq uint64, frame []byte) {
		header, ok := DecodeFullHeader(frame, true)
		require.True(t, ok)
		assert.Equal(t, Data, header.MsgType)
		assert.NotZero(t, header.Flags&FlagReplay)
		replayed = append(replayed, seq)
	})
	require.NoError(t, err)
	assert.Len(t, replayed, total)

	require.NoError(t, as.Close())
}

func TestUnreliableSessionEncodeDecode(t *testing.T) {
	u := NewUnreliableSession(1)
	frame := u.Encode([]byte("multicast payload"))

	payload, seq, ok := u.Decode(frame)
	require.True(t, ok)
	assert.Equal(t, uint32(0), seq)
	assert.Equal(t, []byte("multicast payload"), payload)
}

func TestUnreliableSessionRejectsCorruptFrame(t *testing.T) {
	u := NewUnreliableSession(1)
	frame := u.Encode([]byte("data"))
	frame[len(frame)-1] ^= 0xFF

	_, _, ok := u.Decode(frame)
	assert.False(t, ok)
}
