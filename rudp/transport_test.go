package rudp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportSendReceiveRoundTrip(t *testing.T) {
	serverT, err := NewTransport(&net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverT.Close()

	clientT, err := NewTransport(&net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer clientT.Close()

	serverAddr := serverT.LocalAddr().(*net.UDPAddr)
	clientAddr := clientT.LocalAddr().(*net.UDPAddr)

	client := NewSession(42, serverAddr, 8192, 4, 65536)
	client.state = Open
	clientT.AddSession(client)

	server := NewSession(42, clientAddr, 8192, 4, 65536)
	server.state = Open
	serverT.AddSession(server)

	sent, err := clientT.SendBatch(client, [][]byte{[]byte("ping payload")})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var got []byte
	require.Eventually(t, func() bool {
		n, err := serverT.ReceiveBatchWith(8, func(sessionID uint32, seq uint64, payload []byte) {
			got = payload
		})
		return err == nil && n > 0 && got != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []byte("ping payload"), got)

	// Drain the ack back on the client side.
	require.Eventually(t, func() bool {
		n, err := clientT.ReceiveBatchWith(8, func(uint32, uint64, []byte) {})
		return err == nil && (n >= 0)
	}, time.Second, 5*time.Millisecond)
}
