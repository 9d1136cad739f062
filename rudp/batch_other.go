//go:build !linux

package rudp

import "net"

// sequentialBatch is the non-Linux fallback: one send_to/recv_from per
// datagram instead of a single sendmmsg/recvmmsg syscall (§4.7).
type sequentialBatch struct{}

func newPlatformBatch() (batchSender, batchReceiver) {
	b := sequentialBatch{}
	return b, b
}

// SendBatch sends each frame with its own WriteTo call. IPv6 destinations
// are rejected for parity with the Linux sender (§4.7).
func (sequentialBatch) SendBatch(conn *net.UDPConn, dst *net.UDPAddr, frames [][]byte) (int, error) {
	if dst.IP.To4() == nil {
		return 0, ErrIPv6Unsupported
	}
	sent := 0
	for _, frame := range frames {
		if _, err := conn.WriteToUDP(frame, dst); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// ReceiveBatch reads up to max datagrams with individual ReadFromUDP
// calls, stopping at the first read that times out. The socket is left in
// blocking mode, so a read times out only when the caller has set a read
// deadline on conn; without one, each read waits for a datagram.
func (sequentialBatch) ReceiveBatch(conn *net.UDPConn, max int, buf [][]byte) (int, []*net.UDPAddr, error) {
	if max > len(buf) {
		max = len(buf)
	}
	var froms []*net.UDPAddr
	received := 0
	for i := 0; i < max; i++ {
		n, from, err := conn.ReadFromUDP(buf[i])
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			if received == 0 {
				return 0, nil, err
			}
			break
		}
		buf[i] = buf[i][:n]
		froms = append(froms, from)
		received++
	}
	return received, froms, nil
}
