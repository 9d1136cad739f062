package rudp

import "net"

// batchSender/batchReceiver are implemented per-platform (batch_linux.go
// wraps sendmmsg/recvmmsg; batch_other.go falls back to sequential
// send_to/recv_from) so Transport stays platform-agnostic (§4.7).
type batchSender interface {
	SendBatch(conn *net.UDPConn, dst *net.UDPAddr, frames [][]byte) (int, error)
}

type batchReceiver interface {
	ReceiveBatch(conn *net.UDPConn, max int, buf [][]byte) (received int, froms []*net.UDPAddr, err error)
}
