package rudp

import (
	"net"

	"github.com/relaymesh/core/crc"
)

// UnreliableSession is the degenerate sibling described in §4.5's closing
// note: it reuses the fast 8-byte framing and the batch-syscall layer but
// skips window/NAK/retransmit/congestion bookkeeping entirely, matching a
// fire-and-forget multicast publisher where loss is acceptable and
// ordering is not guaranteed.
type UnreliableSession struct {
	sessionID uint32
	next      uint32
}

// NewUnreliableSession creates a session with no send/receive windows.
func NewUnreliableSession(sessionID uint32) *UnreliableSession {
	return &UnreliableSession{sessionID: sessionID}
}

// Encode frames payload with a fast header and an appended CRC32 trailer,
// with no retransmit bookkeeping and no delivery ordering guarantee.
func (u *UnreliableSession) Encode(payload []byte) []byte {
	frame := make([]byte, FastHeaderSize+len(payload)+4)
	EncodeFastHeader(frame, FastHeader{Length: uint32(len(payload)), Sequence: u.next})
	u.next++
	copy(frame[FastHeaderSize:], payload)
	checksum := crc.Checksum(payload)
	trailer := frame[len(frame)-4:]
	trailer[0] = byte(checksum)
	trailer[1] = byte(checksum >> 8)
	trailer[2] = byte(checksum >> 16)
	trailer[3] = byte(checksum >> 24)
	return frame
}

// Decode validates a fast-framed datagram's magic bit, length bounds, and
// trailer checksum, returning the payload and its sequence. Malformed or
// corrupt frames are reported via ok=false for the caller to drop silently.
func (u *UnreliableSession) Decode(buf []byte) (payload []byte, seq uint32, ok bool) {
	if len(buf) < FastHeaderSize+4 {
		return nil, 0, false
	}
	header, valid := DecodeFastHeader(buf)
	if !valid {
		return nil, 0, false
	}
	end := FastHeaderSize + int(header.Length)
	if end+4 != len(buf) {
		return nil, 0, false
	}
	payload = buf[FastHeaderSize:end]
	trailer := buf[end:]
	want := uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
	if crc.Checksum(payload) != want {
		return nil, 0, false
	}
	return payload, header.Sequence, true
}

// SendBatch fans payloads out to dst via the platform batch adapter,
// framing each with Encode first.
func (u *UnreliableSession) SendBatch(t *Transport, dst *net.UDPAddr, payloads [][]byte) (int, error) {
	frames := make([][]byte, len(payloads))
	for i, payload := range payloads {
		frames[i] = u.Encode(payload)
	}
	return t.sender.SendBatch(t.conn, dst, frames)
}
