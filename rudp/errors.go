package rudp

import "errors"

// Error kinds the transport surfaces (§7). Malformed or unverifiable
// inbound frames are dropped silently rather than returned as errors; no
// count of dropped frames is kept. These sentinels cover caller-facing
// failures only.
var (
	ErrWindowFull       = errors.New("rudp: send window full")
	ErrSendFailed       = errors.New("rudp: underlying socket send failed")
	ErrInvalidFrame     = errors.New("rudp: malformed frame")
	ErrChecksumMismatch = errors.New("rudp: checksum mismatch")
	ErrPeerMismatch     = errors.New("rudp: datagram did not originate from the session peer")
	ErrSessionClosed    = errors.New("rudp: session is closed")
	ErrIPv6Unsupported  = errors.New("rudp: IPv6 destinations are not supported by the batch sender")
	ErrBufferFull       = errors.New("rudp: archival tap ring is full")
)
