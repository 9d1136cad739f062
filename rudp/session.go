package rudp

import (
	"net"
	"time"

	"github.com/agilira/go-timecache"
	"go.uber.org/zap"

	"github.com/relaymesh/core/crc"
)

// State is the session's connection-lifecycle state (§4.5 state machine).
type State int

const (
	Closed State = iota
	Opening
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

type retransmitEntry struct {
	frame []byte
	sent  time.Time
}

// Delivery is one in-order payload handed up from the receive path.
type Delivery struct {
	Sequence uint64
	Payload  []byte
}

// InboundResult is what HandleInbound returns after processing a single
// datagram: zero or more in-order deliveries, plus zero or more outbound
// frames (acks, naks, retransmits, pongs) the caller must send back.
type InboundResult struct {
	Deliveries []Delivery
	Outbound   [][]byte
}

// Session is one RUDP endpoint pair: a send window with a retransmit
// buffer, a receive window with out-of-order buffering, an expected-next
// counter, and AIMD congestion state (§3.4).
type Session struct {
	SessionID uint32
	Peer      *net.UDPAddr

	state State

	sendNext    uint64
	retransmit  map[uint64]retransmitEntry
	window      uint32
	retainAfter time.Duration

	recvExpected uint64
	recvBuffer   map[uint64][]byte

	congestion *Congestion
	clock      *timecache.TimeCache
	logger     *zap.Logger

	strict bool
}

// SessionOption configures optional Session behavior.
type SessionOption func(*Session)

// WithLogger attaches a structured logger to the session.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithLossyDecoding disables strict message-type rejection, coercing
// unknown type bytes to Data instead of dropping the frame (§6.2).
func WithLossyDecoding() SessionOption {
	return func(s *Session) { s.strict = false }
}

// NewSession builds a Closed session for peer, with the given max in-flight
// window and AIMD floor/ceiling.
func NewSession(sessionID uint32, peer *net.UDPAddr, window, minWindow, maxWindow uint32, opts ...SessionOption) *Session {
	s := &Session{
		SessionID:   sessionID,
		Peer:        peer,
		state:       Closed,
		retransmit:  make(map[uint64]retransmitEntry),
		window:      window,
		retainAfter: 30 * time.Second,
		recvBuffer:  make(map[uint64][]byte),
		congestion:  NewCongestion(minWindow, maxWindow),
		clock:       timecache.NewWithResolution(time.Millisecond),
		logger:      zap.NewNop(),
		strict:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Congestion exposes the session's AIMD controller for inspection/metrics.
func (s *Session) Congestion() *Congestion { return s.congestion }

// ExpectedNext returns the next in-order sequence the receive path awaits.
func (s *Session) ExpectedNext() uint64 { return s.recvExpected }

// OpenHandshake transitions Closed -> Opening and returns the Handshake
// frame to send.
func (s *Session) OpenHandshake() []byte {
	s.state = Opening
	return s.buildControlFrame(Handshake, 0)
}

// AcceptHandshake transitions a peer's incoming Handshake straight to Open
// (server side of the handshake) and returns the ack-equivalent Handshake
// reply.
func (s *Session) AcceptHandshake() []byte {
	s.state = Open
	return s.buildControlFrame(Handshake, 0)
}

// Ping returns a keep-alive frame stamped with the current time, whose
// echoed Pong timestamp is used for an extra RTT sample (§4.5).
func (s *Session) Ping() []byte {
	return s.buildControlFrame(Ping, s.nowMillis())
}

// Close transitions to Closed and returns the Disconnect frame to send.
func (s *Session) Close() []byte {
	s.state = Closed
	return s.buildControlFrame(Disconnect, 0)
}

// Send claims the next sequence, frames payload as a Data frame, stashes a
// copy in the retransmit buffer, and returns the wire bytes. It fails with
// ErrWindowFull when the session's in-flight window is full or the
// congestion controller forbids another in-flight send, and
// ErrSessionClosed outside the Open state.
func (s *Session) Send(payload []byte) (frame []byte, seq uint64, err error) {
	if s.state != Open {
		return nil, 0, ErrSessionClosed
	}
	if uint64(s.congestion.InFlight()) >= uint64(s.window) || !s.congestion.CanSend() {
		return nil, 0, ErrWindowFull
	}

	seq = s.sendNext
	s.sendNext++
	frame = s.encodeData(seq, payload, false)

	s.retransmit[seq] = retransmitEntry{frame: frame, sent: s.now()}
	s.congestion.OnSend()
	s.evictStale()
	return frame, seq, nil
}

// Tick drives time-based behavior that has no corresponding inbound
// datagram: speculative retransmits for sequences unacked past
// max(3*rtt, 10ms) (§4.5).
func (s *Session) Tick(now time.Time) [][]byte {
	var retransmits [][]byte
	timeout := s.congestion.RetransmitTimeout()
	for seq, entry := range s.retransmit {
		if now.Sub(entry.sent) >= timeout {
			entry.sent = now
			s.retransmit[seq] = entry
			retransmits = append(retransmits, entry.frame)
		}
	}
	return retransmits
}

// HandleInbound decodes one datagram and dispatches it per §4.5's five
// rules, returning any payloads ready for delivery and any frames the
// caller must send in response.
func (s *Session) HandleInbound(buf []byte) InboundResult {
	var result InboundResult

	if len(buf) < FullHeaderSize {
		return result
	}
	header, ok := DecodeFullHeader(buf, s.strict)
	if !ok {
		return result
	}
	payloadEnd := FullHeaderSize + int(header.PayloadLen)
	if payloadEnd > len(buf) {
		return result
	}
	payload := buf[FullHeaderSize:payloadEnd]

	if header.Flags&FlagNoCRC == 0 {
		zeroed := checksumZeroedHeader(buf)
		expected := crc.ChecksumChained(crc.Checksum(zeroed[:]), payload)
		if expected != header.Checksum {
			return result
		}
	}

	switch header.MsgType {
	case Data:
		s.handleData(header, payload, &result)
	case Ack:
		s.handleAck(header)
	case Nak:
		s.handleNak(header, &result)
	case Ping:
		result.Outbound = append(result.Outbound, s.buildControlFrame(Pong, header.Timestamp))
	case Pong:
		sample := time.Duration(uint32(s.nowMillis())-header.Timestamp) * time.Millisecond
		s.congestion.OnAck(sample, 0)
	case Handshake:
		if s.state == Opening {
			s.state = Open
		}
	case Disconnect:
		s.state = Closed
	}
	return result
}

func (s *Session) handleData(header FullHeader, payload []byte, result *InboundResult) {
	seq := header.Sequence
	switch {
	case seq < s.recvExpected:
		return // duplicate
	case seq == s.recvExpected:
		cp := append([]byte(nil), payload...)
		result.Deliveries = append(result.Deliveries, Delivery{Sequence: seq, Payload: cp})
		s.recvExpected++
		for {
			buffered, ok := s.recvBuffer[s.recvExpected]
			if !ok {
				break
			}
			delete(s.recvBuffer, s.recvExpected)
			result.Deliveries = append(result.Deliveries, Delivery{Sequence: s.recvExpected, Payload: buffered})
			s.recvExpected++
		}
		result.Outbound = append(result.Outbound, s.buildDataTypedControl(Ack, s.recvExpected-1, 0))
	default:
		cp := append([]byte(nil), payload...)
		s.recvBuffer[seq] = cp
		result.Outbound = append(result.Outbound, s.buildNak(s.recvExpected))
	}
}

func (s *Session) handleAck(header FullHeader) {
	now := s.now()
	acked := 0
	var sample time.Duration
	for seq, entry := range s.retransmit {
		if seq > header.Sequence {
			continue
		}
		if seq == header.Sequence {
			sample = now.Sub(entry.sent)
		}
		delete(s.retransmit, seq)
		acked++
	}
	if acked > 0 {
		s.congestion.OnAck(sample, acked)
	}
}

func (s *Session) handleNak(header FullHeader, result *InboundResult) {
	entry, ok := s.retransmit[header.Sequence]
	if !ok {
		return // evicted, lost
	}
	s.congestion.OnLoss(s.now())
	entry.sent = s.now()
	s.retransmit[header.Sequence] = entry
	result.Outbound = append(result.Outbound, entry.frame)
}

func (s *Session) buildNak(seq uint64) []byte {
	return s.buildDataTypedControl(Nak, seq, 0)
}

func (s *Session) buildControlFrame(msgType MessageType, timestamp uint32) []byte {
	if timestamp == 0 {
		timestamp = s.nowMillis()
	}
	return s.encodeControl(msgType, s.sendNext, timestamp, nil)
}

func (s *Session) buildDataTypedControl(msgType MessageType, seq uint64, timestamp uint32) []byte {
	if timestamp == 0 {
		timestamp = s.nowMillis()
	}
	return s.encodeControl(msgType, seq, timestamp, nil)
}

func (s *Session) encodeData(seq uint64, payload []byte, noCRC bool) []byte {
	flags := uint8(0)
	if noCRC {
		flags = FlagNoCRC
	}
	return s.encodeFrame(Data, seq, s.nowMillis(), payload, flags)
}

// encodeReplayFrame builds a Data frame for a sequence synthesized from the
// archive rather than the live retransmit buffer, tagged with FlagReplay to
// mark it as archive-synthesized (§4.6). The receive path does not inspect
// the flag.
func (s *Session) encodeReplayFrame(seq uint64, payload []byte) []byte {
	return s.encodeFrame(Data, seq, s.nowMillis(), payload, FlagReplay)
}

func (s *Session) encodeControl(msgType MessageType, seq uint64, timestamp uint32, payload []byte) []byte {
	return s.encodeFrame(msgType, seq, timestamp, payload, 0)
}

func (s *Session) encodeFrame(msgType MessageType, seq uint64, timestamp uint32, payload []byte, flags uint8) []byte {
	frame := make([]byte, FullHeaderSize+len(payload))
	header := FullHeader{
		SessionID:  s.SessionID,
		Sequence:   seq,
		MsgType:    msgType,
		Flags:      flags,
		PayloadLen: uint16(len(payload)),
		Timestamp:  timestamp,
	}
	EncodeFullHeader(frame, header)
	copy(frame[FullHeaderSize:], payload)

	if flags&FlagNoCRC == 0 {
		zeroed := checksumZeroedHeader(frame)
		checksum := crc.ChecksumChained(crc.Checksum(zeroed[:]), payload)
		frame[20] = byte(checksum)
		frame[21] = byte(checksum >> 8)
		frame[22] = byte(checksum >> 16)
		frame[23] = byte(checksum >> 24)
	}
	return frame
}

func (s *Session) evictStale() {
	cutoff := s.now().Add(-s.retainAfter)
	for seq, entry := range s.retransmit {
		if entry.sent.Before(cutoff) {
			delete(s.retransmit, seq)
		}
	}
}

func (s *Session) now() time.Time { return s.clock.CachedTime() }

func (s *Session) nowMillis() uint32 { return uint32(s.clock.CachedTime().UnixMilli()) }

// Shutdown stops the session's cached clock. Safe to call once, after the
// session is no longer in use.
func (s *Session) Shutdown() {
	s.clock.Stop()
}
