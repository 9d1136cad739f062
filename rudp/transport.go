package rudp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultBatch is the default sendmmsg/recvmmsg batch size (§6.3).
const DefaultBatch = 64

// Transport owns one UDP socket and the sessions multiplexed over it.
// Sends and receives go through the platform batch adapter (§4.7); session
// bookkeeping (windows, acks, naks, congestion) lives in Session (§4.5).
type Transport struct {
	conn   *net.UDPConn
	sender batchSender
	recver batchReceiver
	batch  int
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[uint32]*Session
}

// TransportOption configures optional Transport behavior.
type TransportOption func(*Transport)

// WithBatchSize overrides the default sendmmsg/recvmmsg batch size.
func WithBatchSize(n int) TransportOption {
	return func(t *Transport) { t.batch = n }
}

// WithTransportLogger attaches a structured logger to the transport.
func WithTransportLogger(logger *zap.Logger) TransportOption {
	return func(t *Transport) { t.logger = logger }
}

// NewTransport binds a UDP socket at localAddr and selects the
// platform-appropriate batch adapter.
func NewTransport(localAddr *net.UDPAddr, opts ...TransportOption) (*Transport, error) {
	conn, err := net.ListenUDP("udp4", localAddr)
	if err != nil {
		return nil, fmt.Errorf("rudp: listen: %w", err)
	}
	sender, recver := newPlatformBatch()
	t := &Transport{
		conn:     conn,
		sender:   sender,
		recver:   recver,
		batch:    DefaultBatch,
		logger:   zap.NewNop(),
		sessions: make(map[uint32]*Session),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// LocalAddr returns the transport's bound address.
func (t *Transport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// AddSession registers a session for inbound dispatch by session id.
func (t *Transport) AddSession(s *Session) {
	t.mu.Lock()
	t.sessions[s.SessionID] = s
	t.mu.Unlock()
}

// RemoveSession unregisters a session.
func (t *Transport) RemoveSession(id uint32) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// Session looks up a registered session by id.
func (t *Transport) Session(id uint32) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

// SendBatch claims sequences for each payload on session, frames them, and
// hands the frames to the batch-syscall layer in one shot. Returns
// ErrWindowFull (from the underlying Session.Send) as soon as the window is
// exhausted, having already sent whatever fit.
func (t *Transport) SendBatch(session *Session, payloads [][]byte) (sent int, err error) {
	frames := make([][]byte, 0, len(payloads))
	for _, payload := range payloads {
		frame, _, sendErr := session.Send(payload)
		if sendErr != nil {
			err = sendErr
			break
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return 0, err
	}
	n, sendErr := t.sender.SendBatch(t.conn, session.Peer, frames)
	if sendErr != nil {
		return n, fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
	}
	if err != nil {
		return n, err
	}
	return n, nil
}

// sendRaw ships already-framed bytes (acks, naks, retransmits, handshakes)
// to a peer without going through Session.Send's sequence claiming.
func (t *Transport) sendRaw(peer *net.UDPAddr, frames [][]byte) error {
	if len(frames) == 0 {
		return nil
	}
	_, err := t.sender.SendBatch(t.conn, peer, frames)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// ReceiveBatchWith reads up to max datagrams, dispatches each to its
// session, invokes handler for every in-order Data delivery, and replies
// with any acks/naks/retransmits the sessions produced (§4.5).
func (t *Transport) ReceiveBatchWith(max int, handler func(sessionID uint32, seq uint64, payload []byte)) (int, error) {
	if max <= 0 {
		max = t.batch
	}
	bufs := make([][]byte, max)
	for i := range bufs {
		bufs[i] = make([]byte, 65536)
	}

	n, froms, err := t.recver.ReceiveBatch(t.conn, max, bufs)
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		datagram := bufs[i]
		if len(datagram) < FullHeaderSize {
			continue // malformed, dropped silently per §4.5 step 1
		}
		sessionID, ok := peekSessionID(datagram)
		if !ok {
			continue
		}

		t.mu.Lock()
		session, found := t.sessions[sessionID]
		t.mu.Unlock()
		if !found {
			continue
		}
		if session.Peer != nil && froms[i] != nil && !addrEqual(session.Peer, froms[i]) {
			continue
		}

		result := session.HandleInbound(datagram)
		for _, d := range result.Deliveries {
			handler(sessionID, d.Sequence, d.Payload)
		}
		if len(result.Outbound) > 0 {
			_ = t.sendRaw(session.Peer, result.Outbound)
		}
	}
	return n, nil
}

// TickAll drives every registered session's time-based speculative
// retransmit logic (§4.5) and sends whatever each session produces.
func (t *Transport) TickAll(now time.Time) {
	t.mu.Lock()
	sessions := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()

	for _, s := range sessions {
		if frames := s.Tick(now); len(frames) > 0 {
			_ = t.sendRaw(s.Peer, frames)
		}
	}
}

// Close releases the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func peekSessionID(buf []byte) (uint32, bool) {
	if len(buf) < 4 {
		return 0, false
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, true
}

func addrEqual(a, b *net.UDPAddr) bool {
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
