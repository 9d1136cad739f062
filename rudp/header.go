package rudp

import "encoding/binary"

// MessageType identifies the purpose of a full-header frame. Values are
// wire-stable (§6.2).
type MessageType uint8

const (
	Data MessageType = iota
	Ack
	Nak
	Ping
	Pong
	Handshake
	Disconnect
)

// String renders the message type for logging.
func (t MessageType) String() string {
	switch t {
	case Data:
		return "Data"
	case Ack:
		return "Ack"
	case Nak:
		return "Nak"
	case Ping:
		return "Ping"
	case Pong:
		return "Pong"
	case Handshake:
		return "Handshake"
	case Disconnect:
		return "Disconnect"
	default:
		return "Unknown"
	}
}

// decodeMessageType maps a raw byte to a MessageType. strict rejects any
// value outside the known range (the receive-path default, §6.2); lossy
// decoding instead coerces unknown values to Data.
func decodeMessageType(raw byte, strict bool) (MessageType, bool) {
	if raw <= byte(Disconnect) {
		return MessageType(raw), true
	}
	if strict {
		return 0, false
	}
	return Data, true
}

const (
	// FastHeaderSize is the wire size of a fast frame header.
	FastHeaderSize = 8
	// FullHeaderSize is the wire size of a full frame header.
	FullHeaderSize = 24

	// fastLengthMagicBit marks a frame as fast-header-framed; it lives in
	// the high bit of the otherwise-plain length field (§6.2).
	fastLengthMagicBit = uint32(1) << 31

	// FlagNoCRC disables checksum verification for a frame (§3.4).
	FlagNoCRC uint8 = 0x01
)

// FastHeader is the 8-byte header: a magic-bit-tagged length plus a raw
// sequence number, used for the hottest, lowest-overhead framing path.
type FastHeader struct {
	Length   uint32
	Sequence uint32
}

// EncodeFastHeader writes h into buf[:8], tagging Length with the fast-frame
// magic bit.
func EncodeFastHeader(buf []byte, h FastHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Length|fastLengthMagicBit)
	binary.LittleEndian.PutUint32(buf[4:8], h.Sequence)
}

// DecodeFastHeader reads a fast header from buf[:8]. ok is false if the
// magic bit is not set, meaning buf actually holds a full header.
func DecodeFastHeader(buf []byte) (h FastHeader, ok bool) {
	raw := binary.LittleEndian.Uint32(buf[0:4])
	if raw&fastLengthMagicBit == 0 {
		return FastHeader{}, false
	}
	h.Length = raw &^ fastLengthMagicBit
	h.Sequence = binary.LittleEndian.Uint32(buf[4:8])
	return h, true
}

// FullHeader is the 24-byte header carrying session identity, message
// type, flags, payload length, a coarse timestamp for RTT sampling, and a
// checksum (§3.4).
type FullHeader struct {
	SessionID  uint32
	Sequence   uint64
	MsgType    MessageType
	Flags      uint8
	PayloadLen uint16
	Timestamp  uint32
	Checksum   uint32
}

// EncodeFullHeader writes h into buf[:24]. The checksum field is written
// as-is; callers that need the checksum-over-zeroed-checksum convention
// (§3.4) must zero h.Checksum before computing it and before this call.
func EncodeFullHeader(buf []byte, h FullHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.SessionID)
	binary.LittleEndian.PutUint64(buf[4:12], h.Sequence)
	buf[12] = byte(h.MsgType)
	buf[13] = h.Flags
	binary.LittleEndian.PutUint16(buf[14:16], h.PayloadLen)
	binary.LittleEndian.PutUint32(buf[16:20], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[20:24], h.Checksum)
}

// DecodeFullHeader reads a full header from buf[:24]. strict controls how
// an out-of-range MsgType byte is handled: strict decoding reports ok=false
// (frame dropped), lossy decoding coerces it to Data.
func DecodeFullHeader(buf []byte, strict bool) (h FullHeader, ok bool) {
	msgType, valid := decodeMessageType(buf[12], strict)
	if !valid {
		return FullHeader{}, false
	}
	h.SessionID = binary.LittleEndian.Uint32(buf[0:4])
	h.Sequence = binary.LittleEndian.Uint64(buf[4:12])
	h.MsgType = msgType
	h.Flags = buf[13]
	h.PayloadLen = binary.LittleEndian.Uint16(buf[14:16])
	h.Timestamp = binary.LittleEndian.Uint32(buf[16:20])
	h.Checksum = binary.LittleEndian.Uint32(buf[20:24])
	return h, true
}

// checksumZeroedHeader returns a copy of buf[:24] with the checksum field
// (bytes 20:24) zeroed, for chaining the header into the payload checksum.
func checksumZeroedHeader(buf []byte) [FullHeaderSize]byte {
	var zeroed [FullHeaderSize]byte
	copy(zeroed[:], buf[:FullHeaderSize])
	zeroed[20] = 0
	zeroed[21] = 0
	zeroed[22] = 0
	zeroed[23] = 0
	return zeroed
}
