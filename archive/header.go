// Package archive implements the crash-durable append-only mmap log (L3)
// and its asynchronous bounded-ring front-end (L4): §3.3, §4.3, §4.4, and
// the bit-exact wire layout in §6.1.
package archive

import "encoding/binary"

// Magic is the log file's magic number, per §6.1. Stored little-endian, its
// eight bytes on disk read "GOLSOAK\0" ("KAOSLOG" in reverse, then a NUL).
const Magic uint64 = 0x004b414f534c4f47

const (
	headerSize      = 64
	frameHeaderSize = 8
	indexEntrySize  = 16
	currentVersion  = 1

	// headerSyncInterval is the append count between header resyncs
	// (§4.3: "every 1,024th append syncs the header").
	headerSyncInterval = 1024
)

// header documents the 64-byte log file header laid out exactly as §6.1
// describes it. The struct has no fields; the accessor functions below read
// and write these byte ranges of the mapped log with encoding/binary.
//
//	0x00  8   magic
//	0x08  4   version
//	0x0C  4   reserved
//	0x10  8   write_pos
//	0x18  8   msg_count
//	0x20  32  padding
type header struct{}

func readMagic(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf[0x00:0x08]) }
func writeMagic(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf[0x00:0x08], v) }

func readVersion(buf []byte) uint32   { return binary.LittleEndian.Uint32(buf[0x08:0x0C]) }
func writeVersion(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf[0x08:0x0C], v) }

func readWritePos(buf []byte) uint64    { return binary.LittleEndian.Uint64(buf[0x10:0x18]) }
func writeWritePos(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf[0x10:0x18], v) }

func readMsgCount(buf []byte) uint64    { return binary.LittleEndian.Uint64(buf[0x18:0x20]) }
func writeMsgCount(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf[0x18:0x20], v) }

// frame is [u32 length][u32 checksum][payload], written starting at the
// offset named by an index entry.
func writeFrameHeader(buf []byte, at int, length uint32, checksum uint32) {
	binary.LittleEndian.PutUint32(buf[at:at+4], length)
	binary.LittleEndian.PutUint32(buf[at+4:at+8], checksum)
}

func readFrameLength(buf []byte, at int) uint32 {
	return binary.LittleEndian.Uint32(buf[at : at+4])
}

func readFrameChecksum(buf []byte, at int) uint32 {
	return binary.LittleEndian.Uint32(buf[at+4 : at+8])
}

// index entries: [u64 offset][u32 length][u32 reserved], 16 bytes, one per
// sequence.
func writeIndexEntry(buf []byte, seq uint64, offset uint64, length uint32) {
	at := int(seq) * indexEntrySize
	binary.LittleEndian.PutUint64(buf[at:at+8], offset)
	binary.LittleEndian.PutUint32(buf[at+8:at+12], length)
	binary.LittleEndian.PutUint32(buf[at+12:at+16], 0)
}

func readIndexEntry(buf []byte, seq uint64) (offset uint64, length uint32) {
	at := int(seq) * indexEntrySize
	offset = binary.LittleEndian.Uint64(buf[at : at+8])
	length = binary.LittleEndian.Uint32(buf[at+8 : at+12])
	return offset, length
}
