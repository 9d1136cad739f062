package archive

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaymesh/core/crc"
)

// SyncArchive is a crash-safe mmap'd append-only log: a log file of
// length-prefixed, checksummed frames plus a flat index file mapping
// sequence number to byte offset (§3.3, §4.3).
type SyncArchive struct {
	logFile *os.File
	idxFile *os.File
	log     mmap.MMap
	idx     mmap.MMap

	capacity int
	writePos int
	msgCount uint64

	appendsSinceSync int
	traceID          uuid.UUID
	logger           *zap.Logger
}

// Option configures optional behavior of a SyncArchive.
type Option func(*SyncArchive)

// WithLogger attaches a structured logger; the default is a no-op logger
// so construction never requires one.
func WithLogger(logger *zap.Logger) Option {
	return func(a *SyncArchive) { a.logger = logger }
}

// Create truncates/preallocates basePath+".log" to capacity bytes (the
// 64-byte header included) and basePath+".idx" to capacity/64 index
// entries, and writes the magic header.
func Create(basePath string, capacity int, opts ...Option) (*SyncArchive, error) {
	logPath := basePath + ".log"
	idxPath := basePath + ".idx"

	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("archive: create log file: %w", err)
	}
	if err := logFile.Truncate(int64(capacity)); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("archive: size log file: %w", err)
	}

	indexCapacity := (capacity / 64) * indexEntrySize
	idxFile, err := os.OpenFile(idxPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("archive: create index file: %w", err)
	}
	if err := idxFile.Truncate(int64(indexCapacity)); err != nil {
		logFile.Close()
		idxFile.Close()
		return nil, fmt.Errorf("archive: size index file: %w", err)
	}

	logMmap, err := mmap.Map(logFile, mmap.RDWR, 0)
	if err != nil {
		logFile.Close()
		idxFile.Close()
		return nil, fmt.Errorf("archive: mmap log file: %w", err)
	}
	idxMmap, err := mmap.Map(idxFile, mmap.RDWR, 0)
	if err != nil {
		logMmap.Unmap()
		logFile.Close()
		idxFile.Close()
		return nil, fmt.Errorf("archive: mmap index file: %w", err)
	}

	writeMagic(logMmap, Magic)
	writeVersion(logMmap, currentVersion)
	writeWritePos(logMmap, headerSize)
	writeMsgCount(logMmap, 0)

	a := &SyncArchive{
		logFile:  logFile,
		idxFile:  idxFile,
		log:      logMmap,
		idx:      idxMmap,
		capacity: capacity,
		writePos: headerSize,
		msgCount: 0,
		traceID:  uuid.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("archive created", zap.String("path", basePath), zap.Int("capacity", capacity), zap.String("trace_id", a.traceID.String()))
	return a, nil
}

// Open maps existing log and index files for basePath and validates the
// magic header.
func Open(basePath string, opts ...Option) (*SyncArchive, error) {
	logPath := basePath + ".log"
	idxPath := basePath + ".idx"

	logFile, err := os.OpenFile(logPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("archive: open log file: %w", err)
	}
	idxFile, err := os.OpenFile(idxPath, os.O_RDWR, 0o644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("archive: open index file: %w", err)
	}

	info, err := logFile.Stat()
	if err != nil {
		logFile.Close()
		idxFile.Close()
		return nil, fmt.Errorf("archive: stat log file: %w", err)
	}

	logMmap, err := mmap.Map(logFile, mmap.RDWR, 0)
	if err != nil {
		logFile.Close()
		idxFile.Close()
		return nil, fmt.Errorf("archive: mmap log file: %w", err)
	}
	idxMmap, err := mmap.Map(idxFile, mmap.RDWR, 0)
	if err != nil {
		logMmap.Unmap()
		logFile.Close()
		idxFile.Close()
		return nil, fmt.Errorf("archive: mmap index file: %w", err)
	}

	if readMagic(logMmap) != Magic {
		logMmap.Unmap()
		idxMmap.Unmap()
		logFile.Close()
		idxFile.Close()
		return nil, ErrInvalidMagic
	}

	a := &SyncArchive{
		logFile:  logFile,
		idxFile:  idxFile,
		log:      logMmap,
		idx:      idxMmap,
		capacity: int(info.Size()),
		writePos: int(readWritePos(logMmap)),
		msgCount: readMsgCount(logMmap),
		traceID:  uuid.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Append writes data with a CRC32 checksum and an index entry (§4.3 rung
// 1: safest, slowest).
func (a *SyncArchive) Append(data []byte) (uint64, error) {
	return a.appendInner(data, true, true)
}

// AppendNoCRC writes data without a checksum but still updates the index
// (§4.3 rung 2).
func (a *SyncArchive) AppendNoCRC(data []byte) (uint64, error) {
	return a.appendInner(data, false, true)
}

// AppendNoIndex writes data without a checksum or an index entry (§4.3
// rung 3: fastest, sequential replay only).
func (a *SyncArchive) AppendNoIndex(data []byte) (uint64, error) {
	return a.appendInner(data, false, false)
}

// AppendUnchecked skips the capacity check the other append variants
// perform. The caller must have already proven writePos+8+len(data) fits;
// violating that corrupts the archive.
func (a *SyncArchive) AppendUnchecked(data []byte) uint64 {
	seq := a.msgCount
	pos := a.writePos
	a.writeFrame(pos, seq, data, false, false)
	a.writePos = pos + frameHeaderSize + len(data)
	a.msgCount = seq + 1
	return seq
}

func (a *SyncArchive) appendInner(data []byte, withCRC, withIndex bool) (uint64, error) {
	seq := a.msgCount
	pos := a.writePos
	newPos := pos + frameHeaderSize + len(data)

	if newPos > a.capacity {
		return 0, ErrFull
	}
	if withIndex && (int(seq)+1)*indexEntrySize > len(a.idx) {
		return 0, ErrFull
	}

	a.writeFrame(pos, seq, data, withCRC, withIndex)

	a.writePos = newPos
	a.msgCount = seq + 1
	a.appendsSinceSync++

	if a.appendsSinceSync >= headerSyncInterval {
		a.syncHeader()
		a.appendsSinceSync = 0
	}

	return seq, nil
}

func (a *SyncArchive) writeFrame(pos int, seq uint64, data []byte, withCRC, withIndex bool) {
	var checksum uint32
	if withCRC {
		checksum = crc.Checksum(data)
	}
	writeFrameHeader(a.log, pos, uint32(len(data)), checksum)
	copy(a.log[pos+frameHeaderSize:pos+frameHeaderSize+len(data)], data)

	if withIndex {
		idxOffset := int(seq) * indexEntrySize
		if idxOffset+indexEntrySize <= len(a.idx) {
			writeIndexEntry(a.idx, seq, uint64(pos), uint32(len(data)))
		}
	}
}

// Read returns the payload for seq after verifying its checksum.
func (a *SyncArchive) Read(seq uint64) ([]byte, error) {
	payload, offset, err := a.rawRead(seq)
	if err != nil {
		return nil, err
	}
	checksum := readFrameChecksum(a.log, offset)
	if crc.Checksum(payload) != checksum {
		return nil, ErrCorrupted
	}
	return payload, nil
}

// ReadNoVerify returns the payload for seq without checking its checksum.
func (a *SyncArchive) ReadNoVerify(seq uint64) ([]byte, error) {
	payload, _, err := a.rawRead(seq)
	return payload, err
}

// ReadUnchecked returns the payload for seq without validating that seq is
// in range. The caller must ensure seq < Len().
func (a *SyncArchive) ReadUnchecked(seq uint64) []byte {
	offset, length := readIndexEntry(a.idx, seq)
	start := int(offset) + frameHeaderSize
	return a.log[start : start+int(length)]
}

func (a *SyncArchive) rawRead(seq uint64) (payload []byte, frameOffset int, err error) {
	if seq >= a.msgCount {
		return nil, 0, ErrInvalidSequence
	}
	offset, length := readIndexEntry(a.idx, seq)
	start := int(offset) + frameHeaderSize
	return a.log[start : start+int(length)], int(offset), nil
}

// Len returns the number of successfully appended messages.
func (a *SyncArchive) Len() uint64 { return a.msgCount }

// IsEmpty reports whether Len() == 0.
func (a *SyncArchive) IsEmpty() bool { return a.msgCount == 0 }

// Flush forces an msync of both the log and index mappings.
func (a *SyncArchive) Flush() error {
	if err := a.log.Flush(); err != nil {
		return fmt.Errorf("archive: flush log: %w", err)
	}
	if err := a.idx.Flush(); err != nil {
		return fmt.Errorf("archive: flush index: %w", err)
	}
	return nil
}

// syncHeader resyncs write_pos and msg_count into the mapped header. The
// archive is single-writer, so a plain store is sufficient; durability
// itself is a property of the subsequent Flush or of the OS page cache on
// ordinary process exit.
func (a *SyncArchive) syncHeader() {
	writeWritePos(a.log, uint64(a.writePos))
	writeMsgCount(a.log, a.msgCount)
}

// Close persists the header and unmaps both files.
func (a *SyncArchive) Close() error {
	a.syncHeader()
	if err := a.log.Unmap(); err != nil {
		return fmt.Errorf("archive: unmap log: %w", err)
	}
	if err := a.idx.Unmap(); err != nil {
		return fmt.Errorf("archive: unmap index: %w", err)
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	return a.idxFile.Close()
}
