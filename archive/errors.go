package archive

import "errors"

// Error kinds the archive surfaces (§7): malformed/corrupt input and
// capacity exhaustion are reported to the caller, never panicked.
var (
	ErrFull            = errors.New("archive: log capacity exhausted")
	ErrInvalidMagic     = errors.New("archive: invalid or foreign magic header")
	ErrCorrupted        = errors.New("archive: checksum mismatch")
	ErrInvalidSequence  = errors.New("archive: sequence out of range")
	ErrPayloadTooLarge  = errors.New("archive: payload exceeds async ring inline limit")
)
