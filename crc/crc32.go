// Package crc implements the integrity layer (§4.8): CRC32 checksums over
// archive frames and RUDP headers, with both a scalar path and a
// hardware-accelerated one that must agree bit-for-bit.
package crc

import "hash/crc32"

// castagnoliTable selects the Castagnoli polynomial, which the Go runtime
// accelerates with the SSE4.2 CRC32 instruction on amd64 and the ARMv8 CRC
// extension on arm64 (see hash/crc32's internal dispatch). This is the
// "vendored SIMD implementation" spec §4.8 asks for — supplied by the
// toolchain rather than a third-party package, since nothing in this
// module's dependency graph ships a CRC32 SIMD implementation in Go.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the accelerated CRC32 (Castagnoli) of payload. This is
// the checksum archive frames and RUDP headers use on the wire and on
// disk.
func Checksum(payload []byte) uint32 {
	return crc32.Checksum(payload, castagnoliTable)
}

// ScalarChecksum computes the same Castagnoli CRC32 as Checksum, one bit at
// a time in plain Go with no lookup table and no hardware instruction. It
// gives the accelerated path an independent implementation to be tested
// against bit for bit.
func ScalarChecksum(payload []byte) uint32 {
	crc := ^uint32(0)
	for _, b := range payload {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crc32.Castagnoli
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

// ChecksumChained continues a Castagnoli CRC32 computation begun with crc,
// the incremental variant used to checksum a header and its payload as one
// chained value without concatenating the two byte slices (§3.4: "checksum
// covers the header with the checksum field zeroed, chained incrementally
// into the payload").
func ChecksumChained(crc uint32, payload []byte) uint32 {
	return crc32.Update(crc, castagnoliTable, payload)
}
