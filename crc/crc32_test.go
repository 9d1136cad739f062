package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainedChecksumMatchesConcatenation(t *testing.T) {
	header := []byte{0x01, 0x02, 0x03, 0x04}
	payload := []byte("hello world")

	chained := ChecksumChained(Checksum(header), payload)
	whole := Checksum(append(append([]byte{}, header...), payload...))

	assert.Equal(t, whole, chained)
}

func TestChecksumDeterministic(t *testing.T) {
	data := []byte("the quick brown fox")
	assert.Equal(t, Checksum(data), Checksum(data))
	assert.Equal(t, ScalarChecksum(data), ScalarChecksum(data))
}

func TestAcceleratedAndScalarAgree(t *testing.T) {
	// The table-driven (hardware-accelerated) path and the bit-by-bit
	// scalar path compute the same Castagnoli CRC32 and must agree.
	data := []byte("distinct polynomial fixture")
	assert.Equal(t, Checksum(data), ScalarChecksum(data))
}
