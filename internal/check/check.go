// Package check provides the checksums used by the archive format: the
// reflected CRC-32 with polynomial 0xEDB88320 (the IEEE table, initial
// value and final XOR 0xFFFFFFFF) over uncompressed entry bytes, and
// Adler-32 as a utility. Only CRC-32 appears on disk.
package check

import (
	"hash"
	"hash/adler32"
	"hash/crc32"
)

// NewCRC32 returns a streaming CRC-32 digest.
func NewCRC32() hash.Hash32 {
	return crc32.NewIEEE()
}

// CRC32 returns the CRC-32 of p.
func CRC32(p []byte) uint32 {
	return crc32.ChecksumIEEE(p)
}

// NewAdler32 returns a streaming Adler-32 digest.
func NewAdler32() hash.Hash32 {
	return adler32.New()
}

// Adler32 returns the Adler-32 checksum of p.
func Adler32(p []byte) uint32 {
	return adler32.Checksum(p)
}
