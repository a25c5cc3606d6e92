package lark

import (
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Method identifies an entry's compression codec. The value is the
// CompressionMethod byte stored in the central directory.
type Method uint8

const (
	Store Method = iota
	LZSS
	LZHUF
	Deflate
	LZW
	LZ77

	numMethods
)

var methodNames = [numMethods]string{"store", "lzss", "lzhuf", "deflate", "lzw", "lz77"}

func (m Method) String() string {
	if m < numMethods {
		return methodNames[m]
	}
	return "unknown"
}

// ParseMethod returns the method named by s (as printed by String).
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if strings.EqualFold(s, name) {
			return Method(i), nil
		}
	}
	return 0, xerrors.Errorf("unknown compression method %q", s)
}

const (
	// MaxNameLength bounds the encoded entry name in bytes.
	MaxNameLength = 260

	// MaxCompressedSize is the per-entry stored size limit imposed by
	// the u32 CompressedSize field.
	MaxCompressedSize = 1<<32 - 1

	// ExpansionLimit is the highest original:compressed ratio the
	// engine accepts, at Add and at Open. Entries beyond it look like
	// decompression bombs.
	ExpansionLimit = 1000
)

// Entry describes one stored file. Entries are created by Add, removed
// by Delete, and persisted by Save.
type Entry struct {
	// Name is the stored name. The engine treats it as opaque bytes
	// (preserved byte-for-byte); it only enforces the length bounds.
	Name string

	// OriginalSize is the uncompressed byte count.
	OriginalSize int64

	// CompressedSize is the stored byte count.
	CompressedSize uint32

	// CRC32 covers the uncompressed bytes.
	CRC32 uint32

	// ModTime is the source file's modification time at Add.
	ModTime time.Time

	// FileOffset is the absolute offset of the payload in the
	// container, assigned on Save.
	FileOffset int64

	Method Method
	Level  uint8

	// Attributes carries opaque file system attribute bits from the
	// source. They are kept in memory only; the directory record has
	// no field for them.
	Attributes uint32

	// compressed holds the payload for entries added or updated since
	// the last Save; it is released by Save. Entries read from disk
	// leave it nil and are range-copied from the backing file.
	compressed []byte
}

func validateName(name string) error {
	if len(name) == 0 {
		return formatErr(CodeInvalidFileName, "empty entry name")
	}
	if len(name) > MaxNameLength {
		return formatErr(CodeInvalidFileName, "entry name is %d bytes, limit %d", len(name), MaxNameLength)
	}
	return nil
}
