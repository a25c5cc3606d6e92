package lark

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

const (
	// Signature opens every archive; SignatureLegacy is accepted on
	// read for archives written by old versions but never written.
	Signature       = 0x4B52414C
	SignatureLegacy = 0x4352414C

	// FormatVersion is the only container revision this engine
	// understands.
	FormatVersion = 0x0200

	headerSize = 60

	// DefaultBlockSize is advisory; it is recorded in the header and
	// otherwise unused by the engine.
	DefaultBlockSize = 262144
)

// header is the fixed 60-byte archive prefix, little-endian on disk.
type header struct {
	// Signature is Signature or, in archives written by old
	// versions, SignatureLegacy.
	Signature uint32

	// FormatVersion must equal FormatVersion.
	FormatVersion uint16

	// MinUnpackVersion is informational.
	MinUnpackVersion uint16

	// Flags bits are all reserved: ignored on read, written as zero.
	Flags uint32

	// BlockSize is advisory.
	BlockSize uint32

	// DefaultCompressionLevel (0..9) applies to entries added without
	// an explicit level.
	DefaultCompressionLevel uint32

	Reserved1 uint32

	// CreationTime and LastUpdateTime are FILETIME values.
	CreationTime   int64
	LastUpdateTime int64

	ReservedData [16]byte

	// FileCount mirrors the directory entry count. The directory is
	// authoritative on read.
	FileCount uint32
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, xerrors.Errorf("reading header: %w", err)
	}
	if h.Signature != Signature && h.Signature != SignatureLegacy {
		return h, formatErr(CodeInvalidSignature, "bad signature %#08x", h.Signature)
	}
	if h.FormatVersion != FormatVersion {
		return h, formatErr(CodeUnsupportedVersion, "unsupported version %#04x", h.FormatVersion)
	}
	return h, nil
}

func (h *header) writeTo(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, h)
}
