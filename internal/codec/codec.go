// Package codec implements the six entry compression methods of the
// archive format. Every codec consumes a byte stream and produces one;
// Decompress is the exact inverse of Compress for the same method. Codecs
// hold no state across invocations: each archive entry gets a fresh codec
// and there are no cross-entry dictionaries.
package codec

import (
	"io"

	"golang.org/x/xerrors"
)

// On-disk method tags. The tag is the CompressionMethod byte stored in
// the central directory.
const (
	TagStore = iota
	TagLZSS
	TagLZHUF
	TagDeflate
	TagLZW
	TagLZ77

	numMethods
)

// Codec compresses or decompresses a single entry payload.
type Codec interface {
	Compress(dst io.Writer, src io.Reader) error
	Decompress(dst io.Writer, src io.Reader) error
}

// ForMethod returns a fresh codec for the given on-disk method tag.
// level is only meaningful for methods with tunable effort (Deflate);
// the others ignore it.
func ForMethod(tag uint8, level int) (Codec, error) {
	switch tag {
	case TagStore:
		return store{}, nil
	case TagLZSS:
		return lzss{}, nil
	case TagLZHUF:
		return lzhuf{}, nil
	case TagDeflate:
		return deflate{level: level}, nil
	case TagLZW:
		return lzw{}, nil
	case TagLZ77:
		return lz77{}, nil
	}
	return nil, xerrors.Errorf("unknown compression method %d", tag)
}
