package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

// deflate wraps a zlib-format stream (RFC 1950 wrapper around RFC 1951
// DEFLATE). The archive's 0..9 compression level maps onto the flate
// levels: 0 stores, 1 is fastest, 2..6 default, 7..9 maximum.
type deflate struct {
	level int
}

func flateLevel(level int) int {
	switch {
	case level <= 0:
		return flate.NoCompression
	case level == 1:
		return flate.BestSpeed
	case level <= 6:
		return flate.DefaultCompression
	default:
		return flate.BestCompression
	}
}

func (d deflate) Compress(dst io.Writer, src io.Reader) error {
	zw, err := zlib.NewWriterLevel(dst, flateLevel(d.level))
	if err != nil {
		return xerrors.Errorf("deflate: %w", err)
	}
	if _, err := io.Copy(zw, src); err != nil {
		return xerrors.Errorf("deflate: %w", err)
	}
	return zw.Close()
}

func (d deflate) Decompress(dst io.Writer, src io.Reader) error {
	zr, err := zlib.NewReader(src)
	if err != nil {
		return xerrors.Errorf("inflate: %w", err)
	}
	defer zr.Close()
	if _, err := io.Copy(dst, zr); err != nil {
		return xerrors.Errorf("inflate: %w", err)
	}
	return nil
}
