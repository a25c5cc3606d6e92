package codec

import (
	"bufio"
	"io"

	"github.com/larkfmt/lark/internal/bitio"
	"golang.org/x/xerrors"
)

// LZW: variable-width codes, 9 bits growing to 16, MSB-first. The
// dictionary is seeded with the 256 single-byte strings; code 256 clears
// the dictionary, code 257 ends the stream, entries start at 258. Both
// sides widen the code size after inserting an entry, at the same code
// count: the encoder widens when next > (1<<width)-1, the decoder (whose
// insertions lag the encoder's by one code) when next+1 > (1<<width)-1.
const (
	lzwMinWidth = 9
	lzwMaxWidth = 16
	lzwClear    = 256
	lzwEnd      = 257
	lzwFirst    = 258
	lzwMaxCodes = 1 << lzwMaxWidth
)

type lzw struct{}

func (lzw) Compress(dst io.Writer, src io.Reader) error {
	br := bufio.NewReader(src)
	bw := bitio.NewWriter(dst)

	width := uint(lzwMinWidth)
	next := lzwFirst
	// Dictionary keyed by (prefix code << 8 | suffix byte).
	table := make(map[uint32]int, 4096)

	w := -1
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Errorf("lzw: %w", err)
		}
		if w < 0 {
			w = int(c)
			continue
		}
		key := uint32(w)<<8 | uint32(c)
		if code, ok := table[key]; ok {
			w = code
			continue
		}
		if err := bw.WriteBits(uint32(w), width); err != nil {
			return xerrors.Errorf("lzw: %w", err)
		}
		table[key] = next
		next++
		if next > 1<<width-1 && width < lzwMaxWidth {
			width++
		}
		w = int(c)
		if next == lzwMaxCodes {
			if err := bw.WriteBits(lzwClear, width); err != nil {
				return xerrors.Errorf("lzw: %w", err)
			}
			table = make(map[uint32]int, 4096)
			next = lzwFirst
			width = lzwMinWidth
		}
	}
	if w >= 0 {
		if err := bw.WriteBits(uint32(w), width); err != nil {
			return xerrors.Errorf("lzw: %w", err)
		}
		// The decoder inserts an entry for this last code as well and
		// may widen before it reads END; widen on the same rule here.
		if next+1 > 1<<width-1 && width < lzwMaxWidth {
			width++
		}
	}
	if err := bw.WriteBits(lzwEnd, width); err != nil {
		return xerrors.Errorf("lzw: %w", err)
	}
	return bw.Flush()
}

func (lzw) Decompress(dst io.Writer, src io.Reader) error {
	br := bitio.NewReader(src)
	bw := bufio.NewWriter(dst)

	width := uint(lzwMinWidth)
	next := lzwFirst
	prefix := make([]int32, lzwMaxCodes)
	suffix := make([]byte, lzwMaxCodes)

	// expand decodes a dictionary string back-to-front.
	stack := make([]byte, 0, 4096)
	expand := func(code int) []byte {
		stack = stack[:0]
		for code >= lzwFirst {
			stack = append(stack, suffix[code])
			code = int(prefix[code])
		}
		stack = append(stack, byte(code))
		for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
			stack[i], stack[j] = stack[j], stack[i]
		}
		return stack
	}

	prev := -1
	var prevFirst byte
	for {
		code := int(br.ReadBits(width))
		switch {
		case code == lzwEnd:
			return bw.Flush()
		case code == lzwClear:
			next = lzwFirst
			width = lzwMinWidth
			prev = -1
			continue
		case prev < 0:
			if code > 0xFF {
				return xerrors.Errorf("lzw: invalid initial code %d", code)
			}
			if err := bw.WriteByte(byte(code)); err != nil {
				return err
			}
			prev, prevFirst = code, byte(code)
			continue
		case code > next:
			return xerrors.Errorf("lzw: code %d out of range", code)
		}

		var decoded []byte
		if code == next {
			// The KωK case: the entry being referenced is the one
			// about to be created.
			decoded = append(expand(prev), prevFirst)
		} else {
			decoded = expand(code)
		}
		first := decoded[0]
		if _, err := bw.Write(decoded); err != nil {
			return err
		}
		if next < lzwMaxCodes {
			prefix[next] = int32(prev)
			suffix[next] = first
			next++
			if next+1 > 1<<width-1 && width < lzwMaxWidth {
				width++
			}
		}
		prev, prevFirst = code, first
	}
}
