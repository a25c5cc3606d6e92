package codec

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/xerrors"
)

// LZ77: 32 KiB window with bit-flag framing. A flag byte precedes every
// group of up to 8 tokens; bit i (LSB-first) set marks token i as a match.
// A match token is a little-endian u16 distance followed by one byte
// storing length − 2. There is no block length prefix; the stream ends
// with the input.
const (
	lz77WindowSize = 32768
	lz77MinMatch   = 2
	lz77MaxMatch   = lz77MinMatch + 255 // one-byte length field
	lz77MaxChain   = 512
)

type lz77 struct{}

func lz77Hash(p []byte) uint32 {
	return uint32(p[0])<<8 | uint32(p[1])
}

func (lz77) Compress(dst io.Writer, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return xerrors.Errorf("lz77: %w", err)
	}

	var head [1 << 16]int32
	for i := range head {
		head[i] = -1
	}
	prev := make([]int32, len(data))

	insert := func(pos int) {
		if pos+lz77MinMatch > len(data) {
			return
		}
		h := lz77Hash(data[pos:])
		prev[pos] = head[h]
		head[h] = int32(pos)
	}

	w := bufio.NewWriter(dst)
	var flags byte
	var ntok int
	var group bytes.Buffer
	flushGroup := func() error {
		if ntok == 0 {
			return nil
		}
		if err := w.WriteByte(flags); err != nil {
			return err
		}
		if _, err := w.Write(group.Bytes()); err != nil {
			return err
		}
		flags, ntok = 0, 0
		group.Reset()
		return nil
	}

	pos := 0
	for pos < len(data) {
		bestLen, bestDist := 0, 0
		maxLen := lz77MaxMatch
		if rest := len(data) - pos; rest < maxLen {
			maxLen = rest
		}
		if maxLen >= lz77MinMatch {
			cand := head[lz77Hash(data[pos:])]
			for chain := 0; chain < lz77MaxChain && cand >= 0; chain, cand = chain+1, prev[cand] {
				if pos-int(cand) > lz77WindowSize {
					break
				}
				if bestLen > 0 && data[int(cand)+bestLen-1] != data[pos+bestLen-1] {
					continue
				}
				l := 0
				for l < maxLen && data[int(cand)+l] == data[pos+l] {
					l++
				}
				if l > bestLen {
					bestLen, bestDist = l, pos-int(cand)
					if bestLen == maxLen {
						break
					}
				}
			}
		}
		if bestLen >= lz77MinMatch {
			flags |= 1 << ntok
			group.WriteByte(byte(bestDist))
			group.WriteByte(byte(bestDist >> 8))
			group.WriteByte(byte(bestLen - lz77MinMatch))
			for i := 0; i < bestLen; i++ {
				insert(pos + i)
			}
			pos += bestLen
		} else {
			group.WriteByte(data[pos])
			insert(pos)
			pos++
		}
		ntok++
		if ntok == 8 {
			if err := flushGroup(); err != nil {
				return xerrors.Errorf("lz77: %w", err)
			}
		}
	}
	if err := flushGroup(); err != nil {
		return xerrors.Errorf("lz77: %w", err)
	}
	return w.Flush()
}

func (lz77) Decompress(dst io.Writer, src io.Reader) error {
	br := bufio.NewReader(src)
	bw := bufio.NewWriter(dst)

	window := make([]byte, lz77WindowSize)
	wpos, wfill := 0, 0
	out := func(b byte) error {
		window[wpos] = b
		wpos = (wpos + 1) & (lz77WindowSize - 1)
		if wfill < lz77WindowSize {
			wfill++
		}
		return bw.WriteByte(b)
	}

	for {
		flags, err := br.ReadByte()
		if err == io.EOF {
			return bw.Flush()
		}
		if err != nil {
			return xerrors.Errorf("lz77: %w", err)
		}
		for i := 0; i < 8; i++ {
			b0, err := br.ReadByte()
			if err == io.EOF {
				return bw.Flush()
			}
			if err != nil {
				return xerrors.Errorf("lz77: %w", err)
			}
			if flags>>i&1 == 0 {
				if err := out(b0); err != nil {
					return err
				}
				continue
			}
			b1, err := br.ReadByte()
			if err != nil {
				return xerrors.Errorf("lz77: truncated token: %w", err)
			}
			b2, err := br.ReadByte()
			if err != nil {
				return xerrors.Errorf("lz77: truncated token: %w", err)
			}
			d := int(b0) | int(b1)<<8
			l := int(b2) + lz77MinMatch
			// Tolerate corrupt distances by clamping: the CRC check
			// over the decompressed entry catches actual damage.
			if d < 1 || d > wfill {
				if wfill == 0 {
					continue
				}
				d = 1
			}
			for k := 0; k < l; k++ {
				c := window[(wpos-d+lz77WindowSize)&(lz77WindowSize-1)]
				if err := out(c); err != nil {
					return err
				}
			}
		}
	}
}
