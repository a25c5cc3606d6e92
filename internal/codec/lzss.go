package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// LZSS: 4 KiB sliding window with byte-flag framing. A match is encoded
// as three bytes: the 0xFF flag, the low 8 bits of the distance, and one
// byte packing the high 4 distance bits with the 4-bit length field
// (length − 3). A literal 0xFF is escaped as the pair 0xFF 0xFE. Each
// compressed block covers up to 64 KiB of input and is preceded by its
// compressed byte length as a u32; the window carries across blocks.
const (
	lzssWindowSize = 4096
	lzssMinMatch   = 3
	lzssMaxMatch   = 18 // 4-bit length field
	lzssMaxChain   = 512
	lzssBlockSize  = 64 << 10
	lzssFlag       = 0xFF
	lzssEscape     = 0xFE
)

type lzss struct{}

func lzssHash(p []byte) uint32 {
	return (uint32(p[0])<<8 ^ uint32(p[1])<<4 ^ uint32(p[2])) & 0xFFFF
}

func (lzss) Compress(dst io.Writer, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return xerrors.Errorf("lzss: %w", err)
	}

	var head [1 << 16]int32
	for i := range head {
		head[i] = -1
	}
	prev := make([]int32, len(data))

	insert := func(pos int) {
		if pos+lzssMinMatch > len(data) {
			return
		}
		h := lzssHash(data[pos:])
		prev[pos] = head[h]
		head[h] = int32(pos)
	}

	var block bytes.Buffer
	var lenbuf [4]byte
	for blockStart := 0; blockStart < len(data); blockStart += lzssBlockSize {
		blockEnd := blockStart + lzssBlockSize
		if blockEnd > len(data) {
			blockEnd = len(data)
		}
		block.Reset()

		pos := blockStart
		for pos < blockEnd {
			bestLen, bestDist := 0, 0
			maxLen := lzssMaxMatch
			if rest := blockEnd - pos; rest < maxLen {
				maxLen = rest
			}
			if maxLen >= lzssMinMatch {
				cand := head[lzssHash(data[pos:])]
				for chain := 0; chain < lzssMaxChain && cand >= 0; chain, cand = chain+1, prev[cand] {
					d := pos - int(cand)
					if d >= lzssWindowSize {
						break
					}
					// A distance whose low byte is 0xFE would be
					// indistinguishable from the literal escape pair.
					if d&0xFF == lzssEscape {
						continue
					}
					if data[int(cand)+bestLen] != data[pos+bestLen] {
						continue
					}
					l := 0
					for l < maxLen && data[int(cand)+l] == data[pos+l] {
						l++
					}
					if l > bestLen {
						bestLen, bestDist = l, d
						if bestLen == maxLen {
							break
						}
					}
				}
			}
			if bestLen >= lzssMinMatch {
				block.WriteByte(lzssFlag)
				block.WriteByte(byte(bestDist))
				block.WriteByte(byte(bestDist>>8&0x0F) | byte(bestLen-lzssMinMatch)<<4)
				for i := 0; i < bestLen; i++ {
					insert(pos + i)
				}
				pos += bestLen
			} else {
				b := data[pos]
				if b == lzssFlag {
					block.WriteByte(lzssFlag)
					block.WriteByte(lzssEscape)
				} else {
					block.WriteByte(b)
				}
				insert(pos)
				pos++
			}
		}

		binary.LittleEndian.PutUint32(lenbuf[:], uint32(block.Len()))
		if _, err := dst.Write(lenbuf[:]); err != nil {
			return xerrors.Errorf("lzss: %w", err)
		}
		if _, err := dst.Write(block.Bytes()); err != nil {
			return xerrors.Errorf("lzss: %w", err)
		}
	}
	return nil
}

func (lzss) Decompress(dst io.Writer, src io.Reader) error {
	br := bufio.NewReader(src)
	bw := bufio.NewWriter(dst)

	var window [lzssWindowSize]byte
	wpos, wfill := 0, 0
	out := func(b byte) error {
		window[wpos] = b
		wpos = (wpos + 1) & (lzssWindowSize - 1)
		if wfill < lzssWindowSize {
			wfill++
		}
		return bw.WriteByte(b)
	}

	var lenbuf [4]byte
	for {
		if _, err := io.ReadFull(br, lenbuf[:]); err != nil {
			if err == io.EOF {
				return bw.Flush()
			}
			return xerrors.Errorf("lzss: truncated block length: %w", err)
		}
		block := make([]byte, binary.LittleEndian.Uint32(lenbuf[:]))
		if _, err := io.ReadFull(br, block); err != nil {
			return xerrors.Errorf("lzss: truncated block: %w", err)
		}

		for i := 0; i < len(block); {
			b := block[i]
			if b != lzssFlag {
				if err := out(b); err != nil {
					return err
				}
				i++
				continue
			}
			if i+1 >= len(block) {
				return xerrors.New("lzss: truncated token")
			}
			if block[i+1] == lzssEscape {
				if err := out(lzssFlag); err != nil {
					return err
				}
				i += 2
				continue
			}
			if i+2 >= len(block) {
				return xerrors.New("lzss: truncated token")
			}
			d := int(block[i+1]) | int(block[i+2]&0x0F)<<8
			l := int(block[i+2]>>4) + lzssMinMatch
			if d < 1 || d > wfill {
				return xerrors.Errorf("lzss: invalid match distance %d", d)
			}
			for k := 0; k < l; k++ {
				c := window[(wpos-d+lzssWindowSize)&(lzssWindowSize-1)]
				if err := out(c); err != nil {
					return err
				}
			}
			i += 3
		}
	}
}
