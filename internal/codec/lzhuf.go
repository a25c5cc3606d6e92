package codec

import (
	"bufio"
	"io"
	"sort"

	"github.com/larkfmt/lark/internal/bitio"
	"golang.org/x/xerrors"
)

// LZHUF: an LZSS dictionary stage (4 KiB window, matches of 3..18 bytes
// found by a bounded backward scan) whose output symbols are coded by a
// single adaptive Huffman coder per entry. The symbol alphabet has 258
// entries: 0..255 are literal bytes, 256 is the end-of-stream marker,
// 257 announces a match. A match symbol is followed by 12 raw bits of
// backward distance (1..4095) and 4 raw bits of length − 3.
//
// Encoder and decoder start from identical all-ones frequency tables and
// rebuild their trees on the same schedule (after every 4096 counted
// symbols; markers are not counted), so the trees stay isomorphic. Any
// divergence garbles the rest of the stream.
const (
	lzhufWindowSize = 4096
	lzhufMinMatch   = 3
	lzhufMaxMatch   = 18
	lzhufMaxChain   = 512
	lzhufSymEnd     = 256
	lzhufSymMatch   = 257
	lzhufNumSyms    = 258
	lzhufRebuild    = 4096
)

type lzhuf struct{}

// huffNode is a tree node: sym >= 0 for leaves, children for internal
// nodes.
type huffNode struct {
	weight uint32
	sym    int32
	left   int32
	right  int32
}

type huffCoder struct {
	freq  [lzhufNumSyms]uint32
	count uint32

	nodes []huffNode
	root  int32
	code  [lzhufNumSyms]uint64
	clen  [lzhufNumSyms]uint8
}

func newHuffCoder() *huffCoder {
	h := &huffCoder{}
	for i := range h.freq {
		h.freq[i] = 1
	}
	h.rebuild()
	return h
}

// rebuild reconstructs the Huffman tree from the current frequency
// table. Leaves are queued in ascending frequency order (stable, so
// equal frequencies keep symbol order) and merged two-queue style;
// on equal weight the leaf queue wins. The first node taken becomes the
// left child and codes assign 0 to the left, 1 to the right.
func (h *huffCoder) rebuild() {
	order := make([]int, lzhufNumSyms)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return h.freq[order[i]] < h.freq[order[j]]
	})

	h.nodes = h.nodes[:0]
	leaves := make([]int32, lzhufNumSyms)
	for i, sym := range order {
		h.nodes = append(h.nodes, huffNode{
			weight: h.freq[sym],
			sym:    int32(sym),
			left:   -1,
			right:  -1,
		})
		leaves[i] = int32(i)
	}

	var merged []int32
	li, mi := 0, 0
	take := func() int32 {
		if li < len(leaves) && (mi >= len(merged) || h.nodes[leaves[li]].weight <= h.nodes[merged[mi]].weight) {
			n := leaves[li]
			li++
			return n
		}
		n := merged[mi]
		mi++
		return n
	}
	for len(leaves)-li+len(merged)-mi > 1 {
		l := take()
		r := take()
		h.nodes = append(h.nodes, huffNode{
			weight: h.nodes[l].weight + h.nodes[r].weight,
			sym:    -1,
			left:   l,
			right:  r,
		})
		merged = append(merged, int32(len(h.nodes)-1))
	}
	h.root = take()
	h.assign(h.root, 0, 0)
}

func (h *huffCoder) assign(n int32, code uint64, depth uint8) {
	nd := &h.nodes[n]
	if nd.sym >= 0 {
		h.code[nd.sym] = code
		h.clen[nd.sym] = depth
		return
	}
	h.assign(nd.left, code<<1, depth+1)
	h.assign(nd.right, code<<1|1, depth+1)
}

// update counts sym and rebuilds the tree when the running count reaches
// a multiple of the rebuild period. The end and match markers are never
// counted; both sides of the stream apply the same rule.
func (h *huffCoder) update(sym int) {
	if sym >= lzhufSymEnd {
		return
	}
	h.freq[sym]++
	h.count++
	if h.count%lzhufRebuild == 0 {
		h.rebuild()
	}
}

func (h *huffCoder) encode(bw *bitio.Writer, sym int) error {
	code, n := h.code[sym], h.clen[sym]
	for i := n; i > 0; i-- {
		if err := bw.WriteBit(code&(1<<(i-1)) != 0); err != nil {
			return err
		}
	}
	h.update(sym)
	return nil
}

func (h *huffCoder) decode(br *bitio.Reader) int {
	n := h.root
	for h.nodes[n].sym < 0 {
		if br.ReadBit() {
			n = h.nodes[n].right
		} else {
			n = h.nodes[n].left
		}
	}
	sym := int(h.nodes[n].sym)
	h.update(sym)
	return sym
}

func (lzhuf) Compress(dst io.Writer, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return xerrors.Errorf("lzhuf: %w", err)
	}
	bw := bitio.NewWriter(dst)
	h := newHuffCoder()

	pos := 0
	for pos < len(data) {
		maxLen := lzhufMaxMatch
		if rest := len(data) - pos; rest < maxLen {
			maxLen = rest
		}
		maxDist := pos
		if maxDist > lzhufMaxChain {
			maxDist = lzhufMaxChain
		}
		bestLen, bestDist := 0, 0
		for d := 1; d <= maxDist; d++ {
			cand := pos - d
			if bestLen > 0 && data[cand+bestLen] != data[pos+bestLen] {
				continue
			}
			l := 0
			for l < maxLen && data[cand+l] == data[pos+l] {
				l++
			}
			if l > bestLen {
				bestLen, bestDist = l, d
				if bestLen == maxLen {
					break
				}
			}
		}
		if bestLen >= lzhufMinMatch {
			if err := h.encode(bw, lzhufSymMatch); err != nil {
				return xerrors.Errorf("lzhuf: %w", err)
			}
			if err := bw.WriteBits(uint32(bestDist), 12); err != nil {
				return xerrors.Errorf("lzhuf: %w", err)
			}
			if err := bw.WriteBits(uint32(bestLen-lzhufMinMatch), 4); err != nil {
				return xerrors.Errorf("lzhuf: %w", err)
			}
			pos += bestLen
		} else {
			if err := h.encode(bw, int(data[pos])); err != nil {
				return xerrors.Errorf("lzhuf: %w", err)
			}
			pos++
		}
	}
	if err := h.encode(bw, lzhufSymEnd); err != nil {
		return xerrors.Errorf("lzhuf: %w", err)
	}
	return bw.Flush()
}

func (lzhuf) Decompress(dst io.Writer, src io.Reader) error {
	br := bitio.NewReader(src)
	bw := bufio.NewWriter(dst)
	h := newHuffCoder()

	var window [lzhufWindowSize]byte
	wpos, wfill := 0, 0
	out := func(b byte) error {
		window[wpos] = b
		wpos = (wpos + 1) & (lzhufWindowSize - 1)
		if wfill < lzhufWindowSize {
			wfill++
		}
		return bw.WriteByte(b)
	}

	for {
		sym := h.decode(br)
		switch {
		case sym == lzhufSymEnd:
			return bw.Flush()
		case sym == lzhufSymMatch:
			d := int(br.ReadBits(12))
			l := int(br.ReadBits(4)) + lzhufMinMatch
			if d < 1 || d > wfill {
				return xerrors.Errorf("lzhuf: invalid match distance %d", d)
			}
			for k := 0; k < l; k++ {
				c := window[(wpos-d+lzhufWindowSize)&(lzhufWindowSize-1)]
				if err := out(c); err != nil {
					return err
				}
			}
		default:
			if err := out(byte(sym)); err != nil {
				return err
			}
		}
	}
}
