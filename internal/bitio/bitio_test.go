package bitio

import (
	"bytes"
	"testing"
)

func TestWriteReadBits(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(0b101, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0x1234, 16); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBit(true); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if got, want := r.ReadBits(3), uint32(0b101); got != want {
		t.Fatalf("ReadBits(3) = %#x, want %#x", got, want)
	}
	if got, want := r.ReadBits(16), uint32(0x1234); got != want {
		t.Fatalf("ReadBits(16) = %#x, want %#x", got, want)
	}
	if !r.ReadBit() {
		t.Fatalf("ReadBit() = false, want true")
	}
}

func TestFlushPadsLowBits(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(0b11, 2); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	// Flushing again must not emit another byte.
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Bytes(), []byte{0xC0}; !bytes.Equal(got, want) {
		t.Fatalf("flushed bytes = %x, want %x", got, want)
	}
}

func TestReadPastEOF(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader([]byte{0xFF}))
	if got, want := r.ReadBits(8), uint32(0xFF); got != want {
		t.Fatalf("ReadBits(8) = %#x, want %#x", got, want)
	}
	if r.ReadBit() {
		t.Fatalf("ReadBit() past EOF = true, want false")
	}
	if got := r.ReadBits(12); got != 0 {
		t.Fatalf("ReadBits(12) past EOF = %#x, want 0", got)
	}
}

func TestMSBFirstByteOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(0x1A5, 9); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	// 0x1A5 = 1 1010 0101: first byte 0xD2 (1101 0010), then the
	// final 1 bit padded to 0x80.
	if got, want := buf.Bytes(), []byte{0xD2, 0x80}; !bytes.Equal(got, want) {
		t.Fatalf("bytes = %x, want %x", got, want)
	}
}
