package check

import "testing"

func TestCRC32Vectors(t *testing.T) {
	t.Parallel()

	seq := make([]byte, 256)
	for i := range seq {
		seq[i] = byte(i)
	}
	for _, tc := range []struct {
		name string
		in   []byte
		want uint32
	}{
		{"empty", nil, 0x00000000},
		{"check string", []byte("123456789"), 0xCBF43926},
		{"byte sequence", seq, 0x29058C73},
	} {
		if got := CRC32(tc.in); got != tc.want {
			t.Errorf("%s: CRC32 = %#08x, want %#08x", tc.name, got, tc.want)
		}
	}
}

func TestCRC32Streaming(t *testing.T) {
	t.Parallel()

	data := []byte("split across several writes")
	h := NewCRC32()
	for i := 0; i < len(data); i += 5 {
		end := i + 5
		if end > len(data) {
			end = len(data)
		}
		h.Write(data[i:end])
	}
	if got, want := h.Sum32(), CRC32(data); got != want {
		t.Fatalf("streaming CRC = %#08x, one-shot = %#08x", got, want)
	}
}

func TestAdler32Vector(t *testing.T) {
	t.Parallel()

	if got, want := Adler32([]byte("Wikipedia")), uint32(0x11E60398); got != want {
		t.Fatalf("Adler32 = %#08x, want %#08x", got, want)
	}
	h := NewAdler32()
	h.Write([]byte("Wiki"))
	h.Write([]byte("pedia"))
	if got := h.Sum32(); got != 0x11E60398 {
		t.Fatalf("streaming Adler32 = %#08x", got)
	}
}
