package lark

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/orcaman/writerseeker"
)

// rawTestEntry describes one directory record for hand-built archives.
// offset -1 lays payloads out sequentially from the end of the header.
type rawTestEntry struct {
	name    string
	payload []byte
	orig    int64
	comp    uint32
	crc     uint32
	method  uint8
	level   uint8
	offset  int64
}

func buildRawArchive(t *testing.T, hdrSig, dirSig uint32, version uint16, entries []rawTestEntry) []byte {
	t.Helper()
	ws := &writerseeker.WriterSeeker{}

	h := header{
		Signature:               hdrSig,
		FormatVersion:           version,
		BlockSize:               DefaultBlockSize,
		DefaultCompressionLevel: 6,
	}
	if err := binary.Write(ws, binary.LittleEndian, &h); err != nil {
		t.Fatal(err)
	}

	off := int64(headerSize)
	offsets := make([]int64, len(entries))
	for i, e := range entries {
		offsets[i] = off
		if _, err := ws.Write(e.payload); err != nil {
			t.Fatal(err)
		}
		off += int64(len(e.payload))
	}

	if err := binary.Write(ws, binary.LittleEndian, dirSig); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(ws, binary.LittleEndian, uint32(len(entries))); err != nil {
		t.Fatal(err)
	}
	for i, e := range entries {
		if e.offset < 0 {
			e.offset = offsets[i]
		}
		rec := dirRecord{
			FileOffset:        e.offset,
			OriginalSize:      e.orig,
			CompressedSize:    e.comp,
			CRC32:             e.crc,
			CompressionMethod: e.method,
			CompressionLevel:  e.level,
			NameLength:        uint16(len(e.name)),
		}
		if err := binary.Write(ws, binary.LittleEndian, &rec); err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(ws, e.name); err != nil {
			t.Fatal(err)
		}
	}

	// The header is written before the entry count is final; patch it
	// in place now.
	if _, err := ws.Seek(56, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(ws, binary.LittleEndian, uint32(len(entries))); err != nil {
		t.Fatal(err)
	}

	b, err := io.ReadAll(ws.BytesReader())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func writeArchiveFile(t *testing.T, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.ark")
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func wantFormatError(t *testing.T, err error, code int) {
	t.Helper()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatError with code %d", err, code)
	}
	if fe.Code != code {
		t.Fatalf("got format error code %d (%v), want %d", fe.Code, fe, code)
	}
}

func TestOpenTooSmall(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, make([]byte, 10))
	_, err := Open(path)
	wantFormatError(t, err, CodeArchiveTooSmall)
}

func TestOpenBadSignature(t *testing.T) {
	t.Parallel()

	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, nil)
	binary.LittleEndian.PutUint32(b[0:], 0xDEADBEEF)
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidSignature)
}

func TestOpenUnsupportedVersion(t *testing.T) {
	t.Parallel()

	b := buildRawArchive(t, Signature, DirSignature, 0x0100, nil)
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeUnsupportedVersion)
}

func TestOpenDirectoryNotFound(t *testing.T) {
	t.Parallel()

	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, nil)
	// Wipe the directory signature.
	binary.LittleEndian.PutUint32(b[headerSize:], 0)
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeDirectoryNotFound)
}

func TestOpenRejectsExpansionBomb(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 100)
	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, []rawTestEntry{
		{name: "bomb", payload: payload, orig: 1_000_000_000, comp: 100, offset: -1},
	})
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidSizes)
}

func TestOpenRejectsOverlappingEntries(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 100)
	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, []rawTestEntry{
		{name: "a", payload: payload, orig: 100, comp: 100, offset: -1},
		// Declared one byte into a's payload range.
		{name: "b", payload: payload, orig: 100, comp: 100, offset: headerSize + 99},
	})
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidFileOffset)
}

func TestOpenRejectsPayloadPastDirectory(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 10)
	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, []rawTestEntry{
		{name: "a", payload: payload, orig: 10, comp: 4096, offset: -1},
	})
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidFileOffset)
}

func TestOpenRejectsBadMethod(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 10)
	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, []rawTestEntry{
		{name: "a", payload: payload, orig: 10, comp: 10, method: 9, offset: -1},
	})
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidCompressionMethod)
}

func TestOpenRejectsOversizedFileCount(t *testing.T) {
	t.Parallel()

	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, nil)
	// Claim 1000 entries in an empty directory.
	binary.LittleEndian.PutUint32(b[headerSize+4:], 1000)
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidFileCount)
}

// Legacy archives carry the old signatures and may omit per-entry
// method/level (a 0xFF method byte); such entries default to Deflate at
// the header's default level.
func TestOpenLegacyArchive(t *testing.T) {
	t.Parallel()

	content := []byte("legacy entry content")
	var payload bytes.Buffer
	zw := zlib.NewWriter(&payload)
	if _, err := zw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	b := buildRawArchive(t, SignatureLegacy, DirSignatureLegacy, FormatVersion, []rawTestEntry{
		{
			name:    "old.txt",
			payload: payload.Bytes(),
			orig:    int64(len(content)),
			comp:    uint32(payload.Len()),
			crc:     crcOf(content),
			method:  methodUnspecified,
			offset:  -1,
		},
	})
	a, err := Open(writeArchiveFile(t, b))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	e := a.Entries()[0]
	if e.Method != Deflate {
		t.Fatalf("legacy method = %v, want %v", e.Method, Deflate)
	}
	var out bytes.Buffer
	if err := a.Extract("old.txt", &out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), content) {
		t.Fatalf("extracted %q, want %q", out.Bytes(), content)
	}

	// A rebuild rewrites the archive with the primary signatures.
	if err := a.Rebuild(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(a.Path())
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(raw); got != Signature {
		t.Fatalf("rebuilt signature = %#x, want %#x", got, uint32(Signature))
	}
}

// The signature scan falls back from the 4 KiB tail to a 64 KiB byte
// scan, so trailing junk after the directory does not hide it.
func TestOpenWithTrailingJunk(t *testing.T) {
	t.Parallel()

	payload := []byte("stored")
	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, []rawTestEntry{
		{name: "a", payload: payload, orig: int64(len(payload)), comp: uint32(len(payload)), crc: crcOf(payload), offset: -1},
	})
	b = append(b, make([]byte, 10<<10)...)

	a, err := Open(writeArchiveFile(t, b))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	var out bytes.Buffer
	if err := a.Extract("a", &out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatalf("extracted %q, want %q", out.Bytes(), payload)
	}
}

func TestDirectoryNameLengthBounds(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte("n"), MaxNameLength+1)
	payload := []byte("x")
	b := buildRawArchive(t, Signature, DirSignature, FormatVersion, []rawTestEntry{
		{name: string(long), payload: payload, orig: 1, comp: 1, offset: -1},
	})
	_, err := Open(writeArchiveFile(t, b))
	wantFormatError(t, err, CodeInvalidFileName)
}
