// Package lark reads and writes LARK container archives: named byte
// streams stored in a single file, each independently compressed with one
// of six methods and verified by CRC-32. Entries are catalogued in a
// central directory at the tail of the container, so individual entries
// can be listed, extracted, deleted or replaced without touching the
// others.
//
// An Archive instance is not safe for concurrent use; callers that need
// parallelism should operate on disjoint instances. Add, Update and
// Delete mutate only in-memory state. Save persists all modifications in
// one transactional step: it writes a temp file in the target directory
// and atomically renames it over the target, so the archive on disk is
// never observed partially written.
package lark

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/larkfmt/lark/internal/check"
	"github.com/larkfmt/lark/internal/codec"
)

// Archive is an open container plus the in-memory entry list. Mutations
// are applied in call order; Save and List iterate in insertion order.
type Archive struct {
	path     string
	f        *os.File // read handle on the backing file, nil for fresh archives
	hdr      header
	entries  []*Entry
	modified bool
}

// Open reads the archive at path: header, central directory, and all
// format invariants. The file handle stays open for Extract and for
// range-copying unchanged entries on Save.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IoError{Code: CodeArchiveNotFound, Path: path, Err: err}
	}
	a, err := openFile(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func openFile(f *os.File, path string) (*Archive, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, &IoError{Code: CodeArchiveNotFound, Path: path, Err: err}
	}
	size := st.Size()
	if size < headerSize+8 {
		return nil, formatErr(CodeArchiveTooSmall, "%d bytes", size)
	}

	hdr, err := readHeader(io.NewSectionReader(f, 0, headerSize))
	if err != nil {
		return nil, err
	}
	dirOff, err := findDirectory(f, size)
	if err != nil {
		return nil, err
	}
	entries, err := parseDirectory(bufio.NewReader(io.NewSectionReader(f, dirOff, size-dirOff)), dirOff, size, &hdr)
	if err != nil {
		return nil, err
	}

	return &Archive{
		path:    path,
		f:       f,
		hdr:     hdr,
		entries: entries,
	}, nil
}

// Create returns an empty archive that will be written to path on Save.
// Nothing touches the file system until then.
func Create(path string) *Archive {
	return &Archive{
		path: path,
		hdr: header{
			Signature:               Signature,
			FormatVersion:           FormatVersion,
			MinUnpackVersion:        FormatVersion,
			BlockSize:               DefaultBlockSize,
			DefaultCompressionLevel: 6,
		},
		modified: true,
	}
}

// Entries returns the in-memory entry list in insertion order. The
// returned slice is shared with the archive; callers must not modify it.
func (a *Archive) Entries() []*Entry {
	return a.entries
}

// Path returns the archive's target path.
func (a *Archive) Path() string {
	return a.path
}

// AddOptions configures one Add or Update call. The caller supplies the
// source file's modification time and attribute bits; the engine treats
// the attributes as opaque.
type AddOptions struct {
	Method     Method
	Level      int // -1 selects the header's default level
	ModTime    time.Time
	Attributes uint32
}

// Add compresses src with the selected codec and appends an entry. The
// CRC-32 of the uncompressed bytes is computed on the fly. The archive
// file is not touched until Save.
func (a *Archive) Add(name string, src io.Reader, opts AddOptions) error {
	if err := validateName(name); err != nil {
		return err
	}
	level := opts.Level
	if level < 0 {
		level = int(a.hdr.DefaultCompressionLevel)
	}
	if level > 9 {
		level = 9
	}
	if opts.Method == Store {
		level = 0
	}
	c, err := codec.ForMethod(uint8(opts.Method), level)
	if err != nil {
		return formatErr(CodeInvalidCompressionMethod, "%v", err)
	}

	crc := check.NewCRC32()
	cr := &countingReader{r: io.TeeReader(src, crc)}
	var buf bytes.Buffer
	if err := c.Compress(&buf, cr); err != nil {
		return &CompressionError{Method: opts.Method, Op: "compress", Err: err}
	}
	if int64(buf.Len()) > MaxCompressedSize {
		return formatErr(CodeInvalidSizes, "compressed payload of %q is %d bytes, limit %d", name, buf.Len(), int64(MaxCompressedSize))
	}
	denom := int64(buf.Len())
	if denom == 0 {
		denom = 1
	}
	if cr.n/denom > ExpansionLimit {
		return formatErr(CodeInvalidSizes, "%q expands %d:%d, beyond %d:1", name, cr.n, buf.Len(), ExpansionLimit)
	}

	// A zero-length payload is still held in memory: a nil payload marks
	// entries whose bytes live in the backing file.
	payload := buf.Bytes()
	if payload == nil {
		payload = []byte{}
	}

	a.entries = append(a.entries, &Entry{
		Name:           name,
		OriginalSize:   cr.n,
		CompressedSize: uint32(buf.Len()),
		CRC32:          crc.Sum32(),
		ModTime:        opts.ModTime,
		Method:         opts.Method,
		Level:          uint8(level),
		Attributes:     opts.Attributes,
		compressed:     payload,
	})
	a.modified = true
	return nil
}

// Update replaces the entry matching name (case-insensitively), if any,
// by deleting it and appending the new one at the end.
func (a *Archive) Update(name string, src io.Reader, opts AddOptions) error {
	a.Delete(name)
	return a.Add(name, src, opts)
}

// Delete removes the first entry matching name case-insensitively and
// reports whether one was removed. A missing name is not an error.
func (a *Archive) Delete(name string) bool {
	for i, e := range a.entries {
		if strings.EqualFold(e.Name, name) {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			a.modified = true
			return true
		}
	}
	return false
}

func (a *Archive) find(name string) *Entry {
	for _, e := range a.entries {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

// Extract decompresses the entry matching name into dst and verifies its
// CRC-32. On mismatch the decompressed bytes have already been written
// to dst (so they can be compared against an original) and a FormatError
// with CodeCRC32Mismatch is returned.
func (a *Archive) Extract(name string, dst io.Writer) error {
	e := a.find(name)
	if e == nil {
		return &IoError{Code: CodeFileNotFound, Path: name, Err: os.ErrNotExist}
	}
	return a.extract(e, dst)
}

func (a *Archive) extract(e *Entry, dst io.Writer) error {
	var src io.Reader
	switch {
	case e.compressed != nil:
		src = bytes.NewReader(e.compressed)
	case a.f != nil:
		src = io.NewSectionReader(a.f, e.FileOffset, int64(e.CompressedSize))
	default:
		return formatErr(CodeNoCompressedData, "entry %q has no payload source", e.Name)
	}
	c, err := codec.ForMethod(uint8(e.Method), int(e.Level))
	if err != nil {
		return formatErr(CodeInvalidCompressionMethod, "%v", err)
	}

	crc := check.NewCRC32()
	bw := &boundedWriter{w: io.MultiWriter(dst, crc), remaining: e.OriginalSize}
	if err := c.Decompress(bw, src); err != nil {
		return &CompressionError{Method: e.Method, Op: "decompress", Err: err}
	}
	if got := crc.Sum32(); got != e.CRC32 {
		return formatErr(CodeCRC32Mismatch, "entry %q: got %#08x, want %#08x", e.Name, got, e.CRC32)
	}
	return nil
}

// TestResult is one entry's outcome from TestIntegrity.
type TestResult struct {
	Name string
	Err  error // nil when the entry verified
}

// TestIntegrity runs the full extract pipeline for every entry against a
// null sink. ok is true when every entry verified.
func (a *Archive) TestIntegrity() (results []TestResult, ok bool) {
	ok = true
	for _, e := range a.entries {
		err := a.extract(e, io.Discard)
		if err != nil {
			ok = false
		}
		results = append(results, TestResult{Name: e.Name, Err: err})
	}
	return results, ok
}

// Save persists all modifications: it writes header, entry payloads and
// central directory to a temp file in the target directory and atomically
// renames it over the target. Payloads come from each entry's in-memory
// buffer or, for unchanged entries, are range-copied from the previously
// opened archive file. The read handle is released before the rename.
func (a *Archive) Save() error {
	if a.path == "" {
		return &ArchiveError{Code: CodeArchiveNameNotSet, Detail: "no archive name set"}
	}

	t, err := renameio.TempFile(filepath.Dir(a.path), a.path)
	if err != nil {
		return &IoError{Code: CodeArchiveNotFound, Path: a.path, Err: err}
	}
	defer t.Cleanup()

	now := time.Now()
	if a.hdr.CreationTime == 0 {
		a.hdr.CreationTime = timeToFiletime(now)
	}
	a.hdr.LastUpdateTime = timeToFiletime(now)
	a.hdr.Signature = Signature
	a.hdr.Flags = 0
	a.hdr.FileCount = uint32(len(a.entries))

	bw := bufio.NewWriter(t)
	w := &countingWriter{w: bw}
	if err := a.hdr.writeTo(w); err != nil {
		return xerrors.Errorf("writing header: %w", err)
	}

	// Offsets are committed to the entries only once the replace
	// succeeded; until then the old offsets must stay valid for the
	// range copies below.
	newOffsets := make([]int64, len(a.entries))
	for i, e := range a.entries {
		newOffsets[i] = w.n
		switch {
		case e.compressed != nil:
			if _, err := w.Write(e.compressed); err != nil {
				return xerrors.Errorf("writing entry %q: %w", e.Name, err)
			}
		case a.f != nil:
			src := io.NewSectionReader(a.f, e.FileOffset, int64(e.CompressedSize))
			if _, err := io.Copy(w, src); err != nil {
				return xerrors.Errorf("copying entry %q: %w", e.Name, err)
			}
		default:
			return formatErr(CodeNoCompressedData, "entry %q has no payload source", e.Name)
		}
	}

	if err := writeDirectory(w, a.entries, newOffsets); err != nil {
		return xerrors.Errorf("writing directory: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return xerrors.Errorf("flushing archive: %w", err)
	}

	// The read handle on the previous archive is released before the
	// rename step.
	if a.f != nil {
		a.f.Close()
		a.f = nil
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		if f, ferr := os.Open(a.path); ferr == nil {
			a.f = f
		}
		return &IoError{Code: CodeArchiveNotFound, Path: a.path, Err: err}
	}

	f, err := os.Open(a.path)
	if err != nil {
		return &IoError{Code: CodeArchiveNotFound, Path: a.path, Err: err}
	}
	a.f = f
	for i, e := range a.entries {
		e.FileOffset = newOffsets[i]
		e.compressed = nil
	}
	a.modified = false
	return nil
}

// Rebuild loads every entry payload into memory and Saves, producing a
// compacted archive with the primary signatures.
func (a *Archive) Rebuild() error {
	for _, e := range a.entries {
		if e.compressed != nil {
			continue
		}
		if a.f == nil {
			return formatErr(CodeNoCompressedData, "entry %q has no payload source", e.Name)
		}
		buf := make([]byte, e.CompressedSize)
		if _, err := a.f.ReadAt(buf, e.FileOffset); err != nil {
			return xerrors.Errorf("reading entry %q: %w", e.Name, err)
		}
		e.compressed = buf
	}
	a.modified = true
	return a.Save()
}

// Close saves pending modifications, if any, and releases the file
// handle.
func (a *Archive) Close() error {
	if a.modified {
		if err := a.Save(); err != nil {
			return err
		}
	}
	if a.f != nil {
		err := a.f.Close()
		a.f = nil
		return err
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// boundedWriter fails fast once a decompression sink overshoots the
// entry's declared original size, so a damaged or hostile stream cannot
// expand without bound.
type boundedWriter struct {
	w         io.Writer
	remaining int64
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > b.remaining {
		n := 0
		if b.remaining > 0 {
			n, _ = b.w.Write(p[:b.remaining])
			b.remaining -= int64(n)
		}
		return n, xerrors.Errorf("decompressed output exceeds declared size")
	}
	n, err := b.w.Write(p)
	b.remaining -= int64(n)
	return n, err
}
