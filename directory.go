package lark

import (
	"encoding/binary"
	"io"
	"sort"

	"golang.org/x/xerrors"
)

const (
	// DirSignature opens the central directory; DirSignatureLegacy is
	// accepted on read but never written.
	DirSignature       = 0x444B524C
	DirSignatureLegacy = 0x4C415244

	dirRecordSize = 36

	// The directory signature is located by scanning backward from
	// end-of-file: the last 4 KiB first, then up to 64 KiB.
	dirScanQuick = 4 << 10
	dirScanFull  = 64 << 10

	// methodUnspecified marks records in legacy archives that predate
	// per-entry method/level bytes. Such entries default to Deflate at
	// the header's default level (read-only tolerance).
	methodUnspecified = 0xFF
)

// dirRecord is the fixed part of one directory entry, little-endian on
// disk, followed by NameLength name bytes.
type dirRecord struct {
	FileOffset        int64
	OriginalSize      int64
	CompressedSize    uint32
	CRC32             uint32
	ModificationTime  int64
	CompressionMethod uint8
	CompressionLevel  uint8
	NameLength        uint16
}

func isDirSignature(sig uint32) bool {
	return sig == DirSignature || sig == DirSignatureLegacy
}

// findDirectory scans backward from end-of-file for the directory
// signature and returns its absolute offset. The last 4 KiB are scanned
// first; if the signature is absent there the scan widens to 64 KiB. The
// scan never considers offsets before the header.
func findDirectory(r io.ReaderAt, size int64) (int64, error) {
	for _, span := range []int64{dirScanQuick, dirScanFull} {
		if span > size-headerSize {
			span = size - headerSize
		}
		tail := make([]byte, span)
		if _, err := r.ReadAt(tail, size-span); err != nil {
			return 0, xerrors.Errorf("reading archive tail: %w", err)
		}
		for i := len(tail) - 4; i >= 0; i-- {
			if isDirSignature(binary.LittleEndian.Uint32(tail[i:])) {
				return size - span + int64(i), nil
			}
		}
		if span == size-headerSize {
			break
		}
	}
	return 0, formatErr(CodeDirectoryNotFound, "no directory signature within %d bytes of end", dirScanFull)
}

// parseDirectory reads and validates the central directory at dirOff.
// Validation happens while parsing so errors are localised to the entry
// index; the cross-entry overlap check runs once all entries are in.
func parseDirectory(r io.Reader, dirOff, fileSize int64, hdr *header) ([]*Entry, error) {
	var sig uint32
	if err := binary.Read(r, binary.LittleEndian, &sig); err != nil {
		return nil, xerrors.Errorf("reading directory signature: %w", err)
	}
	if !isDirSignature(sig) {
		return nil, formatErr(CodeInvalidSignature, "bad directory signature %#08x", sig)
	}
	legacy := sig == DirSignatureLegacy

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, xerrors.Errorf("reading directory entry count: %w", err)
	}
	if int64(count)*dirRecordSize > fileSize-dirOff-8 {
		return nil, formatErr(CodeInvalidFileCount, "directory declares %d entries but only %d bytes remain", count, fileSize-dirOff-8)
	}

	entries := make([]*Entry, 0, count)
	for i := 0; i < int(count); i++ {
		var rec dirRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, xerrors.Errorf("reading directory entry %d: %w", i, err)
		}
		if rec.NameLength < 1 || rec.NameLength > MaxNameLength {
			return nil, entryErr(CodeInvalidFileName, i, "name length %d outside 1..%d", rec.NameLength, MaxNameLength)
		}
		name := make([]byte, rec.NameLength)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, xerrors.Errorf("reading directory entry %d name: %w", i, err)
		}

		method := rec.CompressionMethod
		level := rec.CompressionLevel
		if legacy && method == methodUnspecified {
			method = uint8(Deflate)
			level = uint8(hdr.DefaultCompressionLevel)
		}
		if method >= uint8(numMethods) {
			return nil, entryErr(CodeInvalidCompressionMethod, i, "method %d", method)
		}
		if rec.OriginalSize < 0 {
			return nil, entryErr(CodeInvalidSizes, i, "negative original size %d", rec.OriginalSize)
		}
		denom := int64(rec.CompressedSize)
		if denom == 0 {
			denom = 1
		}
		if rec.OriginalSize/denom > ExpansionLimit {
			return nil, entryErr(CodeInvalidSizes, i, "expansion ratio %d:%d exceeds %d:1", rec.OriginalSize, rec.CompressedSize, ExpansionLimit)
		}
		if rec.FileOffset < headerSize || rec.FileOffset+int64(rec.CompressedSize) > dirOff {
			return nil, entryErr(CodeInvalidFileOffset, i, "payload [%d,%d) outside data area [%d,%d)", rec.FileOffset, rec.FileOffset+int64(rec.CompressedSize), headerSize, dirOff)
		}

		entries = append(entries, &Entry{
			Name:           string(name),
			OriginalSize:   rec.OriginalSize,
			CompressedSize: rec.CompressedSize,
			CRC32:          rec.CRC32,
			ModTime:        filetimeToTime(rec.ModificationTime),
			FileOffset:     rec.FileOffset,
			Method:         Method(method),
			Level:          level,
		})
	}

	if err := checkOverlap(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// checkOverlap verifies that entry payload ranges are pairwise disjoint.
func checkOverlap(entries []*Entry) error {
	byOffset := make([]int, 0, len(entries))
	for i, e := range entries {
		// An empty payload range is disjoint from every other range.
		if e.CompressedSize > 0 {
			byOffset = append(byOffset, i)
		}
	}
	sort.Slice(byOffset, func(i, j int) bool {
		return entries[byOffset[i]].FileOffset < entries[byOffset[j]].FileOffset
	})
	for i := 1; i < len(byOffset); i++ {
		prev, cur := entries[byOffset[i-1]], entries[byOffset[i]]
		if prev.FileOffset+int64(prev.CompressedSize) > cur.FileOffset {
			return entryErr(CodeInvalidFileOffset, byOffset[i], "payload overlaps entry %d", byOffset[i-1])
		}
	}
	return nil
}

// writeDirectory appends the central directory for entries to w, using
// offsets[i] as entry i's payload offset in the file being written.
func writeDirectory(w io.Writer, entries []*Entry, offsets []int64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(DirSignature)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for i, e := range entries {
		rec := dirRecord{
			FileOffset:        offsets[i],
			OriginalSize:      e.OriginalSize,
			CompressedSize:    e.CompressedSize,
			CRC32:             e.CRC32,
			ModificationTime:  timeToFiletime(e.ModTime),
			CompressionMethod: uint8(e.Method),
			CompressionLevel:  e.Level,
			NameLength:        uint16(len(e.Name)),
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
		if _, err := io.WriteString(w, e.Name); err != nil {
			return err
		}
	}
	return nil
}
