package lark

import "time"

// EntryInfo is a read-only view of one entry with its derived
// compression ratio (compressed over original; 1 for empty entries).
type EntryInfo struct {
	Name           string
	OriginalSize   int64
	CompressedSize uint32
	Ratio          float64
	CRC32          uint32
	ModTime        time.Time
	Method         Method
	Level          uint8
}

// MethodStats aggregates the entries stored with one method.
type MethodStats struct {
	Entries        int
	OriginalSize   int64
	CompressedSize int64
}

// Listing is a snapshot of the archive's current state. It is a pure
// function of the in-memory entry list and performs no I/O.
type Listing struct {
	Entries             []EntryInfo
	TotalOriginalSize   int64
	TotalCompressedSize int64
	Ratio               float64
	ByMethod            map[Method]MethodStats
}

// List returns a snapshot of the entries in insertion order.
func (a *Archive) List() Listing {
	l := Listing{
		Entries:  make([]EntryInfo, 0, len(a.entries)),
		ByMethod: make(map[Method]MethodStats),
	}
	for _, e := range a.entries {
		ratio := 1.0
		if e.OriginalSize > 0 {
			ratio = float64(e.CompressedSize) / float64(e.OriginalSize)
		}
		l.Entries = append(l.Entries, EntryInfo{
			Name:           e.Name,
			OriginalSize:   e.OriginalSize,
			CompressedSize: e.CompressedSize,
			Ratio:          ratio,
			CRC32:          e.CRC32,
			ModTime:        e.ModTime,
			Method:         e.Method,
			Level:          e.Level,
		})
		l.TotalOriginalSize += e.OriginalSize
		l.TotalCompressedSize += int64(e.CompressedSize)
		st := l.ByMethod[e.Method]
		st.Entries++
		st.OriginalSize += e.OriginalSize
		st.CompressedSize += int64(e.CompressedSize)
		l.ByMethod[e.Method] = st
	}
	l.Ratio = 1.0
	if l.TotalOriginalSize > 0 {
		l.Ratio = float64(l.TotalCompressedSize) / float64(l.TotalOriginalSize)
	}
	return l
}
