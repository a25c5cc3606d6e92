package lark

import "time"

// Timestamps are stored as Windows FILETIME: 100-nanosecond ticks since
// 1601-01-01 UTC. The conversion preserves exact tick values, so the
// bytes written for a given instant round-trip.
const filetimeEpochDelta = 116444736000000000 // ticks between 1601 and 1970

func timeToFiletime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()/100 + filetimeEpochDelta
}

func filetimeToTime(ft int64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	ticks := ft - filetimeEpochDelta
	return time.Unix(ticks/1e7, ticks%1e7*100).UTC()
}
