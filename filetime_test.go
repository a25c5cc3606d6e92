package lark

import (
	"testing"
	"time"
)

func TestFiletimeEpoch(t *testing.T) {
	t.Parallel()

	// The Unix epoch expressed in 100 ns ticks since 1601.
	if got := timeToFiletime(time.Unix(0, 0)); got != filetimeEpochDelta {
		t.Fatalf("filetime of Unix epoch = %d, want %d", got, int64(filetimeEpochDelta))
	}
	if got := filetimeToTime(filetimeEpochDelta); !got.Equal(time.Unix(0, 0)) {
		t.Fatalf("time of %d = %v, want Unix epoch", int64(filetimeEpochDelta), got)
	}
}

func TestFiletimeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ft := range []int64{
		filetimeEpochDelta,
		filetimeEpochDelta + 1,
		133505812923456789, // an arbitrary 2024 instant
		116444736000000000 + 1e7,
	} {
		if got := timeToFiletime(filetimeToTime(ft)); got != ft {
			t.Errorf("round trip of %d = %d", ft, got)
		}
	}

	instants := []time.Time{
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 100, time.UTC),
		time.Now().Truncate(100 * time.Nanosecond),
	}
	for _, ts := range instants {
		if got := filetimeToTime(timeToFiletime(ts)); !got.Equal(ts) {
			t.Errorf("round trip of %v = %v", ts, got)
		}
	}
}

func TestFiletimeZero(t *testing.T) {
	t.Parallel()

	if got := timeToFiletime(time.Time{}); got != 0 {
		t.Fatalf("filetime of zero time = %d, want 0", got)
	}
	if got := filetimeToTime(0); !got.IsZero() {
		t.Fatalf("time of filetime 0 = %v, want zero", got)
	}
}
