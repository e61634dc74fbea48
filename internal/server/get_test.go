package server

import (
	"testing"
	"time"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return tm
}

func TestParseByteRangeForms(t *testing.T) {
	const size = int64(1000)

	cases := []struct {
		header           string
		wantOK           bool
		wantStart, wantEnd int64
	}{
		{"bytes=0-499", true, 0, 499},
		{"bytes=500-", true, 500, 999},
		{"bytes=-100", true, 900, 999},
		{"bytes=2000-3000", true, 2000, 3000}, // degenerate: start >= size, caller emits 204
		{"bytes=0-499,600-700", false, 0, 0},   // multi-range unsupported
		{"items=0-10", false, 0, 0},            // non-bytes unit
		{"bytes=abc-def", false, 0, 0},
	}

	for _, c := range cases {
		start, end, ok := parseByteRange(c.header, size)
		if ok != c.wantOK {
			t.Errorf("%q: ok=%v, want %v", c.header, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if c.header == "bytes=2000-3000" {
			if start < size {
				t.Errorf("%q: expected start >= size, got %d", c.header, start)
			}
			continue
		}
		if start != c.wantStart || end != c.wantEnd {
			t.Errorf("%q: got (%d,%d), want (%d,%d)", c.header, start, end, c.wantStart, c.wantEnd)
		}
	}
}

func TestRawLastModifiedFractional(t *testing.T) {
	noFrac := mustParseTime(t, "2024-01-02T03:04:05Z")
	if got := rawLastModified(noFrac); got != "2024-01-02T03:04:05Z" {
		t.Errorf("no-fraction format = %q", got)
	}

	withFrac := mustParseTime(t, "2024-01-02T03:04:05.5Z")
	if got := rawLastModified(withFrac); got == "2024-01-02T03:04:05Z" {
		t.Errorf("fractional timestamp collapsed to whole-second format: %q", got)
	}
}
