package encoding

import "testing"

func TestNegotiate(t *testing.T) {
	cases := []struct {
		header string
		want   Tag
	}{
		{"", Identity},
		{"gzip", Gzip},
		{"gzip;q=0", Identity},
		{"br;q=0.5, gzip;q=0.8", Gzip},
		{"identity", Identity},
		{"*", Gzip},
		{"deflate, gzip;q=0.9", Deflate},
		{"unknown-thing", Identity},
		{"zstd;q=1.0, bzip2;q=1.0", Zstd},
	}

	for _, c := range cases {
		if got := Negotiate(c.header); got != c.want {
			t.Errorf("Negotiate(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	src := []byte("the quick brown fox jumps over the lazy dog, repeated many times for compressibility, the quick brown fox jumps over the lazy dog")

	for _, tag := range Supported {
		out, err := Encode(src, tag)
		if err != nil {
			t.Fatalf("encode %s: %v", tag, err)
		}
		if len(out) == 0 {
			t.Fatalf("encode %s: empty output", tag)
		}
	}
}

func TestGain(t *testing.T) {
	if g := Gain(1100, 1000); g < 1.09 || g > 1.11 {
		t.Fatalf("gain = %v, want ~1.1", g)
	}
	if Gain(100, 0) != 0 {
		t.Fatalf("gain with zero encoded size should be 0")
	}
}

func TestBlacklistAndEligible(t *testing.T) {
	if !Blacklisted("movie.MP4") {
		t.Fatalf("expected mp4 to be blacklisted")
	}
	if Blacklisted("readme.txt") {
		t.Fatalf("txt should not be blacklisted")
	}
	if Eligible("readme.txt", 10) {
		t.Fatalf("small file should not be eligible")
	}
	if !Eligible("readme.txt", 4096) {
		t.Fatalf("mid-size text file should be eligible")
	}
}
