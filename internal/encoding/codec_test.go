package encoding

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeFileReturnsEncodedSizeNotSourceSize(t *testing.T) {
	src := strings.Repeat("a", 64*1024)

	var dst bytes.Buffer
	n, err := EncodeFile(&dst, strings.NewReader(src), Gzip)
	if err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	if n != int64(dst.Len()) {
		t.Fatalf("EncodeFile returned %d, want bytes actually written to dst (%d)", n, dst.Len())
	}
	if n >= int64(len(src)) {
		t.Fatalf("EncodeFile returned %d, expected it well under the %d-byte source for highly compressible input", n, len(src))
	}
}
