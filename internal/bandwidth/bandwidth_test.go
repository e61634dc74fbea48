package bandwidth

import (
	"bytes"
	"testing"
)

func TestWriteReportsFullLength(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, 1000)

	data := make([]byte, 37)
	for i := range data {
		data[i] = byte(i)
	}

	n, err := w.Write(data)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(data) {
		t.Fatalf("n = %d, want %d", n, len(data))
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("output mismatch")
	}
}

func TestChunkLenFloorsAtOne(t *testing.T) {
	w := New(&bytes.Buffer{}, 0)
	if w.chunkLen != 1 {
		t.Fatalf("chunkLen = %d, want 1", w.chunkLen)
	}
}
