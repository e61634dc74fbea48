// Package bandwidth implements the chunked, paced response writer from
// spec.md §4.6. The algorithm is a literal port of
// original_source/src/ops/bandwidth.rs's LimitBandwidthWriter: it is a
// deterministic, testable contract (exact chunk-size formula, a flush
// and 1ms sleep per chunk, Write always reporting the full buffer
// length), so it is implemented directly rather than through a
// token-bucket rate limiter (see DESIGN.md for why golang.org/x/time/rate
// was considered and rejected).
package bandwidth

import (
	"io"
	"time"
)

// DefaultSleep is the pause after each chunk is written and flushed.
const DefaultSleep = time.Millisecond

// Writer paces writes to Output at roughly BytesPerSecond.
type Writer struct {
	Output   io.Writer
	chunkLen int
}

// New returns a Writer pacing writes to output at bytesPerSecond.
// chunkLen = bytesPerSecond * sleep_ms / 1000, with a floor of 1 byte so
// zero throughput configurations still make progress.
func New(output io.Writer, bytesPerSecond uint64) *Writer {
	chunk := int(bytesPerSecond * uint64(DefaultSleep/time.Millisecond) / 1000)
	if chunk < 1 {
		chunk = 1
	}
	return &Writer{Output: output, chunkLen: chunk}
}

// Write paces buf out in chunks and reports the full buffer length,
// matching the original's write()/write_all() split.
func (w *Writer) Write(buf []byte) (int, error) {
	if err := w.writeAll(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (w *Writer) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n := w.chunkLen
		if n > len(buf) {
			n = len(buf)
		}
		if _, err := w.Output.Write(buf[:n]); err != nil {
			return err
		}
		switch f := w.Output.(type) {
		case interface{ Flush() error }:
			if err := f.Flush(); err != nil {
				return err
			}
		case interface{ Flush() }:
			f.Flush()
		}
		time.Sleep(DefaultSleep)
		buf = buf[n:]
	}
	return nil
}
