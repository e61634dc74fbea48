package encoding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// NewEncoderWriter wraps dst with a streaming encoder for tag. Grounded
// on modules/caddyhttp/encode/{brotli,zstd}.go for construction options;
// bzip2 has no teacher codec (compress/bzip2 in stdlib is decode-only),
// so dsnet/compress/bzip2 (seen in nabbar-golib's go.mod) backs it.
func NewEncoderWriter(dst io.Writer, tag Tag) (io.WriteCloser, error) {
	switch tag {
	case Gzip:
		return gzip.NewWriter(dst), nil
	case Deflate:
		return flate.NewWriter(dst, flate.DefaultCompression)
	case Brotli:
		return brotli.NewWriter(dst), nil
	case Bzip2:
		return bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	case Zstd:
		return zstd.NewWriter(dst,
			zstd.WithWindowSize(128<<10),
			zstd.WithEncoderConcurrency(1),
			zstd.WithZeroFrames(true))
	default:
		return nil, fmt.Errorf("encoding: unsupported tag %q", tag)
	}
}

// Encode compresses src with tag and returns the result. If the encoder
// fails mid-stream the caller should fall back to identity (spec.md §4.2).
func Encode(src []byte, tag Tag) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewEncoderWriter(&buf, tag)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// countingWriter tallies bytes actually written to an underlying writer,
// used so EncodeFile can report the encoded (post-compression) size
// rather than the uncompressed count io.Copy sees from src.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// EncodeFile streams src through an encoder for tag into dst, returning
// the number of encoded bytes written to dst (not the uncompressed
// count read from src).
func EncodeFile(dst io.Writer, src io.Reader, tag Tag) (int64, error) {
	cw := &countingWriter{w: dst}
	w, err := NewEncoderWriter(cw, tag)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(w, src); err != nil {
		return cw.n, err
	}
	if err := w.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Gain reports identitySize / encodedSize, the ratio spec.md's glossary
// defines as "Gain"; an encoding is useful when this is >= MinEncodingGain.
func Gain(identitySize, encodedSize int64) float64 {
	if encodedSize <= 0 {
		return 0
	}
	return float64(identitySize) / float64(encodedSize)
}
