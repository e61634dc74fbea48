// Package encoding negotiates a Content-Encoding from a client's
// Accept-Encoding header and adapts the gzip/deflate/brotli/bzip2/zstd
// codecs behind one interface, per spec.md §4.2. The quality-list parser
// is grounded on modules/caddyhttp/encode/encode.go's acceptedEncodings;
// the supported-tag set and gain/size-gate rules are spec.md's own.
package encoding

import (
	"sort"
	"strconv"
	"strings"
)

// Tag identifies a content-encoding.
type Tag string

const (
	Gzip     Tag = "gzip"
	Deflate  Tag = "deflate"
	Brotli   Tag = "br"
	Bzip2    Tag = "bzip2"
	Zstd     Tag = "zstd"
	Identity Tag = "identity"
)

// Supported lists the encodings the server can produce, in preference
// order; Negotiate answers "*" with its first entry.
var Supported = []Tag{Gzip, Deflate, Brotli, Bzip2, Zstd}

// MinEncodingSize and MaxEncodingSize bound which files are even
// considered for encoding (spec.md §4.2).
const (
	MinEncodingSize = 1024
	MaxEncodingSize = 100 * 1024 * 1024
)

// MinEncodingGain is the identity/encoded size ratio an encoding must
// reach to be kept (spec.md §4.2, §4.3, glossary "Gain").
const MinEncodingGain = 1.1

type preference struct {
	tag   string
	q     float64
	order int
}

// Negotiate parses an Accept-Encoding header value and returns the best
// supported tag, or Identity if nothing else matches. Entries with q=0
// are dropped; ties are broken by the order the client listed them in.
func Negotiate(acceptEncoding string) Tag {
	if strings.TrimSpace(acceptEncoding) == "" {
		return Identity
	}

	var prefs []preference
	for i, part := range strings.Split(acceptEncoding, ",") {
		fields := strings.Split(part, ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = parsed
				}
			}
		}
		if q <= 0.00001 {
			continue
		}
		prefs = append(prefs, preference{tag: name, q: q, order: i})
	}

	sort.SliceStable(prefs, func(i, j int) bool {
		return prefs[i].q > prefs[j].q
	})

	supportedIndex := func(name string) int {
		for i, s := range Supported {
			if string(s) == name {
				return i
			}
		}
		return -1
	}

	for _, p := range prefs {
		if p.tag == "*" {
			return Supported[0]
		}
		if supportedIndex(p.tag) >= 0 {
			return Tag(p.tag)
		}
	}
	return Identity
}

// CacheTag returns the exact string used to disambiguate cache keys for
// this encoding, per spec.md §4.2 ("stringified, including x- prefix").
func (t Tag) CacheTag() string {
	return string(t)
}
