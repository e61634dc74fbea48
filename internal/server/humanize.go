package server

import (
	"fmt"
	"math"
)

var sizeSuffixes = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "ZiB", "YiB"}

// humanReadableSize renders bytes using the exact rounding rule from
// original_source/src/util/mod.rs's human_readable_size: the exponent is
// clamped to [0, len(sizeSuffixes)-1], the value is bytes/1024^exp, and
// it's rounded to 0.1 precision for exp>0 or to an integer for exp==0.
// github.com/dustin/go-humanize is deliberately NOT used here since its
// rounding differs from this pinned algorithm (see DESIGN.md); it backs
// non-pinned, informational byte counts instead, like the pruner's
// "cache pruned" debug log line in server.go.
func humanReadableSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	exp := int(math.Log(float64(bytes)) / math.Log(1024))
	if exp < 0 {
		exp = 0
	}
	if exp > len(sizeSuffixes)-1 {
		exp = len(sizeSuffixes) - 1
	}

	val := float64(bytes) / math.Pow(1024, float64(exp))
	if exp > 0 {
		val = math.Round(val*10) / 10
		return fmt.Sprintf("%.1f %s", val, sizeSuffixes[exp])
	}
	return fmt.Sprintf("%.0f %s", math.Round(val), sizeSuffixes[exp])
}
