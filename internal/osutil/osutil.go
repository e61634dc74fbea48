// Package osutil collects the handful of platform-sensitive filesystem
// checks the dispatcher needs: whether a path is a device node, its true
// length (block devices don't report a useful size via stat), whether it
// is executable, and setting its modification time. The source this was
// ported from (original_source/src/util/os/*.rs) spread these across
// Windows/macOS/Linux files; os.Chtimes is already portable in Go, so
// SetMtime needs no platform split at all.
package osutil

import (
	"os"
	"time"
)

// IsDevice reports whether fi describes a block, character, named-pipe,
// or socket special file rather than a regular file or directory.
func IsDevice(fi os.FileInfo) bool {
	mode := fi.Mode()
	return mode&(os.ModeDevice|os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0
}

// FileExecutable reports whether any of the owner/group/other executable
// bits are set in fi.Mode().Perm(). There is no per-platform special case:
// where the platform reports no executable bits, the result is false.
func FileExecutable(fi os.FileInfo) bool {
	return fi.Mode().Perm()&0o111 != 0
}

// SetMtime sets both the access and modification time of path to t.
// os.Chtimes is already portable, unlike the Rust original which needed
// a Windows-specific SetFileTime/FILETIME path.
func SetMtime(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
