//go:build !linux

package osutil

import "os"

// FileLength returns fi.Size(); non-Linux platforms have no portable
// block-device ioctl, so the original's fallback (plain stat size) is
// all that's available here.
func FileLength(path string, fi os.FileInfo) (uint64, error) {
	return uint64(fi.Size()), nil
}
