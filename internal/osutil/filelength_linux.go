//go:build linux

package osutil

import (
	"os"

	"golang.org/x/sys/unix"
)

// FileLength returns the byte length of the file at path. For block
// devices, os.FileInfo.Size is usually zero, so the BLKGETSIZE64 ioctl is
// used instead, matching the original's Linux-specific block_device_size.
func FileLength(path string, fi os.FileInfo) (uint64, error) {
	if !IsDevice(fi) || fi.Mode()&os.ModeDevice == 0 || fi.Mode()&os.ModeCharDevice != 0 {
		return uint64(fi.Size()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return uint64(fi.Size()), nil
	}
	return uint64(size), nil
}
