// Package archive streams tar and zip archives of a file or directory
// subtree on the fly, per spec.md §4.5. Per-entry metadata rules (symlink
// handling, Stored-vs-Deflated decision, large-file flag, Unix
// permission bits, the 0x5455 "UT" timestamp extra field, and the
// TOCTOU re-check) are grounded on
// original_source/src/ops/archive.rs's write_tar_body/write_zip_body.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/httpfs/httpfs/internal/encoding"
	"github.com/httpfs/httpfs/internal/osutil"
)

// Type identifies which archive format to stream.
type Type int

const (
	Tar Type = iota
	Zip
)

// ParseAcceptArchiveType scans an Accept header's media-type list for a
// tar/zip match, per spec.md §4.4's GET trigger path.
func ParseAcceptArchiveType(accept string) (Type, bool) {
	for _, mt := range splitAccept(accept) {
		switch mt {
		case "application/x-tar", "application/tar":
			return Tar, true
		case "application/zip", "application/x-zip-compressed":
			return Zip, true
		}
	}
	return 0, false
}

func splitAccept(accept string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(accept); i++ {
		if i == len(accept) || accept[i] == ',' {
			part := accept[start:i]
			// trim whitespace and any ;q=... parameter
			for len(part) > 0 && (part[0] == ' ' || part[0] == '\t') {
				part = part[1:]
			}
			for j := 0; j < len(part); j++ {
				if part[j] == ';' {
					part = part[:j]
					break
				}
			}
			for len(part) > 0 && (part[len(part)-1] == ' ' || part[len(part)-1] == '\t') {
				part = part[:len(part)-1]
			}
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

// Suffix returns the filename suffix used in the Content-Disposition
// header for this archive type.
func (t Type) Suffix() string {
	if t == Zip {
		return ".zip"
	}
	return ".tar"
}

// WriteTar streams path (a file or directory) as a tar archive into dst.
// Symlinks are not followed; a directory is archived as its contents at
// the archive root, a single file under its own basename. Uses a 128 KiB
// buffered writer, matching the original's BufWriter sizing.
func WriteTar(dst io.Writer, path string) error {
	bw := bufio.NewWriterSize(dst, 128*1024)
	tw := tar.NewWriter(bw)

	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}

	if !fi.IsDir() {
		if err := addTarFile(tw, path, filepath.Base(path)); err != nil {
			return err
		}
	} else {
		if err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if p == path {
				return nil
			}
			rel, err := filepath.Rel(path, p)
			if err != nil {
				return err
			}
			return addTarEntry(tw, p, rel, info)
		}); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func addTarFile(tw *tar.Writer, p, name string) error {
	fi, err := os.Lstat(p)
	if err != nil {
		return err
	}
	return addTarEntry(tw, p, name, fi)
}

func addTarEntry(tw *tar.Writer, p, name string, fi os.FileInfo) error {
	var link string
	if fi.Mode()&os.ModeSymlink != 0 {
		var err error
		link, err = os.Readlink(p)
		if err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(fi, link)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	if fi.IsDir() && hdr.Name != "" && hdr.Name[len(hdr.Name)-1] != '/' {
		hdr.Name += "/"
	}
	// Regular files get all three execute bits when osutil.FileExecutable
	// sees any execute bit in the file's permissions.
	if fi.Mode().IsRegular() && osutil.FileExecutable(fi) {
		hdr.Mode |= 0o111
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if fi.Mode().IsRegular() {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
	}
	return nil
}

// largeFileThreshold is the size at which zip entries get the large-file
// flag, per spec.md §4.5 ("for files >= 2 GiB").
const largeFileThreshold = 2 * 1024 * 1024 * 1024

// WriteZip streams path as a zip archive into dst. allowEncoding mirrors
// the original's "encoded_temp_dir.is_some()" check: when false, every
// entry is Stored regardless of size/blacklist eligibility.
func WriteZip(dst io.Writer, path string, allowEncoding bool) error {
	zw := zip.NewWriter(dst)

	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}

	if !fi.IsDir() {
		if err := addZipEntry(zw, path, filepath.Base(path), fi, allowEncoding); err != nil {
			return err
		}
	} else {
		if err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if p == path {
				return nil
			}
			rel, err := filepath.Rel(path, p)
			if err != nil {
				return err
			}
			return addZipEntry(zw, p, rel, info, allowEncoding)
		}); err != nil {
			return err
		}
	}

	return zw.Close()
}

func addZipEntry(zw *zip.Writer, p, name string, fi os.FileInfo, allowEncoding bool) error {
	name = filepath.ToSlash(name)

	fh := &zip.FileHeader{Name: name}
	fh.SetModTime(fi.ModTime())
	fh.Modified = fi.ModTime()
	fh.Extra = utExtraField(fi.ModTime())

	mode := fi.Mode()
	unixMode := mode.Perm()
	if mode.IsDir() {
		unixMode |= 0o111
		if name != "" && name[len(name)-1] != '/' {
			fh.Name += "/"
		}
	} else if mode.IsRegular() && osutil.FileExecutable(fi) {
		unixMode |= 0o111
	}
	// CreatorVersion high byte 3 marks "made on Unix", which is what
	// lets extractors trust ExternalAttrs as Unix permission bits.
	fh.CreatorVersion = 3<<8 | 20
	fh.ExternalAttrs = uint32(unixMode) << 16

	switch {
	case mode&os.ModeSymlink != 0:
		fh.ExternalAttrs = uint32(mode.Perm()|os.ModeSymlink) << 16
		fh.Method = zip.Store
		w, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		target, err := os.Readlink(p)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, target)
		return err

	case mode.IsDir():
		fh.Method = zip.Store
		_, err := zw.CreateHeader(fh)
		return err

	default:
		fh.Method = zip.Store
		if allowEncoding && encoding.Eligible(name, fi.Size()) {
			fh.Method = zip.Deflate
		}
		if fi.Size() >= largeFileThreshold {
			fh.UncompressedSize64 = uint64(fi.Size())
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		// TOCTOU guard: re-check identity after open, matching the
		// original's dev/inode re-check.
		refi, err := f.Stat()
		if err != nil {
			return err
		}
		if !os.SameFile(fi, refi) {
			return nil
		}

		w, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		return err
	}
}

// utExtraField builds the 0x5455 "UT" timestamp extra field with the
// mtime/atime/ctime slots as little-endian Unix seconds. All three slots
// carry the file's mtime; the real access and change times are not read.
func utExtraField(mtime time.Time) []byte {
	atime, ctime := mtime, mtime

	payload := make([]byte, 1+4+4+4)
	payload[0] = 0x07 // flags: mtime, atime, ctime present
	binary.LittleEndian.PutUint32(payload[1:5], uint32(mtime.Unix()))
	binary.LittleEndian.PutUint32(payload[5:9], uint32(atime.Unix()))
	binary.LittleEndian.PutUint32(payload[9:13], uint32(ctime.Unix()))

	extra := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint16(extra[0:2], 0x5455)
	binary.LittleEndian.PutUint16(extra[2:4], uint16(len(payload)))
	copy(extra[4:], payload)
	return extra
}
