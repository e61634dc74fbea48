package server

import (
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/httpfs/httpfs/internal/archive"
	"github.com/httpfs/httpfs/internal/encoding"
	"github.com/httpfs/httpfs/internal/herr"
	"github.com/httpfs/httpfs/internal/osutil"
	"github.com/httpfs/httpfs/internal/resolver"
)

// indexExtensions are the extensions --strip-extensions tries, in order,
// when the requested path doesn't exist and carries no extension of its
// own, matching the original's INDEX_EXTENSIONS table.
var indexExtensions = []string{"html", "htm", "shtml"}

// handleGet implements spec.md §4.4's GET pipeline; withBody is false for
// HEAD, which runs the exact same logic but discards the body (spec.md
// §4.4, "HEAD = GET with body discarded").
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, withBody bool) *herr.Error {
	if t, ok := archive.ParseAcceptArchiveType(r.Header.Get("Accept")); ok {
		return s.streamArchive(w, r, t, withBody)
	}

	res, err := s.resolver.Resolve(r.URL.Path, true)
	if res.BadEncoding {
		return herr.New(http.StatusBadRequest, fmt.Errorf("malformed percent-encoding in path"))
	}
	if err == resolver.ErrOutOfSandbox {
		return herr.New(http.StatusNotFound, nil)
	}
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}

	targetPath := res.Path
	fi, statErr := os.Stat(targetPath)
	if statErr != nil && s.Config.StripExtensions && filepath.Ext(targetPath) == "" {
		if stripped, sfi, ok := tryStripExtensions(targetPath); ok {
			targetPath, fi, statErr = stripped, sfi, nil
		}
	}
	if statErr != nil {
		return statError(statErr)
	}

	if fi.IsDir() {
		return s.handleDirectory(w, r, targetPath, withBody)
	}

	if r.Header.Get("X-Raw-Filesystem-API") == "1" {
		return s.handleRawFSFile(w, targetPath, fi, withBody)
	}

	if rng := r.Header.Get("Range"); rng != "" {
		return s.handleRangeGet(w, r, targetPath, fi, rng, withBody)
	}

	return s.handlePlainGet(w, r, targetPath, fi, withBody)
}

// tryStripExtensions looks for path.<ext> for each of indexExtensions, in
// order, returning the first that exists (spec.md §9 / §6's
// --strip-extensions, grounded on original_source/src/ops/mod.rs's
// handle_get: "req_p.with_extension(ext)").
func tryStripExtensions(path string) (string, os.FileInfo, bool) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range indexExtensions {
		candidate := base + "." + ext
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, fi, true
		}
	}
	return "", nil, false
}

func statError(err error) *herr.Error {
	if os.IsNotExist(err) {
		return herr.New(http.StatusNotFound, nil)
	}
	if os.IsPermission(err) {
		return herr.New(http.StatusForbidden, err)
	}
	return herr.New(http.StatusInternalServerError, err)
}

// mimeFor resolves a file's Content-Type, honouring --mime-type overrides
// before falling back to the standard extension table.
func (s *Server) mimeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if m, ok := s.Config.MimeOverrides[strings.TrimPrefix(ext, ".")]; ok {
			return m
		}
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m
	}
	return "application/octet-stream"
}

// handlePlainGet serves a whole file, going through the encoding cache
// when the file is size-eligible, per spec.md §4.4's "GET file
// (non-range)" and §4.3.
func (s *Server) handlePlainGet(w http.ResponseWriter, r *http.Request, fsPath string, fi os.FileInfo, withBody bool) *herr.Error {
	w.Header().Set("Content-Type", s.mimeFor(fsPath))
	w.Header().Set("Last-Modified", fi.ModTime().UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")

	size, err := osutil.FileLength(fsPath, fi)
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}
	trueSize := int64(size)

	tag := s.negotiatedTag(r)

	if s.files != nil && tag != encoding.Identity && encoding.Eligible(fsPath, trueSize) {
		entry, err := s.files.GetOrEncodeFile(fsPath, trueSize, filepath.Ext(fsPath), tag)
		if err != nil {
			return herr.New(http.StatusInternalServerError, err)
		}
		if entry.Useful {
			w.Header().Set("Content-Encoding", string(tag))
			w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
			w.WriteHeader(http.StatusOK)
			if withBody {
				serveFileBody(w, entry.Path)
			}
			return nil
		}
	}

	w.Header().Set("Content-Length", strconv.FormatInt(trueSize, 10))
	w.WriteHeader(http.StatusOK)
	if withBody {
		serveFileBody(w, fsPath)
	}
	return nil
}

func serveFileBody(w http.ResponseWriter, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	io.Copy(w, f)
}

// handleRangeGet implements spec.md §4.4's "GET file range": single
// bytes= ranges only, with the from-to / from- / -suffix forms and the
// degenerate "start past end of file" 204 case.
func (s *Server) handleRangeGet(w http.ResponseWriter, r *http.Request, fsPath string, fi os.FileInfo, rangeHeader string, withBody bool) *herr.Error {
	rawSize, err := osutil.FileLength(fsPath, fi)
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}
	size := int64(rawSize)
	start, end, ok := parseByteRange(rangeHeader, size)
	if !ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		fmt.Fprintf(w, "unsatisfiable range: %s", rangeHeader)
		return nil
	}

	if start >= size {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	length := end - start + 1
	w.Header().Set("Content-Type", s.mimeFor(fsPath))
	w.Header().Set("Last-Modified", fi.ModTime().UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)

	if !withBody {
		return nil
	}

	f, err := os.Open(fsPath)
	if err != nil {
		return nil
	}
	defer f.Close()
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil
	}
	io.CopyN(w, f, length)
	return nil
}

// parseByteRange parses a single "bytes=..." range header against size.
// Multi-range and non-bytes units report ok=false (416); a start past
// size reports ok=true with start>=size so the caller emits 204, per
// spec.md §4.4.
func parseByteRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	from, to, hasDash := strings.Cut(spec, "-")
	if !hasDash {
		return 0, 0, false
	}

	switch {
	case from == "" && to != "":
		// -suffix: last N bytes
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true

	case from != "" && to == "":
		// from-
		s, err := strconv.ParseInt(from, 10, 64)
		if err != nil || s < 0 {
			return 0, 0, false
		}
		return s, size - 1, true

	case from != "" && to != "":
		s, err1 := strconv.ParseInt(from, 10, 64)
		e, err2 := strconv.ParseInt(to, 10, 64)
		if err1 != nil || err2 != nil || s < 0 || e < s {
			return 0, 0, false
		}
		if e > size-1 {
			e = size - 1
		}
		return s, e, true
	}
	return 0, 0, false
}

// handleDirectory implements spec.md §4.4's "GET directory": the index
// lookup/redirect, the listing-or-404 decision, and raw-fs dispatch.
func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request, dirPath string, withBody bool) *herr.Error {
	if s.Config.CheckIndices {
		for _, name := range []string{"index.html", "index.htm", "index.shtml"} {
			idxPath := filepath.Join(dirPath, name)
			idxFi, err := os.Stat(idxPath)
			if err != nil || idxFi.IsDir() {
				continue
			}
			if strings.HasSuffix(r.URL.Path, "/") {
				return s.handlePlainGet(w, r, idxPath, idxFi, withBody)
			}
			location := s.redirectLocation(r)
			w.Header().Set("Location", location)
			w.WriteHeader(http.StatusSeeOther)
			return nil
		}
	}

	if r.Header.Get("X-Raw-Filesystem-API") == "1" {
		return s.handleRawFSDir(w, r, dirPath, withBody)
	}

	if !s.Config.GenerateListings {
		return herr.New(http.StatusNotFound, nil)
	}

	return s.handleListing(w, r, dirPath, withBody)
}

// redirectLocation mirrors the served URL with a trailing slash added,
// rewriting through a configured proxy-redirect header when the remote
// matches a trusted CIDR (spec.md §4.4).
func (s *Server) redirectLocation(r *http.Request) string {
	target := r.URL.Path + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	for _, pm := range s.Config.ProxyRedirNetworks {
		if remoteIPMatches(r, pm.CIDR) {
			if h := r.Header.Get(pm.Header); h != "" {
				return path.Clean(h) + "/"
			}
		}
	}
	return target
}

// remoteIPMatches reports whether r's remote address falls in cidr,
// grounded on modules/caddyhttp/reverseproxy's trusted-proxy CIDR checks.
func remoteIPMatches(r *http.Request, cidr *net.IPNet) bool {
	if cidr == nil {
		return false
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && cidr.Contains(ip)
}
