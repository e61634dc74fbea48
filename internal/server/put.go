// PUT staging and DELETE, per spec.md §4.4's "PUT" and "DELETE".
package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/httpfs/httpfs/internal/herr"
	"github.com/httpfs/httpfs/internal/osutil"
	"github.com/httpfs/httpfs/internal/resolver"
)

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) *herr.Error {
	if !s.Config.WritesEnabled {
		return herr.New(http.StatusForbidden, nil)
	}
	if r.Header.Get("Content-Range") != "" {
		return herr.New(http.StatusBadRequest, nil)
	}

	targetPath, ok := s.resolveWriteTarget(r.URL.Path)
	if !ok {
		return herr.New(http.StatusBadRequest, nil)
	}

	if fi, err := os.Stat(targetPath); err == nil && fi.IsDir() {
		w.Header().Set("Allow", joinMethods(s.methodsAllowed()))
		return herr.New(http.StatusMethodNotAllowed, nil)
	}

	if err := os.MkdirAll(s.Config.WriteStagingDir, 0o755); err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}
	// uuid-prefixed so two concurrent PUTs of the same basename don't
	// clobber each other's staged file before the atomic copy.
	stagedPath := filepath.Join(s.Config.WriteStagingDir, uuid.NewString()+"-"+filepath.Base(targetPath))

	staged, err := os.Create(stagedPath)
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}
	if _, err := io.Copy(staged, r.Body); err != nil {
		staged.Close()
		os.Remove(stagedPath)
		return herr.New(http.StatusInternalServerError, err)
	}
	staged.Close()

	_, existedErr := os.Stat(targetPath)
	existed := existedErr == nil

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		os.Remove(stagedPath)
		return herr.New(http.StatusInternalServerError, err)
	}
	if err := atomicCopy(stagedPath, targetPath); err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}

	if existed {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	return nil
}

// resolveWriteTarget resolves urlPath the normal way, but spec.md §4.4
// says symlink-policy violations on PUT still write to "a synthesised
// path under the served root" instead of failing, so an
// ErrOutOfSandbox falls back to a purely lexical join under the root
// that never dereferences a symlink.
func (s *Server) resolveWriteTarget(urlPath string) (string, bool) {
	res, err := s.resolver.Resolve(urlPath, true)
	if res.BadEncoding {
		return "", false
	}
	if err == nil {
		return res.Path, true
	}
	if err == resolver.ErrOutOfSandbox {
		clean := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+urlPath)), "/"))
		return filepath.Join(s.resolver.Root, clean), true
	}
	return "", false
}

// atomicCopy moves src to dst via rename, falling back to a copy+remove
// when they live on different filesystems (EXDEV). The fallback loses
// src's mtime (the copy gets dst's creation time), so it is restored via
// osutil.SetMtime afterward.
func atomicCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	srcFi, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := osutil.SetMtime(dst, srcFi.ModTime()); err != nil {
		return err
	}
	return os.Remove(src)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) *herr.Error {
	if !s.Config.WritesEnabled {
		return herr.New(http.StatusForbidden, nil)
	}

	res, err := s.deleteResolve(r.URL.Path)
	if err != nil {
		return herr.New(http.StatusNotFound, nil)
	}

	if _, statErr := os.Lstat(res); statErr != nil {
		return herr.New(http.StatusNotFound, nil)
	}

	if err := os.RemoveAll(res); err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// deleteResolve resolves without following the final segment's symlink
// (spec.md §4.4: "Symlinks are removed as links, not targets").
func (s *Server) deleteResolve(urlPath string) (string, error) {
	res, err := s.resolver.Resolve(urlPath, false)
	if res.BadEncoding {
		return "", os.ErrInvalid
	}
	if err != nil {
		return "", err
	}
	return res.Path, nil
}
