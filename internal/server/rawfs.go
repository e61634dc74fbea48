// Raw-FS metadata responses (spec.md §4.4's "GET raw-fs metadata"),
// grounded on the wire shape of
// original_source/vendor/rfsapi-0.2.0/src/lib.rs's FilesetData/RawFileData.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/httpfs/httpfs/internal/herr"
)

type rawFileData struct {
	MimeType     string `json:"mime_type"`
	Name         string `json:"name"`
	LastModified string `json:"last_modified"`
	Size         uint64 `json:"size"`
	IsFile       bool   `json:"is_file"`
}

type filesetData struct {
	WritesSupported bool          `json:"writes_supported"`
	IsRoot          bool          `json:"is_root"`
	IsFile          bool          `json:"is_file"`
	Files           []rawFileData `json:"files"`
}

// rawLastModified formats t as RFC3339 UTC, with fractional seconds only
// when non-zero, matching RawFileData's serializer.
func rawLastModified(t time.Time) string {
	u := t.UTC()
	if u.Nanosecond() == 0 {
		return u.Format("2006-01-02T15:04:05Z")
	}
	return u.Format("2006-01-02T15:04:05.000000000Z")
}

func (s *Server) handleRawFSFile(w http.ResponseWriter, fsPath string, fi os.FileInfo, withBody bool) *herr.Error {
	fsd := filesetData{
		WritesSupported: s.Config.WritesEnabled,
		IsRoot:          false,
		IsFile:          true,
		Files: []rawFileData{{
			MimeType:     s.mimeFor(fsPath),
			Name:         filepath.Base(fsPath),
			LastModified: rawLastModified(fi.ModTime()),
			Size:         uint64(fi.Size()),
			IsFile:       true,
		}},
	}
	return s.writeRawFS(w, fsd, withBody)
}

func (s *Server) handleRawFSDir(w http.ResponseWriter, r *http.Request, dirPath string, withBody bool) *herr.Error {
	dirents, err := os.ReadDir(dirPath)
	if err != nil {
		return statError(err)
	}

	var files []rawFileData
	for _, de := range dirents {
		childPath := filepath.Join(dirPath, de.Name())
		if !s.entryPassesSymlinkPolicy(childPath) {
			continue
		}

		info, ierr := de.Info()
		if ierr != nil {
			continue
		}
		mt := s.mimeFor(de.Name())
		if info.IsDir() {
			mt = "text/directory"
		}
		files = append(files, rawFileData{
			MimeType:     mt,
			Name:         de.Name(),
			LastModified: rawLastModified(info.ModTime()),
			Size:         uint64(info.Size()),
			IsFile:       !info.IsDir(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].IsFile != files[j].IsFile {
			return !files[i].IsFile
		}
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})

	fsd := filesetData{
		WritesSupported: s.Config.WritesEnabled,
		IsRoot:          filepath.Clean(dirPath) == filepath.Clean(s.resolver.Root),
		IsFile:          false,
		Files:           files,
	}
	return s.writeRawFS(w, fsd, withBody)
}

func (s *Server) writeRawFS(w http.ResponseWriter, fsd filesetData, withBody bool) *herr.Error {
	body, err := json.Marshal(fsd)
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Raw-Filesystem-API", "1")
	w.WriteHeader(http.StatusOK)
	if withBody {
		w.Write(body)
	}
	return nil
}
