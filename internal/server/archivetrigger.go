// Archive dispatch: the GET Accept-header trigger and the POST
// sentinel-body trigger, per spec.md §4.4 "Archive dispatch" and §6
// "Archive trigger bodies".
package server

import (
	"bufio"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/httpfs/httpfs/internal/archive"
	"github.com/httpfs/httpfs/internal/herr"
	"github.com/httpfs/httpfs/internal/resolver"
)

const maxArchiveBodyBytes = 4096

func (s *Server) handlePostArchive(w http.ResponseWriter, r *http.Request) *herr.Error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		return herr.New(http.StatusMethodNotAllowed, nil)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxArchiveBodyBytes))
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}

	t, ok := parseArchiveTriggerBody(body)
	if !ok {
		w.Header().Set("Allow", joinMethods(s.methodsAllowed()))
		return herr.New(http.StatusMethodNotAllowed, nil)
	}

	return s.streamArchive(w, r, t, true)
}

// parseArchiveTriggerBody scans body for the three sentinel lines, in any
// order, per spec.md §4.4: vendor=http, archive=yes-i-really-want-one,
// type=tar|zip. Unknown keys are ignored; missing vendor/really sentinels
// fail the match.
func parseArchiveTriggerBody(body []byte) (archive.Type, bool) {
	var haveVendor, haveReally bool
	var t archive.Type
	var haveType bool

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "vendor":
			haveVendor = value == "http"
		case "archive":
			haveReally = value == "yes-i-really-want-one"
		case "type":
			switch value {
			case "tar":
				t, haveType = archive.Tar, true
			case "zip":
				t, haveType = archive.Zip, true
			}
		}
	}

	if haveVendor && haveReally && haveType {
		return t, true
	}
	return 0, false
}

// streamArchive resolves r.URL.Path and streams it as a tar or zip
// archive, per spec.md §4.5.
func (s *Server) streamArchive(w http.ResponseWriter, r *http.Request, t archive.Type, withBody bool) *herr.Error {
	res, err := s.resolver.Resolve(r.URL.Path, true)
	if res.BadEncoding {
		return herr.New(http.StatusBadRequest, nil)
	}
	if err == resolver.ErrOutOfSandbox {
		return herr.New(http.StatusNotFound, nil)
	}
	if err != nil {
		return herr.New(http.StatusInternalServerError, err)
	}

	if _, statErr := os.Stat(res.Path); statErr != nil {
		return statError(statErr)
	}

	name := strings.TrimSuffix(strings.Trim(r.URL.Path, "/"), "/")
	if name == "" {
		name = "all"
	} else {
		name = filepath.Base(name)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+t.Suffix()+`"`)
	w.WriteHeader(http.StatusOK)

	if !withBody {
		return nil
	}

	var archErr error
	if t == archive.Zip {
		archErr = archive.WriteZip(w, res.Path, s.Config.EncodingEnabled)
	} else {
		archErr = archive.WriteTar(w, res.Path)
	}
	if archErr != nil {
		s.Log.Debug("archive stream error", zap.Error(archErr))
	}
	return nil
}
