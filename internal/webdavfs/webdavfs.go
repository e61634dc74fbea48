// Package webdavfs adapts the resolver to golang.org/x/net/webdav's
// FileSystem interface and layers the Microsoft-namespace PROPFIND
// extension spec.md §4.7 requires on top of it. COPY/MKCOL/MOVE are left
// to webdav.Handler itself (it already implements the RFC2518 semantics
// spec.md describes); PROPFIND is handled directly so the Win32 property
// extension can be injected, which x/net/webdav has no hook for.
//
// Grounded on _examples/other_examples' rclone/perkeep webdav adapters
// for the FileSystem-wrapping shape, and
// original_source/src/util/webdav.rs for the exact namespace prefixes,
// property lists, and Depth/Overwrite header semantics.
package webdavfs

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/webdav"

	"github.com/httpfs/httpfs/internal/resolver"
)

// FS adapts resolver.Resolver to webdav.FileSystem.
type FS struct {
	Resolver *resolver.Resolver
}

func (fs *FS) resolve(name string) (string, error) {
	res, err := fs.Resolver.Resolve(name, true)
	if err != nil {
		return "", err
	}
	if res.BadEncoding {
		return "", os.ErrInvalid
	}
	return res.Path, nil
}

func (fs *FS) Mkdir(_ context.Context, name string, perm os.FileMode) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Mkdir(p, perm)
}

func (fs *FS) OpenFile(_ context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(p, flag, perm)
}

func (fs *FS) RemoveAll(_ context.Context, name string) error {
	p, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

func (fs *FS) Rename(_ context.Context, oldName, newName string) error {
	oldPath, err := fs.resolve(oldName)
	if err != nil {
		return err
	}
	newPath, err := fs.resolve(newName)
	if err != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}

func (fs *FS) Stat(_ context.Context, name string) (os.FileInfo, error) {
	p, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// Handler wraps webdav.Handler, adding DAV: 1 on every response and a
// hand-rolled PROPFIND that can emit the Microsoft namespace extension.
type Handler struct {
	FS         *FS
	underlying *webdav.Handler
}

func NewHandler(fs *FS, prefix string) *Handler {
	return &Handler{
		FS: fs,
		underlying: &webdav.Handler{
			Prefix:     prefix,
			FileSystem: fs,
			LockSystem: webdav.NewMemLS(),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", "1")

	if r.Method == "PROPFIND" {
		h.handlePropfind(w, r)
		return
	}
	if r.Method == "MOVE" || r.Method == "COPY" {
		if dest := r.Header.Get("Destination"); dest != "" {
			if existsAndOverwriteForbidden(h.FS, r, dest) {
				http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
				return
			}
		}
	}
	h.underlying.ServeHTTP(w, r)
}

func existsAndOverwriteForbidden(fs *FS, r *http.Request, dest string) bool {
	if r.Header.Get("Overwrite") != "F" {
		return false
	}
	u, err := http.NewRequest("", dest, nil)
	if err != nil || u.URL == nil {
		return false
	}
	if _, err := fs.Stat(r.Context(), u.URL.Path); err == nil {
		return true
	}
	return false
}

// IsMicrosoftClient reports whether a User-Agent string identifies a
// Microsoft WebDAV client, gating the Win32* property extension.
func IsMicrosoftClient(userAgent string) bool {
	return strings.Contains(userAgent, "Microsoft") || strings.Contains(userAgent, "microsoft")
}

type depth int

const (
	depthZero depth = iota
	depthOne
	depthInfinity
)

func parseDepth(h string) depth {
	switch h {
	case "0":
		return depthZero
	case "infinity", "":
		return depthInfinity
	default:
		return depthOne
	}
}

func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request) {
	d := parseDepth(r.Header.Get("Depth"))
	if d == depthInfinity {
		http.Error(w, "Depth: infinity not supported", http.StatusForbidden)
		return
	}

	urlPath := r.URL.Path
	fi, err := h.FS.Stat(r.Context(), urlPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	microsoft := IsMicrosoftClient(r.UserAgent())

	var entries []entry
	entries = append(entries, entry{path: urlPath, fi: fi})

	if d == depthOne && fi.IsDir() {
		p, err := h.FS.resolve(urlPath)
		if err == nil {
			if dirents, err := os.ReadDir(p); err == nil {
				for _, de := range dirents {
					childFi, err := de.Info()
					if err != nil {
						continue
					}
					entries = append(entries, entry{path: path.Join(urlPath, de.Name()), fi: childFi})
				}
			}
		}
	}

	ms := buildMultistatus(entries, microsoft)
	w.Header().Set("Content-Type", `application/xml; charset="utf-8"`)
	w.WriteHeader(http.StatusMultiStatus)
	fmt.Fprint(w, xml.Header)
	enc := xml.NewEncoder(w)
	enc.Encode(ms)
}

type entry struct {
	path string
	fi   os.FileInfo
}

type xmlProp struct {
	CreationDate       string `xml:"D:creationdate,omitempty"`
	GetContentLength   string `xml:"D:getcontentlength,omitempty"`
	GetContentType     string `xml:"D:getcontenttype,omitempty"`
	GetLastModified    string `xml:"D:getlastmodified,omitempty"`
	ResourceType       *struct {
		Collection *struct{} `xml:"D:collection,omitempty"`
	} `xml:"D:resourcetype,omitempty"`
	Win32CreationTime     string `xml:"Z:Win32CreationTime,omitempty"`
	Win32FileAttributes   string `xml:"Z:Win32FileAttributes,omitempty"`
	Win32LastAccessTime   string `xml:"Z:Win32LastAccessTime,omitempty"`
	Win32LastModifiedTime string `xml:"Z:Win32LastModifiedTime,omitempty"`
}

type xmlPropstat struct {
	Prop   xmlProp `xml:"D:prop"`
	Status string  `xml:"D:status"`
}

type xmlResponse struct {
	Href     string      `xml:"D:href"`
	Propstat xmlPropstat `xml:"D:propstat"`
}

type xmlMultistatus struct {
	XMLName   xml.Name      `xml:"D:multistatus"`
	XmlnsD    string        `xml:"xmlns:D,attr"`
	XmlnsZ    string        `xml:"xmlns:Z,attr,omitempty"`
	Responses []xmlResponse `xml:"D:response"`
}

func buildMultistatus(entries []entry, microsoft bool) xmlMultistatus {
	ms := xmlMultistatus{XmlnsD: "DAV:"}
	if microsoft {
		ms.XmlnsZ = "urn:schemas-microsoft-com:"
	}

	for _, e := range entries {
		p := xmlProp{
			GetLastModified: e.fi.ModTime().UTC().Format(http.TimeFormat),
			CreationDate:    e.fi.ModTime().UTC().Format(time.RFC3339),
		}
		if e.fi.IsDir() {
			p.ResourceType = &struct {
				Collection *struct{} `xml:"D:collection,omitempty"`
			}{Collection: &struct{}{}}
		} else {
			p.GetContentLength = strconv.FormatInt(e.fi.Size(), 10)
			p.GetContentType = "application/octet-stream"
		}
		if microsoft {
			t := e.fi.ModTime().UTC().Format(time.RFC3339)
			p.Win32CreationTime = t
			p.Win32LastAccessTime = t
			p.Win32LastModifiedTime = t
			attrs := 0x20 // FILE_ATTRIBUTE_ARCHIVE
			if e.fi.IsDir() {
				attrs = 0x10 // FILE_ATTRIBUTE_DIRECTORY
			}
			p.Win32FileAttributes = fmt.Sprintf("%08x", attrs)
		}

		ms.Responses = append(ms.Responses, xmlResponse{
			Href: e.path,
			Propstat: xmlPropstat{
				Prop:   p,
				Status: "HTTP/1.1 200 OK",
			},
		})
	}
	return ms
}
