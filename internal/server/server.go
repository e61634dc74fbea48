// Package server implements the request dispatcher from spec.md §4.4:
// method dispatch, authentication, range/index/listing/archive handling,
// PUT/DELETE staging, and the bandwidth/pruner middleware wiring. The
// dispatch shape (one handler per method, shared resolver/cache state) is
// grounded on original_source/src/ops/mod.rs's Handler::handle and
// handle_get, and on modules/caddyhttp/fileserver/browse.go for the
// listing-rendering style.
package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/httpfs/httpfs/internal/bandwidth"
	"github.com/httpfs/httpfs/internal/cache"
	"github.com/httpfs/httpfs/internal/config"
	"github.com/httpfs/httpfs/internal/encoding"
	"github.com/httpfs/httpfs/internal/herr"
	"github.com/httpfs/httpfs/internal/resolver"
	"github.com/httpfs/httpfs/internal/webdavfs"
)

// Name is the Server header value written on every response.
const Name = "httpfs/1.0"

// Server is the request dispatcher: one instance serves one HostConfig.
type Server struct {
	Config *config.HostConfig
	Log    *zap.Logger

	resolver  *resolver.Resolver
	generated *cache.GeneratedCache
	files     *cache.FileCache
	pruner    *cache.Pruner
	webdav    *webdavfs.Handler
}

// New builds a Server for cfg.
func New(cfg *config.HostConfig, log *zap.Logger) (*Server, error) {
	res, err := resolver.New(cfg.ServedRootPath, cfg.FollowSymlinks, cfg.SandboxSymlinks)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Config:   cfg,
		Log:      log,
		resolver: res,
	}

	if cfg.EncodingEnabled {
		s.generated = cache.NewGeneratedCache()
		s.files = cache.NewFileCache(cfg.EncodedCacheDir)
		s.pruner = cache.NewPruner(s.generated, s.files,
			cfg.EncodedGeneratedLimit, cfg.EncodedFilesystemLimit,
			time.Duration(cfg.EncodedPruneSeconds)*time.Second)
	}

	if cfg.WebDAV {
		s.webdav = webdavfs.NewHandler(&webdavfs.FS{Resolver: res}, "/")
	}

	return s, nil
}

// methodsAllowed lists the method table per spec.md §4.4, including
// WebDAV extensions when enabled.
func (s *Server) methodsAllowed() []string {
	methods := []string{"OPTIONS", "GET", "HEAD", "PUT", "DELETE", "TRACE"}
	if s.Config.WebDAV {
		methods = append(methods, "COPY", "MKCOL", "MOVE", "PROPFIND", "PROPPATCH")
	}
	return methods
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Server", Name)
	for _, h := range s.Config.AdditionalHeaders {
		w.Header().Add(h.Name, h.Value)
	}
	if s.Config.WebDAV {
		w.Header().Set("DAV", "1")
	}

	if s.pruner != nil {
		defer func() {
			if freed := s.pruner.Prune(); freed > 0 {
				s.Log.Debug("cache pruned", zap.String("freed", humanize.Bytes(uint64(freed))))
			}
		}()
	}

	out := w
	if s.Config.Bandwidth > 0 {
		out = &bandwidthResponseWriter{ResponseWriter: w, bw: bandwidth.New(w, s.Config.Bandwidth)}
	}

	if err := s.verifyAuth(r); err != nil {
		s.writeError(out, r, err)
		return
	}

	dispatchErr := s.dispatch(out, r)
	s.Log.Debug("request",
		zap.String("method", r.Method), zap.String("path", r.URL.Path),
		zap.String("from", s.remoteAddresses(r)))
	if dispatchErr != nil {
		s.writeError(out, r, dispatchErr)
	}
}

// remoteAddresses renders r's remote address followed by one " for <addr>"
// per header named by a configured --proxy mapping whose CIDR contains
// the remote address, in --proxy's configured order. Grounded on
// original_source/src/ops/mod.rs's AddressWriter/remote_addresses, which
// the spec's §9 Open Question calls out by name.
func (s *Server) remoteAddresses(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	out := host

	ip := net.ParseIP(host)
	for _, pm := range s.Config.ProxyNetworks {
		if ip == nil || pm.CIDR == nil || !pm.CIDR.Contains(ip) {
			continue
		}
		for _, v := range r.Header.Values(pm.Header) {
			out += " for " + v
		}
	}
	return out
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) *herr.Error {
	switch r.Method {
	case http.MethodGet:
		return s.handleGet(w, r, true)
	case http.MethodHead:
		return s.handleGet(w, r, false)
	case http.MethodPut:
		return s.handlePut(w, r)
	case http.MethodDelete:
		return s.handleDelete(w, r)
	case http.MethodOptions:
		return s.handleOptions(w, r)
	case "TRACE":
		return s.handleTrace(w, r)
	case "COPY", "MKCOL", "MOVE", "PROPFIND", "PROPPATCH":
		if !s.Config.WebDAV {
			return s.methodNotImplemented(w, r)
		}
		if !s.Config.WritesEnabled && (r.Method == "COPY" || r.Method == "MKCOL" || r.Method == "MOVE") {
			return herr.New(http.StatusForbidden, nil)
		}
		s.webdav.ServeHTTP(w, r)
		return nil
	case http.MethodPost:
		return s.handlePostArchive(w, r)
	default:
		return s.methodNotImplemented(w, r)
	}
}

func (s *Server) methodNotImplemented(w http.ResponseWriter, r *http.Request) *herr.Error {
	return herr.Newf(http.StatusNotImplemented, "method %s not implemented; supported: %v", r.Method, s.methodsAllowed())
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) *herr.Error {
	w.Header().Set("Allow", joinMethods(s.methodsAllowed()))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) *herr.Error {
	w.Header().Set("Content-Type", "message/http")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s %s %s\r\n", r.Method, r.URL.RequestURI(), r.Proto)
	r.Header.Write(w)
	return nil
}

func joinMethods(methods []string) string {
	out := ""
	for i, m := range methods {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, e *herr.Error) {
	s.Log.Debug("request error",
		zap.String("method", r.Method), zap.String("path", r.URL.Path),
		zap.Int("status", e.StatusCode), zap.Error(e.Err))

	if e.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "basic")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(e.StatusCode)
	fmt.Fprint(w, errorBody(e))
}

func errorBody(e *herr.Error) string {
	title := http.StatusText(e.StatusCode)
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return renderErrorPage(title, msg)
}

// bandwidthResponseWriter wraps an http.ResponseWriter's body writes
// through a bandwidth.Writer, per spec.md §4.6.
type bandwidthResponseWriter struct {
	http.ResponseWriter
	bw *bandwidth.Writer
}

func (b *bandwidthResponseWriter) Write(p []byte) (int, error) {
	b.bw.Output = b.ResponseWriter
	return b.bw.Write(p)
}

// negotiatedTag returns encoding.Identity when encoding is disabled,
// otherwise the best Accept-Encoding match per internal/encoding.
func (s *Server) negotiatedTag(r *http.Request) encoding.Tag {
	if !s.Config.EncodingEnabled {
		return encoding.Identity
	}
	return encoding.Negotiate(r.Header.Get("Accept-Encoding"))
}
