package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/httpfs/httpfs/internal/config"
	"github.com/httpfs/httpfs/internal/herr"
)

// verifyAuth enforces spec.md §4.1's auth precedence: the deepest
// matching --path-auth prefix wins over --auth, and no configured
// credential means no check. Comparison is constant-time, grounded on
// modules/caddyhttp/caddyauth/basicauth.go's use of crypto/subtle to
// avoid leaking password length/prefix via timing.
func (s *Server) verifyAuth(r *http.Request) *herr.Error {
	cred := s.credentialFor(r.URL.Path)
	if cred == nil {
		return nil
	}

	user, pass, ok := r.BasicAuth()
	if !ok || !credentialMatches(*cred, user, pass) {
		return herr.New(http.StatusUnauthorized, nil)
	}
	return nil
}

// credentialFor returns the credential that applies to urlPath: the
// longest --path-auth prefix match, falling back to --auth, or nil if
// neither applies.
func (s *Server) credentialFor(urlPath string) *config.AuthCred {
	trimmed := strings.Trim(urlPath, "/")

	var best *config.PathAuth
	for i := range s.Config.PathAuth {
		pa := &s.Config.PathAuth[i]
		if !pathHasPrefix(trimmed, pa.Prefix) {
			continue
		}
		if best == nil || len(pa.Prefix) > len(best.Prefix) {
			best = pa
		}
	}
	if best != nil {
		return &best.Cred
	}
	return s.Config.GlobalAuth
}

func pathHasPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// credentialMatches performs a constant-time comparison of user and pass
// against cred, hashing both sides first so differing lengths don't
// short-circuit subtle.ConstantTimeCompare.
func credentialMatches(cred config.AuthCred, user, pass string) bool {
	wantUser := sha256.Sum256([]byte(cred.User))
	gotUser := sha256.Sum256([]byte(user))
	userOK := subtle.ConstantTimeCompare(wantUser[:], gotUser[:]) == 1

	wantPass := ""
	if cred.Password != nil {
		wantPass = *cred.Password
	}
	wantPassHash := sha256.Sum256([]byte(wantPass))
	gotPassHash := sha256.Sum256([]byte(pass))
	passOK := subtle.ConstantTimeCompare(wantPassHash[:], gotPassHash[:]) == 1

	return userOK && passOK
}
