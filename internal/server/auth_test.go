package server

import (
	"testing"

	"github.com/httpfs/httpfs/internal/config"
)

func strPtr(s string) *string { return &s }

func TestCredentialForPrefersDeepestPathAuth(t *testing.T) {
	s := &Server{
		Config: &config.HostConfig{
			GlobalAuth: &config.AuthCred{User: "global"},
			PathAuth: []config.PathAuth{
				{Prefix: "secret", Cred: config.AuthCred{User: "shallow"}},
				{Prefix: "secret/deep", Cred: config.AuthCred{User: "deep"}},
			},
		},
	}

	if got := s.credentialFor("/secret/deep/file.txt"); got == nil || got.User != "deep" {
		t.Fatalf("expected deepest prefix match, got %+v", got)
	}
	if got := s.credentialFor("/secret/file.txt"); got == nil || got.User != "shallow" {
		t.Fatalf("expected shallow prefix match, got %+v", got)
	}
	if got := s.credentialFor("/public/file.txt"); got == nil || got.User != "global" {
		t.Fatalf("expected fallback to global auth, got %+v", got)
	}
}

func TestCredentialMatchesEmptyPasswordMeansNone(t *testing.T) {
	cred := config.AuthCred{User: "alice"}
	if !credentialMatches(cred, "alice", "") {
		t.Error("expected empty password to match a nil configured password")
	}
	if credentialMatches(cred, "alice", "wrong") {
		t.Error("expected wrong password to fail")
	}
	if credentialMatches(cred, "bob", "") {
		t.Error("expected wrong username to fail")
	}
}

func TestCredentialMatchesRequiresConfiguredPassword(t *testing.T) {
	cred := config.AuthCred{User: "alice", Password: strPtr("s3cret")}
	if !credentialMatches(cred, "alice", "s3cret") {
		t.Error("expected correct credentials to match")
	}
	if credentialMatches(cred, "alice", "") {
		t.Error("expected empty password to fail when one is configured")
	}
}
