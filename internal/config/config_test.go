package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func buildFrom(t *testing.T, args []string) *HostConfig {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	hc, err := Build(flags, fs.Args())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return hc
}

func TestBuildDefaults(t *testing.T) {
	hc := buildFrom(t, nil)
	if hc.WritesEnabled {
		t.Error("writes should default to disabled")
	}
	if !hc.CheckIndices {
		t.Error("index checking should default to enabled")
	}
	if !hc.EncodingEnabled {
		t.Error("encoding should default to enabled")
	}
	if hc.PortFrom != 8000 || hc.PortTo != 8000 {
		t.Errorf("port = [%d,%d], want [8000,8000]", hc.PortFrom, hc.PortTo)
	}
}

func TestBuildAuthFlag(t *testing.T) {
	hc := buildFrom(t, []string{"--auth=alice:s3cret"})
	if hc.GlobalAuth == nil || hc.GlobalAuth.User != "alice" {
		t.Fatalf("GlobalAuth = %+v", hc.GlobalAuth)
	}
	if hc.GlobalAuth.Password == nil || *hc.GlobalAuth.Password != "s3cret" {
		t.Fatalf("GlobalAuth.Password = %v", hc.GlobalAuth.Password)
	}
}

func TestBuildPathAuthRepeatableKeepsOrder(t *testing.T) {
	hc := buildFrom(t, []string{
		"--path-auth=secret=bob:pw1",
		"--path-auth=secret/deep=carol:pw2",
	})
	if len(hc.PathAuth) != 2 {
		t.Fatalf("expected 2 path-auth entries, got %d", len(hc.PathAuth))
	}
	if hc.PathAuth[0].Prefix != "secret" || hc.PathAuth[1].Prefix != "secret/deep" {
		t.Errorf("unexpected prefixes: %+v", hc.PathAuth)
	}
}

func TestBuildMimeAndHeaderOverrides(t *testing.T) {
	hc := buildFrom(t, []string{"--mime-type=foo:text/x-foo", "--header=X-Test:1"})
	if hc.MimeOverrides["foo"] != "text/x-foo" {
		t.Errorf("MimeOverrides[foo] = %q", hc.MimeOverrides["foo"])
	}
	if len(hc.AdditionalHeaders) != 1 || hc.AdditionalHeaders[0].Name != "X-Test" {
		t.Errorf("AdditionalHeaders = %+v", hc.AdditionalHeaders)
	}
}

func TestBuildRejectsMalformedProxyMapping(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"--proxy=not-a-cidr"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	if _, err := Build(flags, fs.Args()); err == nil {
		t.Error("expected Build to reject a malformed --proxy mapping")
	}
}
