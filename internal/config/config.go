// Package config builds the immutable HostConfig (spec.md §3) from CLI
// flags, following the teacher's file-server subcommand pattern
// (modules/caddyhttp/fileserver/command.go) generalized to the full flag
// surface of spec.md §6.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// AuthCred is a username with an optional password; nil Password means
// "no password required" (and an empty password in a request matches it).
type AuthCred struct {
	User     string
	Password *string
}

// PathAuth is one entry of the path-prefixed auth override table.
type PathAuth struct {
	Prefix string // normalized: no leading/trailing slash
	Cred   AuthCred
}

// ProxyMapping maps a trusted proxy CIDR to the header carrying the
// original client address (or redirect target).
type ProxyMapping struct {
	CIDR   *net.IPNet
	Header string
}

// Header is one additional response header to append to every response.
type Header struct {
	Name  string
	Value string
}

// HostConfig is immutable once built (spec.md §3).
type HostConfig struct {
	ServedRootDisplay string
	ServedRootPath    string // canonical

	FollowSymlinks   bool
	SandboxSymlinks  bool
	GenerateListings bool
	CheckIndices     bool
	StripExtensions  bool

	WritesEnabled   bool
	WriteStagingDir string

	EncodingEnabled bool
	EncodedCacheDir string

	GlobalAuth *AuthCred
	PathAuth   []PathAuth

	ProxyNetworks      []ProxyMapping
	ProxyRedirNetworks []ProxyMapping

	MimeOverrides     map[string]string
	AdditionalHeaders []Header

	TLSIdentityPath string
	GenSSL          bool

	LogLevel string
	NoColor  bool

	PortFrom, PortTo int
	Address          string

	Bandwidth              uint64
	EncodedFilesystemLimit int64
	EncodedGeneratedLimit  int64
	EncodedPruneSeconds    int64

	WebDAV bool

	TempDir string
}

// Flags holds the raw pflag.FlagSet values before they're assembled into
// a HostConfig.
type Flags struct {
	Dir string

	Port            int
	TempDir         string
	NoFollowSymlink bool
	Sandbox         bool
	AllowWrite      bool
	NoIndices       bool
	StripExt        bool
	NoEncode        bool
	SSL             string
	GenSSL          bool
	Auth            string
	GenAuth         bool
	PathAuth        *RepeatableValue
	GenPathAuth     *RepeatableValue
	Proxy           *RepeatableValue
	ProxyRedir      *RepeatableValue
	MimeType        *RepeatableValue
	HeaderFlag      *RepeatableValue
	Bandwidth       uint64
	EncFSLimit      int64
	EncGenLimit     int64
	EncPrune        int64
	WebDAV          bool
	NoColor         bool
	LogLevel        string
}

// RegisterFlags wires spec.md §6's flag surface onto fs and returns the
// Flags handle used to later Build a HostConfig.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{
		PathAuth:    NewRepeatableValue(),
		GenPathAuth: NewRepeatableValue(),
		Proxy:       NewRepeatableValue(),
		ProxyRedir:  NewRepeatableValue(),
		MimeType:    NewRepeatableValue(),
		HeaderFlag:  NewRepeatableValue(),
	}

	fs.IntVarP(&f.Port, "port", "p", 8000, "port to listen on")
	fs.StringVarP(&f.TempDir, "temp-dir", "t", os.TempDir(), "base directory for staging/cache/tls temp files")
	fs.BoolVarP(&f.NoFollowSymlink, "no-follow-symlinks", "s", false, "do not follow symlinks")
	fs.BoolVarP(&f.Sandbox, "sandbox-symlinks", "r", false, "treat symlinks escaping the served root as nonexistent (implies following)")
	fs.BoolVarP(&f.AllowWrite, "allow-write", "w", false, "allow PUT/DELETE/WebDAV write operations")
	fs.BoolVarP(&f.NoIndices, "no-indices", "i", false, "do not look for index.html in directories")
	fs.BoolVarP(&f.StripExt, "strip-extensions", "x", false, "allow accessing files by stripping their extension")
	fs.BoolVarP(&f.NoEncode, "no-encode", "e", false, "disable content-encoding negotiation and caching")
	fs.StringVar(&f.SSL, "ssl", "", "path to a PKCS#12 TLS identity")
	fs.BoolVar(&f.GenSSL, "gen-ssl", false, "generate a self-signed TLS identity via openssl")
	fs.StringVar(&f.Auth, "auth", "", "USER[:PASS] required for all requests")
	fs.BoolVar(&f.GenAuth, "gen-auth", false, "accepted but has no effect: no password is generated")
	fs.Var(f.PathAuth, "path-auth", "PATH=[USER[:PASS]] (repeatable)")
	fs.Var(f.GenPathAuth, "gen-path-auth", "PATH (repeatable); accepted but has no effect: no password is generated")
	fs.Var(f.Proxy, "proxy", "CIDR=HEADER trusted proxy mapping (repeatable)")
	fs.Var(f.ProxyRedir, "proxy-redir", "CIDR=HEADER trusted proxy redirect mapping (repeatable)")
	fs.Var(f.MimeType, "mime-type", "EXT:MIME override (repeatable)")
	fs.Var(f.HeaderFlag, "header", "NAME:VALUE appended to every response (repeatable)")
	fs.Uint64Var(&f.Bandwidth, "bandwidth", 0, "bytes/sec to pace responses at (0 = unlimited)")
	fs.Int64Var(&f.EncFSLimit, "encoded-filesystem-limit", 0, "byte ceiling for the on-disk encoding cache (0 = unlimited)")
	fs.Int64Var(&f.EncGenLimit, "encoded-generated-limit", 0, "byte ceiling for the in-memory encoding cache (0 = unlimited)")
	fs.Int64Var(&f.EncPrune, "encoded-prune", 0, "seconds after which cache entries age out (0 = unlimited)")
	fs.BoolVar(&f.WebDAV, "webdav", false, "enable WebDAV extension methods")
	fs.BoolVar(&f.NoColor, "no-color", false, "disable ANSI color in log output")
	fs.StringVar(&f.LogLevel, "loglevel", "info", "debug|info|warn|error")

	return f
}

// Build assembles a HostConfig from parsed flags and positional args.
// It returns an error rather than exiting; cmd/httpfs turns that error
// (like its later TLS, server-build and bind failures) into exit code 1.
func Build(f *Flags, args []string) (*HostConfig, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving served root: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		canon = abs
	}

	hc := &HostConfig{
		ServedRootDisplay: dir,
		ServedRootPath:    canon,
		FollowSymlinks:    !f.NoFollowSymlink || f.Sandbox,
		SandboxSymlinks:   f.Sandbox,
		GenerateListings:  true,
		CheckIndices:      !f.NoIndices,
		StripExtensions:   f.StripExt,
		WritesEnabled:     f.AllowWrite,
		EncodingEnabled:   !f.NoEncode,
		MimeOverrides:     map[string]string{},

		PortFrom: f.Port,
		PortTo:   f.Port,

		Bandwidth:              f.Bandwidth,
		EncodedFilesystemLimit: f.EncFSLimit,
		EncodedGeneratedLimit:  f.EncGenLimit,
		EncodedPruneSeconds:    f.EncPrune,

		WebDAV:   f.WebDAV,
		NoColor:  f.NoColor,
		LogLevel: f.LogLevel,
		GenSSL:   f.GenSSL,

		TLSIdentityPath: f.SSL,
	}

	if f.Auth != "" {
		cred, err := parseCred(f.Auth)
		if err != nil {
			return nil, fmt.Errorf("--auth: %w", err)
		}
		hc.GlobalAuth = &cred
	}

	for _, raw := range f.PathAuth.Values() {
		prefix, rest, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("--path-auth: malformed %q, want PATH=USER[:PASS]", raw)
		}
		cred, err := parseCred(rest)
		if err != nil {
			return nil, fmt.Errorf("--path-auth: %w", err)
		}
		hc.PathAuth = append(hc.PathAuth, PathAuth{Prefix: normalizePrefix(prefix), Cred: cred})
	}

	for _, raw := range f.Proxy.Values() {
		pm, err := parseProxyMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("--proxy: %w", err)
		}
		hc.ProxyNetworks = append(hc.ProxyNetworks, pm)
	}
	for _, raw := range f.ProxyRedir.Values() {
		pm, err := parseProxyMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("--proxy-redir: %w", err)
		}
		hc.ProxyRedirNetworks = append(hc.ProxyRedirNetworks, pm)
	}

	for _, raw := range f.MimeType.Values() {
		ext, mime, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("--mime-type: malformed %q, want EXT:MIME", raw)
		}
		hc.MimeOverrides[ext] = mime
	}

	for _, raw := range f.HeaderFlag.Values() {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("--header: malformed %q, want NAME:VALUE", raw)
		}
		hc.AdditionalHeaders = append(hc.AdditionalHeaders, Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}

	hc.TempDir = filepath.Join(f.TempDir, "http-"+mungePath(canon))
	hc.WriteStagingDir = filepath.Join(hc.TempDir, "writes")
	hc.EncodedCacheDir = filepath.Join(hc.TempDir, "encoded")

	return hc, nil
}

func parseCred(s string) (AuthCred, error) {
	if s == "" {
		return AuthCred{}, fmt.Errorf("empty credential")
	}
	user, pass, ok := strings.Cut(s, ":")
	if !ok {
		return AuthCred{User: user}, nil
	}
	return AuthCred{User: user, Password: &pass}, nil
}

func normalizePrefix(p string) string {
	return strings.Trim(p, "/")
}

func parseProxyMapping(raw string) (ProxyMapping, error) {
	cidrStr, header, ok := strings.Cut(raw, "=")
	if !ok {
		return ProxyMapping{}, fmt.Errorf("malformed %q, want CIDR=HEADER", raw)
	}
	_, network, err := net.ParseCIDR(cidrStr)
	if err != nil {
		return ProxyMapping{}, fmt.Errorf("bad CIDR %q: %w", cidrStr, err)
	}
	return ProxyMapping{CIDR: network, Header: header}, nil
}

func mungePath(p string) string {
	r := strings.NewReplacer(string(filepath.Separator), "-", ":", "-", " ", "_")
	return strings.Trim(r.Replace(p), "-")
}
