// Package certutil generates a self-signed PKCS#12 TLS identity by
// shelling out to the system's openssl binary, per spec.md §6. The
// original invokes an external certificate tool rather than an in-process
// CA/ACME library; this mirrors that exactly rather than reaching for
// caddy's certmagic stack, which issues real (not self-signed
// throwaway) certificates and assumes a live config/renewal lifecycle
// this daemon doesn't have.
package certutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const (
	subject     = "/C=US/ST=Denial/L=Springfield/O=Dis/CN=localhost"
	validityDays = 10 * 365
)

// DefaultPassword returns the PKCS#12 password used when HTTP_SSL_PASS is
// unset: empty everywhere except macOS, where openssl's legacy PKCS#12
// export historically required a non-empty password.
func DefaultPassword() string {
	if runtime.GOOS == "darwin" {
		return "password"
	}
	return ""
}

// Password resolves the PKCS#12 password from the HTTP_SSL_PASS
// environment variable, falling back to DefaultPassword.
func Password() string {
	if v, ok := os.LookupEnv("HTTP_SSL_PASS"); ok {
		return v
	}
	return DefaultPassword()
}

// Generate creates tls.key, tls.crt, and tls.p12 under dir using openssl,
// with a fixed subject template and a 10-year validity, and returns the
// path to the PKCS#12 identity.
func Generate(dir string) (identityPath string, password string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	keyPath := filepath.Join(dir, "tls.key")
	crtPath := filepath.Join(dir, "tls.crt")
	p12Path := filepath.Join(dir, "tls.p12")
	password = Password()

	genReq := exec.Command("openssl", "req",
		"-x509", "-newkey", "rsa:2048",
		"-keyout", keyPath, "-out", crtPath,
		"-days", fmt.Sprintf("%d", validityDays),
		"-nodes", "-subj", subject)
	if out, err := genReq.CombinedOutput(); err != nil {
		return "", "", fmt.Errorf("openssl req: %w: %s", err, out)
	}

	genP12 := exec.Command("openssl", "pkcs12", "-export",
		"-out", p12Path, "-inkey", keyPath, "-in", crtPath,
		"-passout", "pass:"+password)
	if out, err := genP12.CombinedOutput(); err != nil {
		return "", "", fmt.Errorf("openssl pkcs12: %w: %s", err, out)
	}

	return p12Path, password, nil
}
