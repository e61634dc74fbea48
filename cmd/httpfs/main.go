// Command httpfs serves a directory tree over HTTP/HTTPS with optional
// write access, directory listings, archive streaming, a compression
// cache, and WebDAV extensions, per spec.md. Flag parsing, logger
// bootstrap, and signal-driven shutdown follow the shape of
// modules/caddyhttp/fileserver/command.go and cmd/main.go's RunE, and the
// bind/cleanup/banner sequence follows
// original_source/src/main.rs's run().
package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/httpfs/httpfs/internal/certutil"
	"github.com/httpfs/httpfs/internal/config"
	"github.com/httpfs/httpfs/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	maxprocs.Set()

	fs := pflag.NewFlagSet("httpfs", pflag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	hc, err := config.Build(flags, fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "httpfs:", err)
		return 1
	}

	log := newLogger(hc.LogLevel, hc.NoColor)
	defer log.Sync()

	if hc.GenSSL {
		identity, _, err := certutil.Generate(hc.TempDir + "/tls")
		if err != nil {
			log.Error("generating TLS identity", zap.Error(err))
			return 1
		}
		hc.TLSIdentityPath = identity
	}

	srv, err := server.New(hc, log)
	if err != nil {
		log.Error("building server", zap.Error(err))
		return 1
	}

	ln, port, err := server.Bind(hc.Address, hc.PortFrom, hc.PortTo)
	if err != nil {
		log.Error("binding port", zap.Error(err))
		return 1
	}

	if hc.TLSIdentityPath != "" {
		tlsConf, err := loadPKCS12Identity(hc.TLSIdentityPath, certutil.Password())
		if err != nil {
			log.Error("loading TLS identity", zap.Error(err))
			return 1
		}
		ln = tls.NewListener(ln, tlsConf)
	}

	httpServer := &http.Server{Handler: srv}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.Serve(ln)
	}()

	scheme := "http"
	if hc.TLSIdentityPath != "" {
		scheme = "https"
	}
	log.Info(fmt.Sprintf("Hosting %s as %s://%s:%d — Ctrl-C to stop.",
		hc.ServedRootDisplay, scheme, displayAddress(hc.Address), port))

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("serve", zap.Error(err))
		}
	}

	ln.Close()
	cleanupTempDir(hc.TempDir)
	return 0
}

// loadPKCS12Identity decodes a PKCS#12 identity file into a tls.Config
// serving its single certificate, per spec.md §6's "--ssl IDENTITY"
// option. The teacher's certmagic-based TLS stack assumes a live
// ACME/renewal lifecycle this daemon doesn't have, so decoding is done
// directly with software.sslmate.com/src/go-pkcs12 instead (no pack
// example ships PKCS#12 decoding; named directly, per DESIGN.md).
func loadPKCS12Identity(path, password string) (*tls.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  key,
			Leaf:        cert,
		}},
	}, nil
}

func displayAddress(addr string) string {
	if addr == "" {
		return "0.0.0.0"
	}
	return addr
}

func cleanupTempDir(dir string) {
	for _, sub := range []string{"writes", "encoded", "tls"} {
		os.RemoveAll(dir + string(os.PathSeparator) + sub)
	}
}

// newLogger mirrors cmd/main.go's zap bootstrap: a console encoder with
// ANSI colour when stdout is a TTY and --no-color wasn't passed.
func newLogger(level string, noColor bool) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	useColor := !noColor && isatty.IsTerminal(os.Stdout.Fd())
	if useColor {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var out zapcore.WriteSyncer
	if useColor {
		out = zapcore.AddSync(colorable.NewColorableStdout())
	} else {
		out = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, lvl)
	return zap.New(core)
}
