// Package tls builds the listener TLS configuration for the HTTP server.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServerConfig selects the certificate pair and the minimum protocol version.
type ServerConfig struct {
	CertFile   string
	KeyFile    string
	MinVersion string // "1.2" or "1.3" (default)
}

// Enabled reports whether a certificate pair is configured.
func (c ServerConfig) Enabled() bool { return c.CertFile != "" && c.KeyFile != "" }

// parseTLSVersion parses TLS version string and returns the corresponding constant
func parseTLSVersion(ver string) (uint16, error) {
	switch strings.ToLower(strings.TrimSpace(ver)) {
	case "", "default", "1.3", "tls1.3":
		return tls.VersionTLS13, nil
	case "1.2", "tls1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", ver)
	}
}

// safeReadFile reads file content safely within base directory
func safeReadFile(baseDir, p string) ([]byte, error) {
	clean := filepath.Clean(p)
	if baseDir != "" {
		absBase, _ := filepath.Abs(baseDir)
		absFile, _ := filepath.Abs(clean)
		if !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) && absFile != absBase {
			return nil, errors.New("file path outside of allowed directory")
		}
	}
	return os.ReadFile(clean)
}

// getCertificateFunc loads the pair on every handshake so renewed
// certificates are picked up without a restart.
func getCertificateFunc(certFile, keyFile string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	baseDir := filepath.Dir(certFile)
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		readCert, err := safeReadFile(baseDir, certFile)
		if err != nil {
			return nil, err
		}
		readKey, err := safeReadFile(baseDir, keyFile)
		if err != nil {
			return nil, err
		}
		certificate, err := tls.X509KeyPair(readCert, readKey)
		if err != nil {
			return nil, err
		}
		return &certificate, nil
	}
}

// Setup returns the listener configuration, or nil when TLS is disabled. The
// pair is loaded once up front so a broken certificate fails at startup.
func Setup(c ServerConfig) (*tls.Config, error) {
	if !c.Enabled() {
		if c.CertFile != "" || c.KeyFile != "" {
			return nil, errors.New("TLS needs both a certificate and a key")
		}
		return nil, nil
	}
	minVer, err := parseTLSVersion(c.MinVersion)
	if err != nil {
		return nil, err
	}
	if _, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile); err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	// #nosec G402 TLS 1.2 is opt-in for older scrapers
	return &tls.Config{
		GetCertificate: getCertificateFunc(c.CertFile, c.KeyFile),
		MinVersion:     minVer,
	}, nil
}
