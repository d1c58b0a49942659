package tls

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := CertConfig{
		CommonName:  "localhost",
		DNSNames:    []string{"localhost"},
		IPAddresses: []string{"127.0.0.1"},
		CertPath:    filepath.Join(dir, "tls.crt"),
		KeyPath:     filepath.Join(dir, "tls.key"),
	}
	require.NoError(t, GenerateSelfSignedCert(cfg))
	return cfg.CertPath, cfg.KeyPath
}

func TestSetupDisabled(t *testing.T) {
	c, err := Setup(ServerConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Setup(ServerConfig{CertFile: "only.crt"})
	assert.Error(t, err)
}

func TestSetupLoadsPair(t *testing.T) {
	cert, key := selfSigned(t)

	c, err := Setup(ServerConfig{CertFile: cert, KeyFile: key})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, uint16(tls.VersionTLS13), c.MinVersion)

	got, err := c.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Certificate)

	info, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetupMinVersion(t *testing.T) {
	cert, key := selfSigned(t)
	c, err := Setup(ServerConfig{CertFile: cert, KeyFile: key, MinVersion: "1.2"})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), c.MinVersion)

	_, err = Setup(ServerConfig{CertFile: cert, KeyFile: key, MinVersion: "1.0"})
	assert.Error(t, err)
}

func TestSetupRejectsBrokenPair(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "tls.crt")
	require.NoError(t, os.WriteFile(cert, []byte("not a cert"), 0o600))
	_, err := Setup(ServerConfig{CertFile: cert, KeyFile: cert})
	assert.Error(t, err)
}

func TestSafeReadFileStaysInDir(t *testing.T) {
	dir := t.TempDir()
	_, err := safeReadFile(dir, filepath.Join(dir, "..", "etc", "passwd"))
	assert.Error(t, err)
}
