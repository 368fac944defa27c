package tlsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevCertificates(t *testing.T) {
	files, err := GenerateDevCertificates([]string{"localhost", "127.0.0.1"}, t.TempDir())
	require.NoError(t, err)

	creds, err := ServerCredentials(files.CertFile, files.KeyFile, "")
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	_, err = ServerCredentials(files.CertFile, files.KeyFile, files.CAFile)
	require.NoError(t, err)

	_, err = ClientCredentials(files.CAFile, "localhost")
	require.NoError(t, err)
}

func TestCredentialErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ServerCredentials(filepath.Join(dir, "missing.pem"), filepath.Join(dir, "missing-key.pem"), "")
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a cert"), 0o600))
	_, err = ClientCredentials(junk, "")
	assert.Error(t, err)
}
