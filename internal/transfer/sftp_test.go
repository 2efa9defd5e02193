package transfer

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/judgment-gateway/internal/config"
)

// newPipeClient serves an in-memory SFTP filesystem over a net.Pipe.
func newPipeClient(t *testing.T) *sftp.Client {
	t.Helper()

	cliConn, srvConn := net.Pipe()
	srv := sftp.NewRequestServer(srvConn, sftp.InMemHandler())
	go func() { _ = srv.Serve() }()

	client, err := sftp.NewClientPipe(cliConn, cliConn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = srv.Close()
	})
	return client
}

func readRemote(t *testing.T, client *sftp.Client, name string) string {
	t.Helper()
	f, err := client.Open(name)
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(b)
}

func TestUploadAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/staging/a.hdr", []byte("1         01012024\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/staging/a.det", []byte("detail\n"), 0o644))

	client := newPipeClient(t)

	err := uploadAll(context.Background(), client, fs, "/inbound", []string{"/staging/a.hdr", "/staging/a.det"})
	require.NoError(t, err)

	assert.Equal(t, "1         01012024\n", readRemote(t, client, "/inbound/a.hdr"))
	assert.Equal(t, "detail\n", readRemote(t, client, "/inbound/a.det"))
}

func TestUploadAll_StopsAtFirstMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/staging/b.det", []byte("x"), 0o644))

	client := newPipeClient(t)

	err := uploadAll(context.Background(), client, fs, "/inbound", []string{"/staging/missing.hdr", "/staging/b.det"})
	require.Error(t, err)

	_, statErr := client.Stat("/inbound/b.det")
	assert.Error(t, statErr, "later files are not attempted")
}

func TestNewSFTP_RequiresCredentials(t *testing.T) {
	_, err := NewSFTP(config.SFTPConfig{Host: "localhost", Port: 22, User: "jgw"}, afero.NewMemMapFs(), nil)
	assert.Error(t, err)

	s, err := NewSFTP(config.SFTPConfig{Host: "localhost", Port: 22, User: "jgw", Password: "pw"}, afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:22", s.addr)
}
