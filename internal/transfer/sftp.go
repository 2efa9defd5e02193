package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/config"
	"github.com/jmehdipour/judgment-gateway/internal/logger"
)

// SFTP uploads files from the staging filesystem to a remote directory.
// Each Upload opens its own session.
type SFTP struct {
	addr          string
	remoteDir     string
	sshConfig     *ssh.ClientConfig
	uploadTimeout time.Duration
	fs            afero.Fs
	log           *zap.Logger
}

var _ FileTransfer = (*SFTP)(nil)

func NewSFTP(cfg config.SFTPConfig, fs afero.Fs, log *zap.Logger) (*SFTP, error) {
	log = logger.OrNop(log)

	var auth []ssh.AuthMethod
	if cfg.PrivateKeyPath != "" {
		key, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read sftp private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse sftp private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("sftp: either password or private_key_path is required")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	} else {
		log.Warn("sftp host key verification disabled; set sftp.known_hosts_path")
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 2 * time.Minute
	}

	return &SFTP{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		remoteDir: cfg.RemoteDir,
		sshConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKey,
			Timeout:         connectTimeout,
		},
		uploadTimeout: uploadTimeout,
		fs:            fs,
		log:           log,
	}, nil
}

func (s *SFTP) Upload(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		return apperr.ErrTransfer.Wrap(fmt.Errorf("connect %s: %w", s.addr, err))
	}
	defer conn.Close()

	// Unblocks in-flight reads and writes once the deadline passes.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return apperr.ErrTransfer.Wrap(fmt.Errorf("open sftp session: %w", err))
	}
	defer client.Close()

	if err := uploadAll(ctx, client, s.fs, s.remoteDir, files); err != nil {
		return apperr.ErrTransfer.Wrap(err)
	}

	s.log.Info("files uploaded", zap.String("addr", s.addr), zap.Strings("files", files))

	return nil
}

func (s *SFTP) dial(ctx context.Context) (*ssh.Client, error) {
	d := net.Dialer{Timeout: s.sshConfig.Timeout}
	nc, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, err
	}

	_ = nc.SetDeadline(time.Now().Add(s.sshConfig.Timeout))
	c, chans, reqs, err := ssh.NewClientConn(nc, s.addr, s.sshConfig)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	_ = nc.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func uploadAll(ctx context.Context, client *sftp.Client, fs afero.Fs, remoteDir string, files []string) error {
	if remoteDir != "" {
		if err := client.MkdirAll(remoteDir); err != nil {
			return fmt.Errorf("create remote dir %s: %w", remoteDir, err)
		}
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := uploadOne(client, fs, f, path.Join(remoteDir, filepath.Base(f))); err != nil {
			return err
		}
	}
	return nil
}

func uploadOne(client *sftp.Client, fs afero.Fs, local, remote string) error {
	src, err := fs.Open(local)
	if err != nil {
		return fmt.Errorf("open %s: %w", local, err)
	}
	defer src.Close()

	dst, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remote, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("write remote %s: %w", remote, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("close remote %s: %w", remote, err)
	}
	return nil
}
