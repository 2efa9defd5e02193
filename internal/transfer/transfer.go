package transfer

import (
	"context"
	"errors"
)

// FileTransfer delivers staged export files to the Register. Upload stops at
// the first failing file and reports it in a single error.
type FileTransfer interface {
	Upload(ctx context.Context, files []string) error
}

var ErrNotConfigured = errors.New("file transfer is not configured")

// Unconfigured stands in when no SFTP credentials are set. Test-mode exports
// never upload, so they keep working; live exports fail per site.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, []string) error { return ErrNotConfigured }
