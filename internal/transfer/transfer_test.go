package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnconfiguredRejectsUploads(t *testing.T) {
	var ft FileTransfer = Unconfigured{}
	require.ErrorIs(t, ft.Upload(context.Background(), []string{"a.txt"}), ErrNotConfigured)
}
