package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/judgment-gateway/internal/config"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewIngestWithoutCache(t *testing.T) {
	svc, err := NewIngest(defaultConfig(t), nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewExport(t *testing.T) {
	t.Run("without sftp credentials", func(t *testing.T) {
		svc, err := NewExport(defaultConfig(t), nil, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("unreadable private key fails fast", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.SFTP.PrivateKeyPath = t.TempDir() + "/missing"
		_, err := NewExport(cfg, nil, nil, nil)
		require.Error(t, err)
	})
}
