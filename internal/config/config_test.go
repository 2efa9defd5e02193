package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"civil-service"}, cfg.Ingest.AllowedIssuers)
	assert.Equal(t, 90, cfg.Retention.MinAgeDays)
	assert.Equal(t, 4, cfg.Export.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.SFTP.ConnectTimeout)
	assert.Equal(t, "judgments.registered", cfg.Kafka.Topic)

	table := cfg.Ingest.ReplacementTable()
	assert.Equal(t, "E", table["É"], "upper-case keys must survive loading")
	assert.Equal(t, "GBP", table["£"])
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ingest:
  allowed_issuers: ["a", "b"]
retention:
  min_age_days: 30
export:
  test_mode: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Ingest.AllowedIssuers)
	assert.Equal(t, 30, cfg.Retention.MinAgeDays)
	assert.True(t, cfg.Export.TestMode)
	assert.Equal(t, "Europe/London", cfg.Export.Timezone, "untouched keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JGW_SFTP_HOST", "sftp.example.org")
	t.Setenv("JGW_RETENTION_MIN_AGE_DAYS", "120")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sftp.example.org", cfg.SFTP.Host)
	assert.Equal(t, 120, cfg.Retention.MinAgeDays)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Ingest.AllowedIssuers = nil
	bad.Retention.MinAgeDays = 0
	bad.Ingest.CharReplacements = []CharReplacement{{From: "ab", To: "x"}}

	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed_issuers")
	assert.Contains(t, err.Error(), "min_age_days")
	assert.Contains(t, err.Error(), "one character")
}
