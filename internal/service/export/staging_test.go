package export

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaging_WriteIsExclusive(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStaging(fs, "/staging")

	p, err := st.Write("run1", "a.hdr", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/staging/run1/a.hdr", p)

	_, err = st.Write("run1", "a.hdr", []byte("y"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)

	b, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	assert.Equal(t, "x", string(b), "existing file untouched")

	_, err = st.Write("run2", "a.hdr", []byte("z"))
	assert.NoError(t, err, "another run gets its own directory")
}

func TestStaging_RemoveCleansRunDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStaging(fs, "/staging")

	a, err := st.Write("run1", "a.hdr", []byte("x"))
	require.NoError(t, err)
	b, err := st.Write("run1", "a.det", []byte("y"))
	require.NoError(t, err)

	require.NoError(t, st.Remove(a, b))

	exists, err := afero.DirExists(fs, "/staging/run1")
	require.NoError(t, err)
	assert.False(t, exists)
}
