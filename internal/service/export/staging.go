package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Staging holds export files between rendering and transfer. Each run
// writes into its own sub-directory and every file is created exclusively,
// so concurrent runs can never overwrite each other's artifacts.
type Staging struct {
	fs  afero.Fs
	dir string
}

func NewStaging(fs afero.Fs, dir string) *Staging {
	return &Staging{fs: fs, dir: dir}
}

func (s *Staging) Fs() afero.Fs { return s.fs }

// Write creates <dir>/<runID>/<name>; it fails if the file already exists.
func (s *Staging) Write(runID, name string, data []byte) (string, error) {
	runDir := filepath.Join(s.dir, runID)
	if err := s.fs.MkdirAll(runDir, 0o750); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	p := filepath.Join(runDir, name)
	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create staging file %s: %w", p, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(p)
		return "", fmt.Errorf("write staging file %s: %w", p, err)
	}

	if err := f.Close(); err != nil {
		_ = s.fs.Remove(p)
		return "", fmt.Errorf("close staging file %s: %w", p, err)
	}
	return p, nil
}

// Remove deletes the given files and, once empty, their run directory.
func (s *Staging) Remove(paths ...string) error {
	var errs []error
	dirs := map[string]struct{}{}
	for _, p := range paths {
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for d := range dirs {
		if empty, err := afero.IsEmpty(s.fs, d); err == nil && empty {
			_ = s.fs.Remove(d)
		}
	}
	return errors.Join(errs...)
}
