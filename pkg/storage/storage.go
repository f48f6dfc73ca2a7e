// Package storage persists rendered poster artifacts on disk, keyed by
// job ID. Writes go through a temp file and rename, so a reader never
// observes a partially written poster.
package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/posterforge/posterforge/pkg/errors"
)

// ArtifactStore stores one PNG per job under a flat directory.
type ArtifactStore struct {
	dir    string
	logger *log.Logger
}

// NewArtifactStore ensures dir exists and returns the store.
func NewArtifactStore(dir string, logger *log.Logger) (*ArtifactStore, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "creating artifact directory %s", dir)
	}
	return &ArtifactStore{dir: dir, logger: logger}, nil
}

// Path returns where the artifact for a job lives.
func (s *ArtifactStore) Path(jobID string) string {
	return filepath.Join(s.dir, jobID+".png")
}

// Save writes the poster atomically. The temp file lives in the same
// directory so the final rename stays on one filesystem.
func (s *ArtifactStore) Save(jobID string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, jobID+".*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "creating temp artifact")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeInternal, "writing artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "closing temp artifact")
	}
	if err := os.Rename(tmpName, s.Path(jobID)); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "publishing artifact")
	}
	s.logger.Debug("saved artifact", "job", jobID, "bytes", len(data))
	return nil
}

// Open returns a reader over a stored artifact. Missing artifacts are
// FILE_NOT_FOUND; the caller distinguishes "not ready yet" by checking
// job status first.
func (s *ArtifactStore) Open(jobID string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(jobID))
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "no artifact for job %q", jobID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "opening artifact")
	}
	return f, nil
}

// Exists reports whether the artifact is on disk.
func (s *ArtifactStore) Exists(jobID string) bool {
	_, err := os.Stat(s.Path(jobID))
	return err == nil
}

// Remove deletes a job's artifact. Removing a missing artifact is not
// an error; the reaper calls this unconditionally.
func (s *ArtifactStore) Remove(jobID string) error {
	err := os.Remove(s.Path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeInternal, "removing artifact")
	}
	return nil
}
