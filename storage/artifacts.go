// Package storage keeps generated export artifacts on a filesystem.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type ArtifactStore struct {
	fs  afero.Fs
	dir string
}

// NewArtifactStore makes sure dir exists on fs.
func NewArtifactStore(fs afero.Fs, dir string) (*ArtifactStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return &ArtifactStore{fs: fs, dir: dir}, nil
}

// ArtifactName returns export_<device>_<uuid>.<ext>.
func ArtifactName(deviceID, ext string) string {
	return fmt.Sprintf("export_%s_%s.%s", unsafeNameChars.ReplaceAllString(deviceID, "_"), uuid.New().String(), ext)
}

// Create opens a new artifact for writing and returns its path.
func (s *ArtifactStore) Create(name string) (afero.File, string, error) {
	path := filepath.Join(s.dir, name)
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

func (s *ArtifactStore) Open(path string) (afero.File, error) {
	return s.fs.Open(path)
}

func (s *ArtifactStore) Size(path string) (int64, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *ArtifactStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// Remove deletes the artifact; a missing file is not an error.
func (s *ArtifactStore) Remove(path string) error {
	err := s.fs.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
