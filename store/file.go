package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/spf13/afero"
)

// FileProfileStore persists the profile as a single JSON file.
type FileProfileStore struct {
	fs   afero.Fs
	path string
}

func NewFileProfileStore(fsys afero.Fs, path string) *FileProfileStore {
	return &FileProfileStore{fs: fsys, path: path}
}

func (s *FileProfileStore) Load(ctx context.Context) (*types.UserProfile, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.ErrProfileNotFound
		}
		return nil, fmt.Errorf("read profile %s: %w", s.path, err)
	}
	return decode(data)
}

// Save writes a sibling temp file and renames it over the profile.
func (s *FileProfileStore) Save(ctx context.Context, profile types.UserProfile) error {
	data, err := encode(profile)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}
	return nil
}

func (s *FileProfileStore) Delete(ctx context.Context) error {
	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove profile: %w", err)
	}
	return nil
}
