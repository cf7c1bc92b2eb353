package savestore

import (
	"context"
	"fmt"
)

// Archive is the platform save-archive filesystem primitive this store
// consumes (spec §1 non-goal: platform save-archive primitives are an
// external collaborator, specified only at this interface). Paths passed
// to and returned from Archive are relative to the archive root, without a
// leading separator.
type Archive interface {
	// Walk recursively enumerates every file in the archive depth-first,
	// calling fn once per file with its relative path. The enumeration
	// order is what the engine hashes over (spec §9: hash file ordering).
	Walk(ctx context.Context, fn func(path string) error) error
	// ReadFile returns the contents of the file at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// RemoveAll deletes every file currently in the archive.
	RemoveAll(ctx context.Context) error
	// WriteFile creates or overwrites the file at path with data.
	WriteFile(ctx context.Context, path string, data []byte) error
	// Commit flushes archive metadata so writes are durable. Skipping
	// Commit after a write is a silent data-loss bug (spec §4.3).
	Commit(ctx context.Context) error
}

// InstalledStore is the installed-on-device kind (spec §4.3): the save is
// every file in the title's installed save archive.
type InstalledStore struct {
	archive Archive
}

// NewInstalledStore returns a store backed by archive.
func NewInstalledStore(archive Archive) *InstalledStore {
	return &InstalledStore{archive: archive}
}

func (s *InstalledStore) ReadSave(ctx context.Context) (FileList, error) {
	var paths []string
	err := s.archive.Walk(ctx, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("savestore: enumerate archive: %w", err)
	}

	files := make(FileList, 0, len(paths))
	for _, path := range paths {
		data, err := s.archive.ReadFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("savestore: read %s: %w", path, err)
		}
		files = append(files, File{Path: path, Data: data})
	}
	return files, nil
}

func (s *InstalledStore) WriteSave(ctx context.Context, files FileList) error {
	if err := s.archive.RemoveAll(ctx); err != nil {
		return fmt.Errorf("savestore: clear archive: %w", err)
	}
	for _, f := range files {
		if err := s.archive.WriteFile(ctx, f.Path, f.Data); err != nil {
			return fmt.Errorf("savestore: write %s: %w", f.Path, err)
		}
	}
	if err := s.archive.Commit(ctx); err != nil {
		return fmt.Errorf("savestore: commit archive: %w", err)
	}
	return nil
}

func (s *InstalledStore) HasSave(ctx context.Context) (bool, error) {
	found := false
	err := s.archive.Walk(ctx, func(path string) error {
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("savestore: enumerate archive: %w", err)
	}
	return found, nil
}
