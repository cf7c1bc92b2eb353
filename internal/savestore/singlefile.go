package savestore

import (
	"context"
	"fmt"
	"os"

	"github.com/google/renameio"
)

// saveDatName is the fixed single-entry filename every non-archive save
// kind presents to the engine (spec §3, §4.3): removable-media,
// external-handheld, and cartridge sources are all a single opaque blob.
const saveDatName = "save.dat"

// fileOnDisk is the shared implementation backing the removable-media and
// external-handheld kinds (spec §9: these share an adapter for the single
// save.dat file). It reads and writes one real file on disk at path,
// presenting it to the engine as a one-entry FileList named "save.dat".
type fileOnDisk struct {
	path string
}

func (s *fileOnDisk) ReadSave(ctx context.Context) (FileList, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("savestore: read %s: %w", s.path, err)
	}
	return FileList{{Path: saveDatName, Data: data}}, nil
}

func (s *fileOnDisk) WriteSave(ctx context.Context, files FileList) error {
	data := dataOf(files)
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("savestore: write %s: %w", s.path, err)
	}
	return nil
}

func (s *fileOnDisk) HasSave(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("savestore: stat %s: %w", s.path, err)
	}
	return true, nil
}

// dataOf extracts the single payload WriteSave expects from a FileList: the
// bytes of its (at most one) entry, or nil for an empty save.
func dataOf(files FileList) []byte {
	if len(files) == 0 {
		return nil
	}
	return files[0].Data
}

// RemovableMediaStore is the removable-media-file kind (spec §4.3): the
// save is a single file produced from the raw byte contents of a sibling
// file named after the ROM. savePath is resolved by the caller (CLI/engine)
// using the removable-media search rules; this store only reads/writes it.
type RemovableMediaStore struct {
	*fileOnDisk
}

// NewRemovableMediaStore returns a store backed by the file at savePath.
func NewRemovableMediaStore(savePath string) *RemovableMediaStore {
	return &RemovableMediaStore{fileOnDisk: &fileOnDisk{path: savePath}}
}

// ExternalHandheldStore is the external-handheld-file kind (spec §4.3):
// identical shape to RemovableMediaStore, but savePath is resolved using
// the external-handheld search rules instead.
type ExternalHandheldStore struct {
	*fileOnDisk
}

// NewExternalHandheldStore returns a store backed by the file at savePath.
func NewExternalHandheldStore(savePath string) *ExternalHandheldStore {
	return &ExternalHandheldStore{fileOnDisk: &fileOnDisk{path: savePath}}
}
