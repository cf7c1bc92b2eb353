// Package journal implements the on-disk key/value store mapping title id
// to the last content hash successfully reconciled with the server (spec
// §4.5, §6.3). It is adapted directly from this repo's former git-ref
// storage (one file per ref, case-insensitive hex validation) — a title id
// takes the place of a ref name, a content hash takes the place of an
// object id.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/fenilsonani/savesync/internal/hashutil"
)

// Journal is one file per title under dir, created lazily.
type Journal struct {
	dir string
}

// New returns a Journal rooted at dir. dir is created on first Store call;
// Load against a not-yet-created directory simply reports no entry.
func New(dir string) *Journal {
	return &Journal{dir: dir}
}

func (j *Journal) path(titleIDHex string) string {
	return filepath.Join(j.dir, strings.ToUpper(titleIDHex)+".txt")
}

// Load returns the last-synced content hash for titleIDHex, or ok == false
// if there is no sync history or the stored file is malformed (spec §4.5:
// "any deviation returns 'no entry'").
func (j *Journal) Load(titleIDHex string) (hash string, ok bool) {
	data, err := os.ReadFile(j.path(titleIDHex))
	if err != nil {
		return "", false
	}
	s := string(data)
	if _, err := hashutil.ParseContentHash(s); err != nil {
		return "", false
	}
	return strings.ToLower(s), true
}

// Store writes hash as the last-synced content hash for titleIDHex. Case
// is normalized to lowercase on write (spec §6.3). Storage failures are
// non-fatal to the caller's sync action but are returned so the caller can
// report them.
func (j *Journal) Store(titleIDHex string, hash string) error {
	if _, err := hashutil.ParseContentHash(hash); err != nil {
		return fmt.Errorf("journal: refusing to store invalid hash: %w", err)
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("journal: create state directory: %w", err)
	}
	lower := strings.ToLower(hash)
	if err := renameio.WriteFile(j.path(titleIDHex), []byte(lower), 0o644); err != nil {
		return fmt.Errorf("journal: write entry for %s: %w", titleIDHex, err)
	}
	return nil
}
