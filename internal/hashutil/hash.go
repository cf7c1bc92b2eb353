// Package hashutil computes the content hashes the sync engine uses to
// decide whether a title's save data changed.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
)

// Size is the length in bytes of a ContentHash.
const Size = sha256.Size

// ContentHash is the SHA-256 digest of a save's file bytes, rendered on the
// wire and in the journal as 64 lowercase hex characters.
type ContentHash [Size]byte

// ZeroHash is the literal all-zero hash the engine substitutes for an
// empty or missing local save (spec §4.6.3).
var ZeroHash ContentHash

// String renders the hash as 64 lowercase hex characters.
func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero placeholder hash.
func (h ContentHash) IsZero() bool {
	return h == ZeroHash
}

// ParseContentHash parses a 64-character hex string into a ContentHash.
// Case insensitive; any other length or non-hex content is an error.
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	if len(s) != Size*2 {
		return h, fmt.Errorf("hashutil: invalid content hash length %d, want %d", len(s), Size*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hashutil: invalid content hash: %w", err)
	}
	copy(h[:], b)
	return h, nil
}

// HashBytes returns the SHA-256 digest of data.
func HashBytes(data []byte) ContentHash {
	return ContentHash(sha256.Sum256(data))
}

// StreamingHasher accumulates bytes across multiple Update calls before
// producing a final ContentHash, for callers streaming file contents instead
// of holding them fully in memory.
type StreamingHasher struct {
	h hash.Hash
}

// NewStreamingHasher returns a hasher ready to accept Update calls.
func NewStreamingHasher() *StreamingHasher {
	return &StreamingHasher{h: sha256.New()}
}

// Update folds data into the running digest. It never errors (sha256.digest
// satisfies io.Writer unconditionally) and returns the hasher for chaining.
func (s *StreamingHasher) Update(data []byte) *StreamingHasher {
	s.h.Write(data)
	return s
}

// Sum finalizes and returns the digest accumulated so far.
func (s *StreamingHasher) Sum() ContentHash {
	var out ContentHash
	s.h.Sum(out[:0])
	return out
}

// NamedFile is the minimal shape HashFileList needs from a save file: its
// raw bytes. Path is carried for callers but deliberately excluded from the
// hash (spec §4.1 — paths are not mixed into the file-list hash).
type NamedFile struct {
	Path string
	Data []byte
}

// HashFileList returns the SHA-256 of the concatenation, in order, of every
// file's raw bytes. Path is never mixed in. An empty list hashes to the
// SHA-256 of the empty string — callers that want the all-zero placeholder
// for "no save" must substitute ZeroHash themselves (spec §4.6).
func HashFileList(files []NamedFile) ContentHash {
	h := NewStreamingHasher()
	for _, f := range files {
		h.Update(f.Data)
	}
	return h.Sum()
}

// QuickKey returns a fast, non-cryptographic digest of data for use as an
// in-memory map key (e.g. the sync engine's per-batch have-cache). It is
// never a substitute for ContentHash on the wire or in the journal.
func QuickKey(data []byte) uint64 {
	return xxhash.Sum64(data)
}
