// Package bundle implements the compressed, content-hashed wire container
// ("3DSS") that carries one title's save files between the client and the
// server.
//
// Wire layout (spec §6.1):
//
//	offset size field
//	0      4    magic = "3DSS"
//	4      4    version (u32 LE) — 1 or 2
//	8      8    title_id (u64 BE)
//	16     4    timestamp seconds since Unix epoch (u32 LE)
//	20     4    file_count (u32 LE)
//	24     4    size_field (u32 LE) — v1: total payload size; v2: uncompressed payload size
//	28     …    payload (v1 raw; v2 zlib-compressed)
//
// Payload, after optional decompression, is a file table followed by file
// data in the same order:
//
//	for each file: u16 LE path_len, path bytes, u32 LE file_size, 32B sha256
//	then, for each file in order: file_size bytes of data
package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/fenilsonani/savesync/internal/hashutil"
)

const (
	// Magic is the 4-byte bundle signature.
	Magic = "3DSS"

	headerSize = 28
	// maxPath is the upper bound on a relative save-file path (spec §3:
	// "Path is a relative UTF-8 string ≤255 bytes"). Lengths in
	// [0, maxPath) are valid; maxPath itself is rejected.
	maxPath = 256

	// VersionRaw is the uncompressed wire format.
	VersionRaw uint32 = 1
	// VersionZlib is the zlib-compressed wire format (spec default for encode).
	VersionZlib uint32 = 2

	// defaultCompressionLevel is zlib level 6, chosen for interop parity
	// with existing server peers (spec §4.2).
	defaultCompressionLevel = 6
)

// File is one (path, bytes) entry of a save, as carried inside a bundle.
type File struct {
	Path string
	Data []byte
}

// BadBundleError reports a §3 invariant violation encountered while decoding.
type BadBundleError struct {
	Reason string
}

func (e *BadBundleError) Error() string {
	return "bundle: bad bundle: " + e.Reason
}

func badBundle(format string, args ...any) error {
	return &BadBundleError{Reason: fmt.Sprintf(format, args...)}
}

// Encode serializes files into a version-2 (zlib-compressed) bundle for
// titleID at timestamp (seconds since Unix epoch).
func Encode(titleID uint64, timestamp int64, files []File) ([]byte, error) {
	payload, err := encodePayload(files)
	if err != nil {
		return nil, fmt.Errorf("bundle: encode payload: %w", err)
	}

	compressed, err := compressZlib(payload)
	if err != nil {
		return nil, fmt.Errorf("bundle: compress payload: %w", err)
	}

	header := make([]byte, headerSize)
	copy(header[0:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], VersionZlib)
	binary.BigEndian.PutUint64(header[8:16], titleID)
	binary.LittleEndian.PutUint32(header[16:20], uint32(timestamp))
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(files)))
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(payload)))

	out := make([]byte, 0, headerSize+len(compressed))
	out = append(out, header...)
	out = append(out, compressed...)
	return out, nil
}

// encodePayload writes the file table followed by file data, in order.
func encodePayload(files []File) ([]byte, error) {
	var buf bytes.Buffer

	for _, f := range files {
		if len(f.Path) >= maxPath {
			return nil, fmt.Errorf("bundle: path %q exceeds max length", f.Path)
		}
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(f.Path)))
		buf.Write(lenBuf[:])
		buf.WriteString(f.Path)

		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(f.Data)))
		buf.Write(sizeBuf[:])

		sum := hashutil.HashBytes(f.Data)
		buf.Write(sum[:])
	}

	for _, f := range files {
		buf.Write(f.Data)
	}

	return buf.Bytes(), nil
}

func compressZlib(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, defaultCompressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decoded is the result of decoding a bundle. Its Files may alias into an
// internally owned decompression buffer; callers must not use them after
// Release.
type Decoded struct {
	TitleID   uint64
	Timestamp int64
	Files     []File

	owned []byte // retained so Files' slices stay valid until Release
}

// Release discards the buffer backing any aliased file data. Safe to call
// more than once.
func (d *Decoded) Release() {
	d.owned = nil
	d.Files = nil
}

// Decode parses a bundle produced by Encode (version 2) or a legacy
// version-1 bundle. It validates every invariant in spec §3 and returns a
// *BadBundleError describing the first one violated.
func Decode(data []byte) (*Decoded, error) {
	if len(data) < headerSize {
		return nil, badBundle("truncated header: %d bytes", len(data))
	}
	if string(data[0:4]) != Magic {
		return nil, badBundle("bad magic %q", data[0:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != VersionRaw && version != VersionZlib {
		return nil, badBundle("unsupported version %d", version)
	}
	titleID := binary.BigEndian.Uint64(data[8:16])
	timestamp := int64(binary.LittleEndian.Uint32(data[16:20]))
	fileCount := binary.LittleEndian.Uint32(data[20:24])
	sizeField := binary.LittleEndian.Uint32(data[24:28])
	rest := data[headerSize:]

	var payload []byte
	switch version {
	case VersionRaw:
		if uint32(len(rest)) != sizeField {
			return nil, badBundle("v1 payload size mismatch: declared %d, got %d", sizeField, len(rest))
		}
		payload = rest
	case VersionZlib:
		decompressed, err := decompressZlib(rest, sizeField)
		if err != nil {
			return nil, badBundle("decompress: %v", err)
		}
		payload = decompressed
	}

	files, err := decodePayload(payload, fileCount)
	if err != nil {
		return nil, err
	}

	return &Decoded{
		TitleID:   titleID,
		Timestamp: timestamp,
		Files:     files,
		owned:     payload,
	}, nil
}

func decompressZlib(compressed []byte, wantSize uint32) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make([]byte, 0, wantSize)
	buf := bytes.NewBuffer(out)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	if uint32(buf.Len()) != wantSize {
		return nil, fmt.Errorf("decompressed to %d bytes, want %d", buf.Len(), wantSize)
	}
	return buf.Bytes(), nil
}

func decodePayload(payload []byte, fileCount uint32) ([]File, error) {
	files := make([]File, 0, fileCount)

	type entry struct {
		path string
		size uint32
		sum  hashutil.ContentHash
	}
	entries := make([]entry, 0, fileCount)

	off := 0
	for i := uint32(0); i < fileCount; i++ {
		if off+2 > len(payload) {
			return nil, badBundle("file %d: truncated path length", i)
		}
		pathLen := int(binary.LittleEndian.Uint16(payload[off : off+2]))
		off += 2
		if pathLen >= maxPath {
			return nil, badBundle("file %d: path length %d exceeds max", i, pathLen)
		}
		if off+pathLen > len(payload) {
			return nil, badBundle("file %d: truncated path", i)
		}
		path := string(payload[off : off+pathLen])
		off += pathLen

		if off+4+hashutil.Size > len(payload) {
			return nil, badBundle("file %d: truncated size/hash", i)
		}
		size := binary.LittleEndian.Uint32(payload[off : off+4])
		off += 4
		var sum hashutil.ContentHash
		copy(sum[:], payload[off:off+hashutil.Size])
		off += hashutil.Size

		entries = append(entries, entry{path: path, size: size, sum: sum})
	}

	for _, e := range entries {
		if off+int(e.size) > len(payload) {
			return nil, badBundle("file %q: declared size %d exceeds payload", e.path, e.size)
		}
		data := payload[off : off+int(e.size)]
		off += int(e.size)

		if got := hashutil.HashBytes(data); got != e.sum {
			return nil, badBundle("file %q: hash mismatch", e.path)
		}

		files = append(files, File{Path: e.path, Data: data})
	}

	return files, nil
}
