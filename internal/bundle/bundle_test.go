package bundle

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/savesync/internal/hashutil"
)

func TestRoundTrip(t *testing.T) {
	files := []File{
		{Path: "a", Data: []byte("x")},
		{Path: "b/c", Data: []byte("yz")},
	}

	encoded, err := Encode(0x1122334455667788, 1700000000, files)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	defer decoded.Release()

	require.Equal(t, uint64(0x1122334455667788), decoded.TitleID)
	require.Equal(t, int64(1700000000), decoded.Timestamp)
	if diff := cmp.Diff(files, decoded.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripEmptyFileList(t *testing.T) {
	encoded, err := Encode(1, 1700000000, nil)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	defer decoded.Release()

	require.Empty(t, decoded.Files)
}

func TestReEncodeIsIdempotentModuloTimestamp(t *testing.T) {
	files := []File{{Path: "main", Data: []byte{0x01, 0x02, 0x03, 0x04}}}

	a, err := Encode(1, 1000, files)
	require.NoError(t, err)
	b, err := Encode(1, 2000, files)
	require.NoError(t, err)

	da, err := Decode(a)
	require.NoError(t, err)
	db, err := Decode(b)
	require.NoError(t, err)

	require.Equal(t, da.Files, db.Files)
	require.NotEqual(t, da.Timestamp, db.Timestamp)
}

func TestDecodeEmbeddedHashesMatchFileBytes(t *testing.T) {
	files := []File{
		{Path: "save.dat", Data: []byte("hello world")},
	}
	encoded, err := Encode(1, 0, files)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	defer decoded.Release()

	payload, err := decompressZlib(encoded[headerSize:], binary.LittleEndian.Uint32(encoded[24:28]))
	require.NoError(t, err)

	off := 0
	for _, f := range decoded.Files {
		pathLen := int(binary.LittleEndian.Uint16(payload[off : off+2]))
		off += 2 + pathLen + 4
		var embedded hashutil.ContentHash
		copy(embedded[:], payload[off:off+hashutil.Size])
		off += hashutil.Size
		require.Equal(t, hashutil.HashBytes(f.Data), embedded)
	}
}

func TestDecodeVersion1Raw(t *testing.T) {
	files := []File{{Path: "save.dat", Data: []byte{0xAA, 0xBB}}}
	payload, err := encodePayload(files)
	require.NoError(t, err)

	header := make([]byte, headerSize)
	copy(header[0:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], VersionRaw)
	binary.BigEndian.PutUint64(header[8:16], 42)
	binary.LittleEndian.PutUint32(header[16:20], 12345)
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(files)))
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(payload)))

	data := append(header, payload...)
	decoded, err := Decode(data)
	require.NoError(t, err)
	defer decoded.Release()

	require.Equal(t, uint64(42), decoded.TitleID)
	require.Equal(t, files, decoded.Files)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	encoded, err := Encode(1, 0, nil)
	require.NoError(t, err)
	copy(encoded[0:4], "XXXX")

	_, err = Decode(encoded)
	require.Error(t, err)
	var bad *BadBundleError
	require.ErrorAs(t, err, &bad)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	encoded, err := Encode(1, 0, nil)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(encoded[4:8], 3)

	_, err = Decode(encoded)
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	encoded, err := Encode(1, 0, []File{{Path: "x", Data: []byte("hello")}})
	require.NoError(t, err)

	_, err = Decode(encoded[:len(encoded)-2])
	require.Error(t, err)
}

func TestDecodeRejectsDeclaredSizeExceedingPayload(t *testing.T) {
	// Hand-build a v1 bundle whose file_size lies about the data available.
	var buf bytes.Buffer
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, 1)
	buf.Write(lenBuf)
	buf.WriteString("x")

	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, 1000) // lies: no data follows
	buf.Write(sizeBuf)
	sum := hashutil.HashBytes(nil)
	buf.Write(sum[:])

	payload := buf.Bytes()
	header := make([]byte, headerSize)
	copy(header[0:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], VersionRaw)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(payload)))

	_, err := Decode(append(header, payload...))
	require.Error(t, err)
}

func TestPathLengthAtMaxIsRejected(t *testing.T) {
	longPath := bytes.Repeat([]byte("p"), maxPath-1)
	ok, err := Encode(1, 0, []File{{Path: string(longPath), Data: []byte("x")}})
	require.NoError(t, err)
	_, err = Decode(ok)
	require.NoError(t, err, "path length MAX-1 must be accepted")

	tooLong := bytes.Repeat([]byte("p"), maxPath)
	_, err = Encode(1, 0, []File{{Path: string(tooLong), Data: []byte("x")}})
	require.Error(t, err, "path length MAX must be rejected")
}

func TestDecodeRejectsHashMismatch(t *testing.T) {
	encoded, err := Encode(1, 0, []File{{Path: "save.dat", Data: []byte("original")}})
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.NotEmpty(t, decoded.Files)

	// Corrupt a byte in the compressed payload's decoded tail is hard to do
	// deterministically; instead verify the embedded table directly via a
	// hand-built v1 bundle with a tampered hash.
	payload, err := encodePayload([]File{{Path: "x", Data: []byte("abc")}})
	require.NoError(t, err)
	payload[2+1+4] ^= 0xFF // flip the first byte of the embedded SHA-256

	header := make([]byte, headerSize)
	copy(header[0:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], VersionRaw)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(payload)))

	_, err = Decode(append(header, payload...))
	require.Error(t, err)
}
