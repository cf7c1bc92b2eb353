package savestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/savesync/internal/cartspi"
)

func TestRemovableMediaStoreReadWrite(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "game.sav")
	store := NewRemovableMediaStore(savePath)
	ctx := context.Background()

	has, err := store.HasSave(ctx)
	require.NoError(t, err)
	require.False(t, has)

	files, err := store.ReadSave(ctx)
	require.NoError(t, err)
	require.Empty(t, files)

	require.NoError(t, store.WriteSave(ctx, FileList{{Path: "save.dat", Data: []byte("hello")}}))

	has, err = store.HasSave(ctx)
	require.NoError(t, err)
	require.True(t, has)

	files, err = store.ReadSave(ctx)
	require.NoError(t, err)
	require.Equal(t, FileList{{Path: "save.dat", Data: []byte("hello")}}, files)
}

func TestExternalHandheldStoreSharesAdapterShape(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "other.sav")
	store := NewExternalHandheldStore(savePath)
	ctx := context.Background()

	require.NoError(t, store.WriteSave(ctx, FileList{{Path: "save.dat", Data: []byte{1, 2, 3}}}))
	files, err := store.ReadSave(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "save.dat", files[0].Path)
}

// memArchive is an in-memory Archive used to test InstalledStore.
type memArchive struct {
	files     map[string][]byte
	order     []string
	committed bool
}

func newMemArchive() *memArchive {
	return &memArchive{files: map[string][]byte{}}
}

func (a *memArchive) Walk(ctx context.Context, fn func(path string) error) error {
	for _, p := range a.order {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (a *memArchive) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return a.files[path], nil
}

func (a *memArchive) RemoveAll(ctx context.Context) error {
	a.files = map[string][]byte{}
	a.order = nil
	return nil
}

func (a *memArchive) WriteFile(ctx context.Context, path string, data []byte) error {
	if _, exists := a.files[path]; !exists {
		a.order = append(a.order, path)
	}
	a.files[path] = data
	return nil
}

func (a *memArchive) Commit(ctx context.Context) error {
	a.committed = true
	return nil
}

func TestInstalledStoreRoundTrip(t *testing.T) {
	archive := newMemArchive()
	store := NewInstalledStore(archive)
	ctx := context.Background()

	has, err := store.HasSave(ctx)
	require.NoError(t, err)
	require.False(t, has)

	files := FileList{
		{Path: "data/0/save.bin", Data: []byte("a")},
		{Path: "data/1/save.bin", Data: []byte("b")},
	}
	require.NoError(t, store.WriteSave(ctx, files))
	require.True(t, archive.committed)

	got, err := store.ReadSave(ctx)
	require.NoError(t, err)
	require.Equal(t, files, got)

	has, err = store.HasSave(ctx)
	require.NoError(t, err)
	require.True(t, has)
}

func TestInstalledStoreWriteReplacesEntireArchive(t *testing.T) {
	archive := newMemArchive()
	store := NewInstalledStore(archive)
	ctx := context.Background()

	require.NoError(t, store.WriteSave(ctx, FileList{{Path: "old.bin", Data: []byte("x")}}))
	require.NoError(t, store.WriteSave(ctx, FileList{{Path: "new.bin", Data: []byte("y")}}))

	got, err := store.ReadSave(ctx)
	require.NoError(t, err)
	require.Equal(t, FileList{{Path: "new.bin", Data: []byte("y")}}, got)
}

// fakeBus is a minimal in-memory SerialBus sufficient to drive
// CartridgeStore through detection and a read/write cycle.
type fakeBus struct {
	mem []byte
	wel bool
}

func (b *fakeBus) Transfer(ctx context.Context, cmd byte, addr []byte, data []byte, read bool) error {
	base := cmd &^ 0x08
	switch base {
	case 0x9F: // JEDEC ID — report unknown so detection falls through
		if read {
			data[0] = 0x00
		}
		return nil
	case 0x05: // READ_STATUS
		var status byte
		if b.wel {
			status = 0x02
		}
		data[0] = status
		return nil
	case 0x06: // WRITE_ENABLE
		b.wel = true
		return nil
	case 0x04: // WRITE_DISABLE
		b.wel = false
		return nil
	case 0x03: // READ
		off := decodeAddr(addr, cmd&0x08 != 0)
		copy(data, b.mem[off:off+len(data)])
		return nil
	case 0x02: // PAGE_WRITE
		off := decodeAddr(addr, cmd&0x08 != 0)
		copy(b.mem[off:off+len(data)], data)
		return nil
	case 0xD8: // SECTOR_ERASE
		off := decodeAddr(addr, cmd&0x08 != 0)
		for i := off; i < off+65536 && i < len(b.mem); i++ {
			b.mem[i] = 0xFF
		}
		return nil
	}
	return nil
}

func decodeAddr(addr []byte, highBit bool) int {
	off := 0
	switch len(addr) {
	case 2:
		off = int(addr[0])<<8 | int(addr[1])
		if highBit {
			off |= 0x10000
		}
	case 3:
		off = int(addr[0])<<16 | int(addr[1])<<8 | int(addr[2])
	}
	return off
}

func TestCartridgeStoreRoundTrip(t *testing.T) {
	mem := make([]byte, cartspi.SizeOf(cartspi.EEPROM64K))
	for i := range mem {
		mem[i] = 0xFF
	}
	bus := &fakeBus{mem: mem}
	store := NewCartridgeStore(cartspi.New(bus))
	ctx := context.Background()

	has, err := store.HasSave(ctx)
	require.NoError(t, err)
	require.True(t, has, "an inserted cartridge always reports a save")

	require.NoError(t, store.WriteSave(ctx, FileList{{Path: "save.dat", Data: []byte{9, 9}}}))

	files, err := store.ReadSave(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, byte(9), files[0].Data[0])
	require.Equal(t, byte(9), files[0].Data[1])
	require.Equal(t, byte(0xFF), files[0].Data[2])
}

func TestWatcherNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.sav"), []byte("x"), 0o644))

	select {
	case <-w.Events:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
}
