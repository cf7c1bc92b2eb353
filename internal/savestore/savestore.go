// Package savestore abstracts the four places a title's save data can live
// — an installed-title archive, a loose file on removable media, a
// physical cartridge's save chip, or another handheld's save file — behind
// one capability interface (spec §4.3).
package savestore

import "context"

// File is one (path, bytes) entry of a save. Order is significant: it is
// the order the content hash is computed over (spec §4.1).
type File struct {
	Path string
	Data []byte
}

// FileList is an ordered save file list.
type FileList []File

// TotalSize returns the sum of every file's byte length.
func (l FileList) TotalSize() int64 {
	var n int64
	for _, f := range l {
		n += int64(len(f.Data))
	}
	return n
}

// SaveStore is the single capability set every title source implements
// (spec §4.3).
type SaveStore interface {
	// ReadSave returns the title's current save files, or an empty list
	// if no save exists.
	ReadSave(ctx context.Context) (FileList, error)
	// WriteSave replaces any existing save in its entirety with files.
	WriteSave(ctx context.Context, files FileList) error
	// HasSave reports whether a save currently exists.
	HasSave(ctx context.Context) (bool, error)
}
