// Package syncengine implements the three-way sync decision protocol: the
// single-title upload/download operations, the batch sync_all orchestration,
// and the offline local-decision shortcut (spec §4.6). It is adapted from
// this repo's former commit/checkout pair — upload generalizes "commit and
// push a ref", download generalizes "fetch and check out a ref" — onto
// save files instead of tree objects.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fenilsonani/savesync/internal/bundle"
	"github.com/fenilsonani/savesync/internal/hashutil"
	"github.com/fenilsonani/savesync/internal/journal"
	"github.com/fenilsonani/savesync/internal/savestore"
	"github.com/fenilsonani/savesync/internal/syncerr"
	"github.com/fenilsonani/savesync/internal/title"
	"github.com/fenilsonani/savesync/internal/transport"
)

// Phase names an observable point in a single title's lifecycle (spec
// §4.6.6). They are reported to a ProgressFunc between suspension points,
// never mid-I/O.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReading
	PhaseHashing
	PhaseEncoding
	PhaseDecoding
	PhaseSent
	PhaseWriting
	PhaseJournal
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReading:
		return "reading"
	case PhaseHashing:
		return "hashing"
	case PhaseEncoding:
		return "encoding"
	case PhaseDecoding:
		return "decoding"
	case PhaseSent:
		return "sent"
	case PhaseWriting:
		return "writing"
	case PhaseJournal:
		return "journal"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressFunc is invoked between phases of a single title's sync. It must
// not call back into the engine for the same title (spec §5).
type ProgressFunc func(titleIDHex string, phase Phase)

func noopProgress(string, Phase) {}

// Decision is one of the four outcomes of the offline local-decision
// shortcut (spec §4.6.5).
type Decision int

const (
	UpToDate Decision = iota
	Upload
	Download
	Conflict
)

func (d Decision) String() string {
	switch d {
	case UpToDate:
		return "UP_TO_DATE"
	case Upload:
		return "UPLOAD"
	case Download:
		return "DOWNLOAD"
	case Conflict:
		return "CONFLICT"
	default:
		return "UNKNOWN"
	}
}

// Engine orchestrates save synchronization for a fixed set of titles
// against one server, backed by one journal and one save-chip bus.
type Engine struct {
	Transport        *transport.Transport
	Journal          *journal.Journal
	ConsoleID        string
	UploadSizeLimit  int64
	Progress         ProgressFunc
	Logger           Logger

	cartSem  *semaphore.Weighted
	haveCache map[uint64]hashutil.ContentHash
}

// Logger is the narrow logging interface the engine reports non-fatal
// failures through (spec §7 non-goal: "logging specified only at its
// interface").
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

const defaultUploadSizeLimit = 458752 // 448 KiB, spec §4.6.1 default

// New returns an Engine ready to sync. If limit is 0, the spec default
// (448 KiB) is used. progress and logger may be nil.
func New(tr *transport.Transport, j *journal.Journal, consoleID string, limit int64, progress ProgressFunc, logger Logger) *Engine {
	if limit == 0 {
		limit = defaultUploadSizeLimit
	}
	if progress == nil {
		progress = noopProgress
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Engine{
		Transport:       tr,
		Journal:         j,
		ConsoleID:       consoleID,
		UploadSizeLimit: limit,
		Progress:        progress,
		Logger:          logger,
		cartSem:         semaphore.NewWeighted(1),
		haveCache:       make(map[uint64]hashutil.ContentHash),
	}
}

// acquireCart serializes access to a title's SaveStore when it is
// cartridge-backed, matching the "process-singleton SPI bus" resource rule
// (spec §5). Non-cartridge titles skip the semaphore and get a no-op
// release; only Upload/Download of a cartridge-backed title can block on it.
func (e *Engine) acquireCart(ctx context.Context, src title.SourceKind) (release func(), err error) {
	if src != title.Cartridge {
		return func() {}, nil
	}
	if err := e.cartSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { e.cartSem.Release(1) }, nil
}

// UploadResult is the outcome of a single-title upload.
type UploadResult struct {
	Hash hashutil.ContentHash
}

// Upload implements spec §4.6.1. If precomputedHash is non-nil it is used
// instead of recomputing the hash from the read file list (Phase A of
// sync_all already paid that cost).
func (e *Engine) Upload(ctx context.Context, t title.Title, store savestore.SaveStore, precomputedHash *hashutil.ContentHash) (UploadResult, error) {
	release, err := e.acquireCart(ctx, t.Source)
	if err != nil {
		return UploadResult{}, err
	}
	defer release()

	idHex := t.IDHex()

	e.Progress(idHex, PhaseReading)
	files, err := store.ReadSave(ctx)
	if err != nil {
		e.Progress(idHex, PhaseFailed)
		return UploadResult{}, syncerr.New(syncerr.ArchiveError, fmt.Errorf("read save: %w", err))
	}
	if len(files) == 0 {
		e.Progress(idHex, PhaseDone)
		return UploadResult{Hash: hashutil.ZeroHash}, nil
	}

	e.Progress(idHex, PhaseHashing)
	var hash hashutil.ContentHash
	if precomputedHash != nil {
		hash = *precomputedHash
	} else {
		hash = hashFileList(files)
	}

	e.Progress(idHex, PhaseEncoding)
	bundleFiles := make([]bundle.File, len(files))
	for i, f := range files {
		bundleFiles[i] = bundle.File{Path: f.Path, Data: f.Data}
	}
	encoded, err := bundle.Encode(t.ID, time.Now().Unix(), bundleFiles)
	if err != nil {
		e.Progress(idHex, PhaseFailed)
		return UploadResult{}, syncerr.New(syncerr.BundleError, err)
	}
	if int64(len(encoded)) > e.UploadSizeLimit {
		e.Progress(idHex, PhaseFailed)
		return UploadResult{}, syncerr.New(syncerr.TooLarge, fmt.Errorf("bundle is %d bytes, limit %d", len(encoded), e.UploadSizeLimit))
	}

	if err := e.Transport.PutSave(ctx, idHex, encoded); err != nil {
		e.Progress(idHex, PhaseFailed)
		return UploadResult{}, err
	}
	e.Progress(idHex, PhaseSent)

	e.Progress(idHex, PhaseJournal)
	if err := e.Journal.Store(idHex, hash.String()); err != nil {
		e.Logger.Printf("syncengine: journal write for %s failed: %v", idHex, err)
	}
	e.cacheHave(t.ID, hash)

	e.Progress(idHex, PhaseDone)
	return UploadResult{Hash: hash}, nil
}

// DownloadResult is the outcome of a single-title download.
type DownloadResult struct {
	Hash hashutil.ContentHash
}

// Download implements spec §4.6.2.
func (e *Engine) Download(ctx context.Context, t title.Title, store savestore.SaveStore) (DownloadResult, error) {
	release, err := e.acquireCart(ctx, t.Source)
	if err != nil {
		return DownloadResult{}, err
	}
	defer release()

	idHex := t.IDHex()

	data, ok, err := e.Transport.GetSave(ctx, idHex)
	if err != nil {
		e.Progress(idHex, PhaseFailed)
		return DownloadResult{}, err
	}
	if !ok {
		e.Progress(idHex, PhaseFailed)
		return DownloadResult{}, syncerr.New(syncerr.ServerError, fmt.Errorf("no save for %s on server", idHex))
	}

	e.Progress(idHex, PhaseDecoding)
	decoded, err := bundle.Decode(data)
	if err != nil {
		e.Progress(idHex, PhaseFailed)
		return DownloadResult{}, syncerr.New(syncerr.BundleError, err)
	}
	defer decoded.Release()

	namedFiles := make([]hashutil.NamedFile, len(decoded.Files))
	storeFiles := make(savestore.FileList, len(decoded.Files))
	for i, f := range decoded.Files {
		namedFiles[i] = hashutil.NamedFile{Path: f.Path, Data: f.Data}
		storeFiles[i] = savestore.File{Path: f.Path, Data: f.Data}
	}
	hash := hashutil.HashFileList(namedFiles)

	e.Progress(idHex, PhaseWriting)
	if err := store.WriteSave(ctx, storeFiles); err != nil {
		e.Progress(idHex, PhaseFailed)
		return DownloadResult{}, syncerr.New(syncerr.ArchiveError, fmt.Errorf("write save: %w", err))
	}

	e.Progress(idHex, PhaseJournal)
	if err := e.Journal.Store(idHex, hash.String()); err != nil {
		e.Logger.Printf("syncengine: journal write for %s failed: %v", idHex, err)
	}
	e.cacheHave(t.ID, hash)

	e.Progress(idHex, PhaseDone)
	return DownloadResult{Hash: hash}, nil
}

func haveKey(titleID uint64, hash hashutil.ContentHash) uint64 {
	return hashutil.QuickKey(append(uint64Bytes(titleID), hash[:]...))
}

func (e *Engine) cacheHave(titleID uint64, hash hashutil.ContentHash) {
	e.haveCache[haveKey(titleID, hash)] = hash
}

// haveUploaded reports whether hash for titleID was already transferred
// earlier in the current SyncAll run (SyncAll clears the cache on entry),
// per the have-cache
// optimization: a pure skip-redundant-work hint that never substitutes for
// the journal and never changes a sync decision.
func (e *Engine) haveUploaded(titleID uint64, hash hashutil.ContentHash) bool {
	cached, ok := e.haveCache[haveKey(titleID, hash)]
	return ok && cached == hash
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8, 8+hashutil.Size)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

func hashFileList(files savestore.FileList) hashutil.ContentHash {
	named := make([]hashutil.NamedFile, len(files))
	for i, f := range files {
		named[i] = hashutil.NamedFile{Path: f.Path, Data: f.Data}
	}
	return hashutil.HashFileList(named)
}
