package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilsonani/savesync/internal/hashutil"
	"github.com/fenilsonani/savesync/internal/savestore"
	"github.com/fenilsonani/savesync/internal/title"
	"github.com/fenilsonani/savesync/internal/transport"
)

// SyncTarget pairs a Title with the SaveStore that reads/writes it. Batch
// operations are keyed by this pair rather than by Title alone, since the
// same title id never maps to more than one store in a single run.
type SyncTarget struct {
	Title title.Title
	Store savestore.SaveStore
}

// BatchResult summarizes one sync_all run (spec §4.6.3).
type BatchResult struct {
	Uploaded   int
	Downloaded int
	Skipped    int
	UpToDate   int
	Failed     int
	// Conflicts lists up to 8 title id hex strings left in conflict after
	// auto-reclassification, for the caller to surface for manual
	// resolution (spec §4.6.3: "first N ≤ 8 title ids are returned").
	Conflicts []string
}

const maxConflictsReturned = 8

// SyncAll runs the three-phase batch sync across targets (spec §4.6.3).
// Cartridge-backed titles are excluded from the batch; they are
// manual-sync-only.
func (e *Engine) SyncAll(ctx context.Context, targets []SyncTarget) (BatchResult, error) {
	var result BatchResult
	e.haveCache = make(map[uint64]hashutil.ContentHash)

	// Phase A — metadata.
	type titleMeta struct {
		target    SyncTarget
		hash      hashutil.ContentHash
		size      int64
		lastHash  string
		haveLast  bool
		known     bool // false only for server_only titles the client has never seen
	}
	metas := make(map[string]*titleMeta)
	var syncReq transport.SyncPlanRequest
	syncReq.ConsoleID = e.ConsoleID

	for _, tgt := range targets {
		if tgt.Title.Source == title.Cartridge {
			continue
		}
		idHex := tgt.Title.IDHex()

		e.Progress(idHex, PhaseReading)
		files, err := tgt.Store.ReadSave(ctx)
		hash := hashutil.ZeroHash
		var size int64
		if err != nil {
			e.Logger.Printf("syncengine: phase A read failed for %s: %v", idHex, err)
		} else if len(files) > 0 {
			e.Progress(idHex, PhaseHashing)
			hash = hashFileList(files)
			size = files.TotalSize()
		}

		lastHash, haveLast := e.Journal.Load(idHex)

		metas[idHex] = &titleMeta{target: tgt, hash: hash, size: size, lastHash: lastHash, haveLast: haveLast, known: true}

		entry := transport.SyncTitleEntry{
			TitleID:   idHex,
			SaveHash:  hash.String(),
			Timestamp: time.Now().Unix(),
			Size:      size,
		}
		if haveLast {
			entry.LastSyncedHash = lastHash
		}
		syncReq.Titles = append(syncReq.Titles, entry)
	}

	// Phase B — decision.
	plan, err := e.Transport.PostSyncPlan(ctx, syncReq)
	if err != nil {
		return result, err
	}

	// Phase C — action. Auto-reclassify conflicts with no local save into
	// download: "there is nothing to lose" (spec §4.6.3).
	download := append([]string{}, plan.Download...)
	var conflicts []string
	for _, idHex := range plan.Conflict {
		m, ok := metas[idHex]
		if ok && m.hash.IsZero() {
			download = append(download, idHex)
			continue
		}
		conflicts = append(conflicts, idHex)
	}

	// server_only titles the client already knows locally are downloaded
	// just like an explicit "download" classification; only titles the
	// client has never seen are counted as skipped (spec §4.6.3).
	for _, idHex := range plan.ServerOnly {
		if _, ok := metas[idHex]; ok {
			download = append(download, idHex)
		}
	}

	for _, idHex := range plan.Upload {
		m, ok := metas[idHex]
		if !ok {
			result.Failed++
			continue
		}
		hash := m.hash
		if e.haveUploaded(m.target.Title.ID, hash) {
			result.Uploaded++
			continue
		}
		if _, err := e.Upload(ctx, m.target.Title, m.target.Store, &hash); err != nil {
			e.Logger.Printf("syncengine: upload of %s failed: %v", idHex, err)
			result.Failed++
			continue
		}
		result.Uploaded++
	}

	for _, idHex := range download {
		m, ok := metas[idHex]
		if !ok {
			result.Skipped++
			continue
		}
		if _, err := e.Download(ctx, m.target.Title, m.target.Store); err != nil {
			e.Logger.Printf("syncengine: download of %s failed: %v", idHex, err)
			result.Failed++
			continue
		}
		result.Downloaded++
	}

	for _, idHex := range plan.ServerOnly {
		if _, ok := metas[idHex]; !ok {
			result.Skipped++
		}
	}

	result.UpToDate = len(plan.UpToDate)
	if len(conflicts) > maxConflictsReturned {
		conflicts = conflicts[:maxConflictsReturned]
	}
	result.Conflicts = conflicts

	return result, nil
}

// SaveDetails is the ephemeral record assembled for a single title's
// status display (spec §4.2/§4.6.4).
type SaveDetails struct {
	LocalExists    bool
	LocalSize      int64
	LocalHash      hashutil.ContentHash
	LocalFileCount int

	ServerExists    bool
	ServerSize      int64
	ServerHash      string
	ServerLastSync  int64
	ServerConsoleID string

	HasLastSynced  bool
	LastSyncedHash string

	IsSynced bool
}

// GetSaveDetails implements spec §4.6.4.
func (e *Engine) GetSaveDetails(ctx context.Context, t title.Title, store savestore.SaveStore) (SaveDetails, error) {
	var d SaveDetails

	files, err := store.ReadSave(ctx)
	if err != nil {
		return d, fmt.Errorf("syncengine: read local save for %s: %w", t.IDHex(), err)
	}
	if len(files) > 0 {
		d.LocalExists = true
		d.LocalFileCount = len(files)
		d.LocalSize = files.TotalSize()
		d.LocalHash = hashFileList(files)
	}

	d.LastSyncedHash, d.HasLastSynced = e.Journal.Load(t.IDHex())

	meta, ok, err := e.Transport.GetMeta(ctx, t.IDHex())
	if err != nil {
		e.Logger.Printf("syncengine: get_save_details metadata fetch failed for %s: %v", t.IDHex(), err)
		return d, nil
	}
	if ok {
		d.ServerExists = true
		d.ServerHash = meta.SaveHash
		d.ServerSize = meta.SaveSize
		d.ServerLastSync = meta.LastSync
		d.ServerConsoleID = meta.ConsoleID
	}

	d.IsSynced = d.LocalExists && d.ServerExists && d.LocalHash.String() == d.ServerHash
	return d, nil
}

// DecideFromDetails resolves d into a Decision using the offline policy of
// spec §4.6.5, without consulting the server.
func DecideFromDetails(d SaveDetails) Decision {
	switch {
	case !d.LocalExists && !d.ServerExists:
		return UpToDate
	case d.LocalExists && !d.ServerExists:
		return Upload
	case !d.LocalExists && d.ServerExists:
		return Download
	}

	// Both exist from here on.
	local := d.LocalHash.String()
	if local == d.ServerHash {
		return UpToDate
	}
	if !d.HasLastSynced {
		// No history to arbitrate with: spec allows an mtime hint, which
		// this engine does not track, so any hash mismatch is a conflict.
		return Conflict
	}
	switch {
	case d.LastSyncedHash == d.ServerHash:
		return Upload
	case d.LastSyncedHash == local:
		return Download
	default:
		return Conflict
	}
}
