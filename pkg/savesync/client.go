// Package savesync is the public façade over the sync engine: one Open
// call wires a Transport, Journal, and Engine from a config.Config, the
// way this repo's pkg/vcs.Repository wires a Storage from a filesystem
// path.
package savesync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/robfig/cron/v3"

	"github.com/fenilsonani/savesync/internal/config"
	"github.com/fenilsonani/savesync/internal/journal"
	"github.com/fenilsonani/savesync/internal/savestore"
	"github.com/fenilsonani/savesync/internal/syncengine"
	"github.com/fenilsonani/savesync/internal/title"
	"github.com/fenilsonani/savesync/internal/titlenames"
	"github.com/fenilsonani/savesync/internal/transport"
)

// Re-exported types so callers need only import this package for common
// usage; internal/* remains the source of truth for each type.
type (
	Title        = title.Title
	SourceKind   = title.SourceKind
	SaveStore    = savestore.SaveStore
	File         = savestore.File
	FileList     = savestore.FileList
	SyncTarget   = syncengine.SyncTarget
	BatchResult  = syncengine.BatchResult
	SaveDetails  = syncengine.SaveDetails
	Decision     = syncengine.Decision
	Phase        = syncengine.Phase
	ProgressFunc = syncengine.ProgressFunc
	Logger       = syncengine.Logger
)

const (
	Installed            = title.Installed
	RemovableMediaFile   = title.RemovableMediaFile
	Cartridge            = title.Cartridge
	ExternalHandheldFile = title.ExternalHandheldFile
)

const (
	UpToDate = syncengine.UpToDate
	Upload   = syncengine.Upload
	Download = syncengine.Download
	Conflict = syncengine.Conflict
)

// Client is the entry point an application embeds to drive save
// synchronization end to end.
type Client struct {
	cfg       config.Config
	engine    *syncengine.Engine
	titleAPI  *titlenames.Client
}

// Open validates cfg and wires a Client ready to sync. httpClient may be
// nil to use http.DefaultClient.
func Open(cfg config.Config, httpClient *http.Client, progress ProgressFunc, logger Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tr := transport.New(transport.Config{
		ServerURL: cfg.ServerURL,
		APIKey:    cfg.APIKey,
		ConsoleID: cfg.ConsoleID,
	}, httpClient)

	j := journal.New(cfg.StateDirectory)
	engine := syncengine.New(tr, j, cfg.ConsoleID, cfg.UploadSizeLimitBytes, progress, logger)

	return &Client{
		cfg:      cfg,
		engine:   engine,
		titleAPI: titlenames.New(tr),
	}, nil
}

// Upload synchronizes one title's local save up to the server.
func (c *Client) Upload(ctx context.Context, t Title, store SaveStore) (syncengine.UploadResult, error) {
	return c.engine.Upload(ctx, t, store, nil)
}

// Download synchronizes one title's save down from the server.
func (c *Client) Download(ctx context.Context, t Title, store SaveStore) (syncengine.DownloadResult, error) {
	return c.engine.Download(ctx, t, store)
}

// SyncAll runs the three-phase batch sync over targets.
func (c *Client) SyncAll(ctx context.Context, targets []SyncTarget) (BatchResult, error) {
	return c.engine.SyncAll(ctx, targets)
}

// GetSaveDetails assembles a status record for one title.
func (c *Client) GetSaveDetails(ctx context.Context, t Title, store SaveStore) (SaveDetails, error) {
	return c.engine.GetSaveDetails(ctx, t, store)
}

// DecideFromDetails resolves details into a Decision without consulting
// the server.
func DecideFromDetails(d SaveDetails) Decision {
	return syncengine.DecideFromDetails(d)
}

// TitleNames looks up human-readable names for product codes.
func (c *Client) TitleNames(ctx context.Context, codes []string) (map[string]string, error) {
	return c.titleAPI.Lookup(ctx, codes)
}

// History returns a title's version history.
func (c *Client) History(ctx context.Context, titleIDHex string) ([]transport.HistoryVersion, error) {
	return c.titleAPI.History(ctx, titleIDHex)
}

// RunScheduled starts a cron-scheduled SyncAll over targets, re-evaluated
// fresh on every tick (targetsFn lets the caller re-scan removable media
// between runs).
func (c *Client) RunScheduled(ctx context.Context, cronExpr string, targetsFn func() []SyncTarget) (*cron.Cron, error) {
	return c.engine.RunScheduled(ctx, cronExpr, func(ctx context.Context) error {
		_, err := c.engine.SyncAll(ctx, targetsFn())
		if err != nil {
			return fmt.Errorf("scheduled sync: %w", err)
		}
		return nil
	})
}
