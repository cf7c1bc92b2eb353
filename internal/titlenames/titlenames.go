// Package titlenames is thin RPC glue over the server's title-name lookup
// and per-title history endpoints (spec §6.2), kept separate from
// syncengine because it carries no sync-decision semantics of its own.
package titlenames

import (
	"context"

	"github.com/fenilsonani/savesync/internal/transport"
)

// Client wraps a Transport with the title-name and history operations.
type Client struct {
	tr *transport.Transport
}

// New returns a Client using tr.
func New(tr *transport.Transport) *Client {
	return &Client{tr: tr}
}

// Lookup fetches human-readable names for a batch of product codes.
func (c *Client) Lookup(ctx context.Context, codes []string) (map[string]string, error) {
	return c.tr.TitleNames(ctx, codes)
}

// History returns the version history for a title.
func (c *Client) History(ctx context.Context, titleIDHex string) ([]transport.HistoryVersion, error) {
	return c.tr.GetHistory(ctx, titleIDHex)
}

// HistoryAt fetches the bundle bytes of a specific historical version.
func (c *Client) HistoryAt(ctx context.Context, titleIDHex string, timestamp int64) ([]byte, error) {
	return c.tr.GetHistoryAt(ctx, titleIDHex, timestamp)
}
